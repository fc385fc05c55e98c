package utils

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"
)

var ErrFileNotInArchive = errors.New("file not found in archive")

// ExtractEntry describes a file to pick out of an archive.
// Name is matched against the base name of archive entries.
type ExtractEntry struct {
	Name string
	Dst  string
	Mode os.FileMode

	// Optional means a missing entry is not an error.
	Optional bool
}

// ExtractFromArchive copies the wanted entries out of a .zip or .tar.gz archive.
func ExtractFromArchive(archivePath string, wanted []ExtractEntry) error {
	switch {
	case strings.HasSuffix(archivePath, ".zip"):
		return extractFromZip(archivePath, wanted)
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		return extractFromTarGz(archivePath, wanted)
	default:
		return ErrInErr{ErrDesc: "unsupported archive format", ErrDetail: ErrWrongParameter, Data: archivePath}
	}
}

func extractFromZip(archivePath string, wanted []ExtractEntry) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return ErrInErr{ErrDesc: "open zip failed", ErrDetail: err, Data: archivePath}
	}
	defer reader.Close()

	found := make(map[string]bool)

	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		e, ok := findEntry(wanted, f.Name)
		if !ok {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(rc, e)
		rc.Close()
		if err != nil {
			return err
		}
		found[e.Name] = true
	}

	return checkAllFound(wanted, found, archivePath)
}

func extractFromTarGz(archivePath string, wanted []ExtractEntry) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return ErrInErr{ErrDesc: "open gzip failed", ErrDetail: err, Data: archivePath}
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	found := make(map[string]bool)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ErrInErr{ErrDesc: "read tar failed", ErrDetail: err, Data: archivePath}
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		e, ok := findEntry(wanted, hdr.Name)
		if !ok {
			continue
		}
		if err = writeEntry(tr, e); err != nil {
			return err
		}
		found[e.Name] = true
	}

	return checkAllFound(wanted, found, archivePath)
}

func findEntry(wanted []ExtractEntry, name string) (ExtractEntry, bool) {
	base := path.Base(name)
	for _, e := range wanted {
		if e.Name == base {
			return e, true
		}
	}
	return ExtractEntry{}, false
}

func checkAllFound(wanted []ExtractEntry, found map[string]bool, archivePath string) error {
	for _, e := range wanted {
		if !found[e.Name] && !e.Optional {
			return ErrInErr{ErrDesc: e.Name, ErrDetail: ErrFileNotInArchive, Data: archivePath}
		}
	}
	return nil
}

func writeEntry(r io.Reader, e ExtractEntry) error {
	mode := e.Mode
	if mode == 0 {
		mode = 0644
	}

	tmp := e.Dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if closeErr != nil {
		os.Remove(tmp)
		return closeErr
	}
	if err = os.Chmod(tmp, mode); err != nil {
		os.Remove(tmp)
		return err
	}

	if ce := CanLogDebug("extracted"); ce != nil {
		ce.Write(zap.String("name", e.Name), zap.String("dst", e.Dst))
	}
	return os.Rename(tmp, e.Dst)
}
