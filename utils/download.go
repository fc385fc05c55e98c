package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// HttpClientWithProxyUrl returns http.DefaultClient if proxyUrl is empty, else a new client
// whose transport goes through proxyUrl. http, https and socks5 schemes are accepted.
func HttpClientWithProxyUrl(proxyUrl string) (*http.Client, error) {
	if proxyUrl == "" {
		return http.DefaultClient, nil
	}

	url_proxy, err := url.Parse(proxyUrl)
	if err != nil {
		return nil, ErrInErr{ErrDesc: "invalid proxy url", ErrDetail: err, Data: proxyUrl}
	}
	switch url_proxy.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, ErrInErr{ErrDesc: "unsupported proxy scheme", ErrDetail: ErrWrongParameter, Data: proxyUrl}
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(url_proxy),
		},
	}, nil
}

// DownloadPrintCounter prints the downloaded size as it grows.
// https://golangcode.com/download-a-file-with-progress/
type DownloadPrintCounter struct {
	W     io.Writer
	Total uint64
}

func (wc *DownloadPrintCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Total += uint64(n)
	wc.PrintProgress()
	return n, nil
}

func (wc DownloadPrintCounter) PrintProgress() {
	if wc.W == nil {
		return
	}
	fmt.Fprintf(wc.W, "\r%s", strings.Repeat(" ", 35))
	fmt.Fprintf(wc.W, "\rDownloading... %s complete", humanize.Bytes(wc.Total))
}

type DownloadOpts struct {
	URL   string
	Proxy string

	// Dst is the full path of the file to write. Its directory must exist.
	Dst string

	// Progress, if not nil, receives a human readable progress line.
	Progress io.Writer
}

// Download fetches opts.URL into opts.Dst. Any transport error or non-200 status
// is returned wrapped around ErrDownload, so callers may retry.
func Download(ctx context.Context, opts DownloadOpts) (err error) {
	if ce := CanLogInfo("Downloading"); ce != nil {
		ce.Write(zap.String("url", opts.URL), zap.String("proxy", opts.Proxy), zap.String("dst", opts.Dst))
	}

	client, err := HttpClientWithProxyUrl(opts.Proxy)
	if err != nil {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return ErrInErr{ErrDesc: "bad download url", ErrDetail: err, Data: opts.URL}
	}

	resp, err := client.Do(req)
	if err != nil {
		return ErrInErr{ErrDesc: err.Error(), ErrDetail: ErrDownload, Data: opts.URL}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrInErr{ErrDesc: "bad status " + resp.Status, ErrDetail: ErrDownload, Data: opts.URL}
	}

	out, err := os.Create(opts.Dst)
	if err != nil {
		return ErrInErr{ErrDesc: "can download but can't create file", ErrDetail: err, Data: opts.Dst}
	}

	var body io.Reader = resp.Body
	if opts.Progress != nil {
		body = io.TeeReader(resp.Body, &DownloadPrintCounter{W: opts.Progress})
	}

	_, err = io.Copy(out, body)
	closeErr := out.Close()

	if opts.Progress != nil {
		fmt.Fprintln(opts.Progress)
	}

	if err != nil {
		os.Remove(opts.Dst)
		return ErrInErr{ErrDesc: err.Error(), ErrDetail: ErrDownload, Data: opts.URL}
	}
	if closeErr != nil {
		return closeErr
	}

	if ce := CanLogDebug("Download success"); ce != nil {
		ce.Write(zap.String("dst", opts.Dst))
	}
	return nil
}

// DownloadToDir is like Download but names the file after the last element of the url path.
func DownloadToDir(ctx context.Context, link, proxy, dir string, progress io.Writer) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", ErrInErr{ErrDesc: "bad download url", ErrDetail: err, Data: link}
	}
	name := filepath.Base(u.Path)
	if name == "." || name == "/" {
		name = "download"
	}
	dst := filepath.Join(dir, name)

	return dst, Download(ctx, DownloadOpts{URL: link, Proxy: proxy, Dst: dst, Progress: progress})
}
