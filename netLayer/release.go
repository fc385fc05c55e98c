package netLayer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
)

const (
	DefaultReleaseBase = "https://github.com/XTLS/Xray-core/releases/download"
	DefaultVersion     = "1.8.24"
)

var ErrChecksum = errors.New("checksum verification failed")

// ReleaseURL 如 https://github.com/XTLS/Xray-core/releases/download/v1.8.24/Xray-linux-64.zip
func ReleaseURL(base, version, arch string) string {
	return strings.TrimSuffix(base, "/") + "/v" + strings.TrimPrefix(version, "v") + "/Xray-linux-" + arch + ".zip"
}

func DigestURL(archiveURL string) string {
	return archiveURL + ".dgst"
}

// Digest 是一条摘要记录, Algo 统一为 "sha256" 或 "sha512", 不认识的算法保留原名.
type Digest struct {
	Algo string
	Sum  []byte
}

func normalizeAlgo(s string) string {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SHA2-256", "SHA256", "SHA-256":
		return "sha256"
	case "SHA2-512", "SHA512", "SHA-512":
		return "sha512"
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseDigest 解析摘要文件. 支持的行格式:
//
//	SHA2-256= <hex>                (xray 的 .dgst)
//	SHA256 (file) = <hex>          (bsd 风格)
//	<hex>  file                    (sha256sum 输出, 按长度判断算法)
func ParseDigest(data []byte) ([]Digest, error) {
	var ds []Digest

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var algo, sumStr string
		if i := strings.LastIndexByte(line, '='); i > 0 {
			algo = line[:i]
			if j := strings.IndexByte(algo, '('); j > 0 {
				algo = algo[:j]
			}
			sumStr = strings.TrimSpace(line[i+1:])
		} else {
			fields := strings.Fields(line)
			sumStr = fields[0]
			switch len(sumStr) {
			case sha256.Size * 2:
				algo = "sha256"
			case sha512.Size * 2:
				algo = "sha512"
			default:
				continue
			}
		}

		sum, err := hex.DecodeString(strings.ToLower(sumStr))
		if err != nil {
			return nil, utils.ErrInErr{ErrDesc: "bad hex in digest file", ErrDetail: utils.ErrInvalidData, Data: line}
		}
		ds = append(ds, Digest{Algo: normalizeAlgo(algo), Sum: sum})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}

// VerifyFile 检查所有认识的摘要. 没有任何可用摘要, 或任一不匹配, 都返回 ErrChecksum.
func VerifyFile(path string, ds []Digest) error {
	hashers := map[string]hash.Hash{}
	for _, d := range ds {
		switch d.Algo {
		case "sha256":
			hashers[d.Algo] = sha256.New()
		case "sha512":
			hashers[d.Algo] = sha512.New()
		}
	}
	if len(hashers) == 0 {
		return utils.ErrInErr{ErrDesc: "no usable digest", ErrDetail: ErrChecksum, Data: path}
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ws := make([]io.Writer, 0, len(hashers))
	for _, h := range hashers {
		ws = append(ws, h)
	}
	if _, err = io.Copy(io.MultiWriter(ws...), f); err != nil {
		return err
	}

	for _, d := range ds {
		h, ok := hashers[d.Algo]
		if !ok {
			continue
		}
		if !bytes.Equal(h.Sum(nil), d.Sum) {
			return utils.ErrInErr{ErrDesc: d.Algo + " mismatch", ErrDetail: ErrChecksum, Data: filepath.Base(path)}
		}
	}

	if ce := utils.CanLogInfo("checksum ok"); ce != nil {
		ce.Write(zap.String("file", filepath.Base(path)), zap.Int("digests", len(hashers)))
	}
	return nil
}

// VerifySHA256Hex is VerifyFile with a single hex encoded sha256.
func VerifySHA256Hex(path, sumHex string) error {
	sum, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(sumHex)))
	if err != nil || len(sum) != sha256.Size {
		return utils.ErrInErr{ErrDesc: "bad sha256", ErrDetail: ErrChecksum, Data: sumHex}
	}
	return VerifyFile(path, []Digest{{Algo: "sha256", Sum: sum}})
}

// FetchVerified 下载 link 及其摘要文件 digestLink, 校验后返回本地路径.
func (f *Fetcher) FetchVerified(ctx context.Context, link, digestLink string) (string, error) {
	archive, err := f.Fetch(ctx, link)
	if err != nil {
		return "", err
	}
	dgst, err := f.Fetch(ctx, digestLink)
	if err != nil {
		return "", err
	}
	bs, err := os.ReadFile(dgst)
	if err != nil {
		return "", err
	}
	ds, err := ParseDigest(bs)
	if err != nil {
		return "", err
	}
	if err = VerifyFile(archive, ds); err != nil {
		return "", err
	}
	return archive, nil
}

// ReleaseLayout 是 xray 各文件的安装位置.
type ReleaseLayout struct {
	Binary  string
	DataDir string
}

// InstallRelease 从 release 压缩包中取出 xray, geoip.dat, geosite.dat.
func InstallRelease(archive string, l ReleaseLayout) error {
	for _, dir := range []string{filepath.Dir(l.Binary), l.DataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return utils.ExtractFromArchive(archive, []utils.ExtractEntry{
		{Name: "xray", Dst: l.Binary, Mode: 0755},
		{Name: "geoip.dat", Dst: filepath.Join(l.DataDir, "geoip.dat"), Mode: 0644},
		{Name: "geosite.dat", Dst: filepath.Join(l.DataDir, "geosite.dat"), Mode: 0644},
	})
}
