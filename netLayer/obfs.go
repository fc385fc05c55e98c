package netLayer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
)

const ArchPlaceholder = "{arch}"

var ErrUnverified = errors.New("artifact has no checksum and unverified install is not allowed")

// xray 的架构名 到 常见 go 程序 release 中架构名 的映射
var xrayArchToGoArch = map[string]string{
	"64":        "amd64",
	"32":        "386",
	"arm64-v8a": "arm64",
	"arm32-v7a": "arm",
	"arm32-v6":  "arm",
	"arm32-v5":  "arm",
}

func GoArch(xrayArch string) (string, bool) {
	a, ok := xrayArchToGoArch[xrayArch]
	return a, ok
}

// Artifact 描述一个第三方工具的发布包, 如 SpoofDPI. URL 中的 {arch} 会被替换.
type Artifact struct {
	Name   string `toml:"name"`
	URL    string `toml:"url"`
	Binary string `toml:"binary"` //包内可执行文件名

	SHA256    string `toml:"sha256"`
	DigestURL string `toml:"digest_url"`

	// 没有 SHA256 和 DigestURL 时, 只有显式设置此项才会安装
	AllowUnverified bool `toml:"allow_unverified"`

	Args []string `toml:"args"`
}

func DefaultObfsTool() Artifact {
	return Artifact{
		Name:   "spoofdpi",
		URL:    "https://github.com/xvzc/SpoofDPI/releases/latest/download/spoofdpi-linux-" + ArchPlaceholder + ".tar.gz",
		Binary: "spoofdpi",
		Args:   []string{"-addr", "127.0.0.1", "-port", "8080"},
	}
}

func (a Artifact) Verifiable() bool {
	return a.SHA256 != "" || a.DigestURL != ""
}

func (a Artifact) ResolveURL(xrayArch string) (string, error) {
	if !strings.Contains(a.URL, ArchPlaceholder) {
		return a.URL, nil
	}
	goarch, ok := GoArch(xrayArch)
	if !ok {
		return "", utils.ErrInErr{ErrDesc: a.Name + " has no build for this architecture", ErrDetail: utils.ErrNotImplemented, Data: xrayArch}
	}
	return strings.ReplaceAll(a.URL, ArchPlaceholder, goarch), nil
}

// FetchArtifact 下载并校验 a, 再把其中的可执行文件安装到 binPath.
func (f *Fetcher) FetchArtifact(ctx context.Context, a Artifact, xrayArch, binPath string) error {
	if !a.Verifiable() && !a.AllowUnverified {
		return utils.ErrInErr{ErrDesc: a.Name, ErrDetail: ErrUnverified}
	}

	link, err := a.ResolveURL(xrayArch)
	if err != nil {
		return err
	}

	var archive string
	switch {
	case a.SHA256 != "":
		if archive, err = f.Fetch(ctx, link); err != nil {
			return err
		}
		err = VerifySHA256Hex(archive, a.SHA256)
	case a.DigestURL != "":
		dl := a.DigestURL
		if strings.Contains(dl, ArchPlaceholder) {
			goarch, _ := GoArch(xrayArch)
			dl = strings.ReplaceAll(dl, ArchPlaceholder, goarch)
		}
		archive, err = f.FetchVerified(ctx, link, dl)
	default:
		if ce := utils.CanLogWarn("installing unverified artifact"); ce != nil {
			ce.Write(zap.String("name", a.Name), zap.String("url", link))
		}
		archive, err = f.Fetch(ctx, link)
	}
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(binPath), 0755); err != nil {
		return err
	}
	return utils.ExtractFromArchive(archive, []utils.ExtractEntry{{Name: a.Binary, Dst: binPath, Mode: 0755}})
}
