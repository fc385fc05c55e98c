/*
Package netLayer fetches what the installer needs from the network: the xray release
archive and its digest, the domain list data file, the obfuscation tool, and the public
address of the host.

所有下载都先落在临时目录里, 校验通过后才移动到最终位置.
*/
package netLayer

import (
	"context"
	"io"
	"os"

	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
)

// Fetcher 下载文件到 Dir. Proxy 为空时直连.
type Fetcher struct {
	Proxy    string
	Dir      string
	Progress io.Writer
}

// NewFetcher creates a scratch directory under the system temp dir.
func NewFetcher(proxy string, progress io.Writer) (*Fetcher, error) {
	dir, err := os.MkdirTemp("", "xrelay-")
	if err != nil {
		return nil, err
	}
	return &Fetcher{Proxy: proxy, Dir: dir, Progress: progress}, nil
}

func (f *Fetcher) Fetch(ctx context.Context, link string) (string, error) {
	return utils.DownloadToDir(ctx, link, f.Proxy, f.Dir, f.Progress)
}

// Cleanup removes the scratch directory.
func (f *Fetcher) Cleanup() {
	if err := os.RemoveAll(f.Dir); err != nil {
		if ce := utils.CanLogWarn("remove scratch dir failed"); ce != nil {
			ce.Write(zap.String("dir", f.Dir), zap.Error(err))
		}
	}
}
