/*
Package configAdapter renders the xray json configs of the relay and the outbound host,
and converts them to share links that clients such as v2rayN can import.

中转机 (relay) 放在国内, 客户端用 vmess 连接它; 国内流量直连, 其余流量经 vless + http伪装
的隧道发往国外的出口机 (outbound). 两台机器的参数互相独立, 本包不检查它们是否匹配.
*/
package configAdapter

import (
	"github.com/e1732a364fed/xrelay/configAdapter/xray"
	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
)

// Encode checks c and renders it as indented json.
func Encode(c *xray.Conf) ([]byte, error) {
	if err := c.Check(); err != nil {
		return nil, utils.ErrInErr{ErrDesc: "generated config is invalid", ErrDetail: err}
	}
	return c.Encode()
}

// WriteConf 原子地写入配置文件, 权限 0644; 失败时原文件不变.
func WriteConf(path string, c *xray.Conf) error {
	bs, err := Encode(c)
	if err != nil {
		return err
	}
	if err = utils.WriteFileAtomic(path, bs, 0o644); err != nil {
		return err
	}
	if ce := utils.CanLogInfo("config written"); ce != nil {
		ce.Write(zap.String("path", path), zap.Int("bytes", len(bs)))
	}
	return nil
}
