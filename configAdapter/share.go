package configAdapter

import (
	"encoding/base64"
	"encoding/json"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/e1732a364fed/xrelay/httpLayer"
)

type V2rayNConfig struct {
	V        string `json:"v"`   //配置文件版本号,主要用来识别当前配置
	PS       string `json:"ps"`  //备注或别名
	Add      string `json:"add"` //地址IP或域名
	Port     string `json:"port"`
	ID       string `json:"id"`
	Aid      string `json:"aid"`
	Security string `json:"scy"`
	Net      string `json:"net"`  //(tcp\kcp\ws\h2\quic)
	Type     string `json:"type"` //(none\http\srtp\utp\wechat-video) *tcp or kcp or QUIC
	Host     string `json:"host"`
	Path     string `json:"path"`
	Tls      string `json:"tls"`
	Sni      string `json:"sni"`
}

// RelayShareLink 给出客户端连接中转机用的 vmess 链接, host 为中转机的公网地址.
//
// See https://github.com/2dust/v2rayN/wiki/%E5%88%86%E4%BA%AB%E9%93%BE%E6%8E%A5%E6%A0%BC%E5%BC%8F%E8%AF%B4%E6%98%8E(ver-2)
func RelayShareLink(p RelayParams, host, name string) string {
	vc := V2rayNConfig{
		V:        "2",
		PS:       name,
		Add:      host,
		Port:     strconv.Itoa(p.Port),
		ID:       p.ServerID,
		Aid:      "0",
		Security: "auto",
		Net:      "tcp",
		Type:     "none",
	}
	bs, err := json.Marshal(vc)
	if err != nil {
		return err.Error()
	}

	return "vmess://" + base64.StdEncoding.EncodeToString(bs)
}

// OutboundShareLink 给出连接出口机的 vless 链接, 可用于直接测试出口机.
//
// See https://github.com/XTLS/Xray-core/discussions/716
func OutboundShareLink(p OutboundParams, host, name string) string {
	var u url.URL

	u.Scheme = "vless"
	u.User = url.User(p.ClientID)
	u.Host = net.JoinHostPort(host, strconv.Itoa(p.Port))

	h := httpLayer.NewPreset(p.Path)

	q := u.Query()
	q.Add("encryption", "none")
	q.Add("security", "none")
	q.Add("type", "tcp")
	q.Add("headerType", "http")
	q.Add("path", p.Path)
	q.Add("host", strings.Join(h.Request.Headers["Host"], ","))
	u.RawQuery = q.Encode()

	if name != "" {
		u.Fragment = name
	}

	return u.String()
}
