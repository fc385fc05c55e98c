// Package httpLayer holds the http header presets that xray uses to disguise a
// raw tcp stream as plain http/1.1 traffic.
package httpLayer

import (
	"net/http"
	"strings"

	"github.com/e1732a364fed/xrelay/utils"
	"golang.org/x/exp/maps"
)

// 当有多个值时，每次请求 xray 会随机选择一个值, 所以给出多个常见的 Host 和 User-Agent
// 就能让伪装流量看起来像是多个普通浏览器访问多个普通网站.
var (
	DefaultHosts = []string{
		"www.bing.com",
		"www.speedtest.net",
		"www.apple.com",
		"www.microsoft.com",
		"www.cloudflare.com",
	}

	DefaultUserAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:123.0) Gecko/20100101 Firefox/123.0",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_3 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 14; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Mobile Safari/537.36",
	}
)

type RequestHeader struct {
	Version string              `toml:"version"` //默认值为 "1.1"
	Method  string              `toml:"method"`  //默认值为 "GET"。
	Path    []string            `toml:"path"`    //默认值为 ["/"]。当有多个值时，每次请求随机选择一个值。
	Headers map[string][]string `toml:"headers"` //每次请求会附上所有的键，并随机选择一个对应的值。
}

type ResponseHeader struct {
	Version    string              `toml:"version"` // 1.1
	StatusCode string              `toml:"status"`  // 200
	Reason     string              `toml:"reason"`  // OK
	Headers    map[string][]string `toml:"headers"`
}

// http 头 预设, 分客户端的 request 和 服务端的 response 这两部分.
type HeaderPreset struct {
	Request  *RequestHeader  `toml:"request"`
	Response *ResponseHeader `toml:"response"`
}

// defaultPreset 只在 NewPreset 中被复制, 不直接交给调用者, 因为渲染出的配置会引用其中的 map.
var defaultPreset = func() *HeaderPreset {
	h := &HeaderPreset{}
	h.AssignDefaultValue()
	return h
}()

// NewPreset returns a copy of the default preset whose request path is path.
func NewPreset(path string) *HeaderPreset {
	h := defaultPreset.Clone()
	h.Request.Path = []string{path}
	return h
}

// 将Header改为首字母大写, 并合并大小写不同的同名键
func (h *HeaderPreset) Prepare() {
	if h.Request != nil && len(h.Request.Headers) > 0 {
		h.Request.Headers = canonicalize(h.Request.Headers)
	}
	if h.Response != nil && len(h.Response.Headers) > 0 {
		h.Response.Headers = canonicalize(h.Response.Headers)
	}
}

func canonicalize(m map[string][]string) map[string][]string {
	var realHeaders http.Header = make(http.Header)
	for k, vs := range m {
		for _, v := range vs {
			realHeaders.Add(k, v)
		}
	}
	return realHeaders
}

// 默认值保持与v2ray的配置相同, Host 与 User-Agent 换成了较新的列表
func (h *HeaderPreset) AssignDefaultValue() {
	if h.Request == nil {
		h.Request = &RequestHeader{}
	}
	if h.Request.Version == "" {
		h.Request.Version = "1.1"
	}
	if h.Request.Method == "" {
		h.Request.Method = "GET"
	}
	if len(h.Request.Path) == 0 {
		h.Request.Path = []string{"/"}
	}
	if len(h.Request.Headers) == 0 {
		h.Request.Headers = map[string][]string{
			"Host":            append([]string(nil), DefaultHosts...),
			"User-Agent":      append([]string(nil), DefaultUserAgents...),
			"Accept-Encoding": {"gzip, deflate"},
			"Connection":      {"keep-alive"},
			"Pragma":          {"no-cache"},
		}
	}

	if h.Response == nil {
		h.Response = &ResponseHeader{}
	}
	if h.Response.Version == "" {
		h.Response.Version = "1.1"
	}
	if h.Response.StatusCode == "" {
		h.Response.StatusCode = "200"
	}
	if h.Response.Reason == "" {
		h.Response.Reason = "OK"
	}
	if len(h.Response.Headers) == 0 {
		h.Response.Headers = map[string][]string{
			"Content-Type":      {"application/octet-stream", "video/mpeg"},
			"Transfer-Encoding": {"chunked"},
			"Connection":        {"keep-alive"},
			"Pragma":            {"no-cache"},
		}
	}

	h.Prepare()
}

// Validate 检查 path 都以 / 开头, 且 header 值不含换行 (否则会破坏 http 报文).
func (h *HeaderPreset) Validate() error {
	if h.Request != nil {
		for _, p := range h.Request.Path {
			if !strings.HasPrefix(p, "/") {
				return utils.ErrInErr{ErrDesc: "http header path must start with /", ErrDetail: utils.ErrInvalidData, Data: p}
			}
		}
		if err := checkHeaderValues(h.Request.Headers); err != nil {
			return err
		}
	}
	if h.Response != nil {
		return checkHeaderValues(h.Response.Headers)
	}
	return nil
}

func checkHeaderValues(m map[string][]string) error {
	for k, vs := range m {
		for _, v := range vs {
			if strings.ContainsAny(k+v, "\r\n") {
				return utils.ErrInErr{ErrDesc: "http header contains a line break", ErrDetail: utils.ErrInvalidData, Data: k}
			}
		}
	}
	return nil
}

// Clone returns a deep copy, so a shared preset can be adjusted per config.
func (h *HeaderPreset) Clone() *HeaderPreset {
	if h == nil {
		return nil
	}
	c := &HeaderPreset{}
	if h.Request != nil {
		r := *h.Request
		r.Path = append([]string(nil), h.Request.Path...)
		r.Headers = cloneHeaders(h.Request.Headers)
		c.Request = &r
	}
	if h.Response != nil {
		r := *h.Response
		r.Headers = cloneHeaders(h.Response.Headers)
		c.Response = &r
	}
	return c
}

func cloneHeaders(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	result := maps.Clone(m)
	for k, v := range result {
		result[k] = append([]string(nil), v...)
	}
	return result
}
