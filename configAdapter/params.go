package configAdapter

import (
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/e1732a364fed/xrelay/httpLayer"
	"github.com/e1732a364fed/xrelay/utils"
)

type Role int

const (
	RoleRelay Role = iota
	RoleOutbound
)

func (r Role) String() string {
	switch r {
	case RoleRelay:
		return "relay"
	case RoleOutbound:
		return "outbound"
	}
	return "unknown"
}

const (
	DefaultRelayPort    = 9921
	DefaultUpstreamPort = 21432
	DefaultPath         = "/aVerySecretPath"
	DefaultSendThrough  = "0.0.0.0"

	MuxDisabled       = -1
	MaxMuxConcurrency = 1024
)

// RelayParams 是国内中转机的安装参数. 中转机接收 vmess, 再通过 vless+http伪装 转发给国外的出口机.
type RelayParams struct {
	Port           int    `toml:"port"`
	ServerID       string `toml:"server_id"`
	UpstreamHost   string `toml:"upstream_host"`
	UpstreamPort   int    `toml:"upstream_port"`
	UpstreamID     string `toml:"upstream_id"`
	UpstreamPath   string `toml:"upstream_path"`
	SendThrough    string `toml:"send_through"`
	MuxConcurrency int    `toml:"mux"`
}

// OutboundParams 是国外出口机的安装参数.
type OutboundParams struct {
	Port        int    `toml:"port"`
	ClientID    string `toml:"client_id"`
	Path        string `toml:"path"`
	SendThrough string `toml:"send_through"`
}

// NewRelayParams fills every default. ServerID is generated here, once, so that
// accepting the default never picks up the upstream identifier.
func NewRelayParams() RelayParams {
	return RelayParams{
		Port:           DefaultRelayPort,
		ServerID:       utils.GenerateUUIDStr(),
		UpstreamPort:   DefaultUpstreamPort,
		UpstreamPath:   DefaultPath,
		MuxConcurrency: MuxDisabled,
	}
}

func NewOutboundParams() OutboundParams {
	return OutboundParams{
		Port:        DefaultUpstreamPort,
		ClientID:    utils.GenerateUUIDStr(),
		Path:        DefaultPath,
		SendThrough: DefaultSendThrough,
	}
}

func (p RelayParams) MuxEnabled() bool {
	return p.MuxConcurrency != MuxDisabled
}

func (p RelayParams) Validate() error {
	if err := CheckPort(p.Port); err != nil {
		return err
	}
	if err := CheckID(p.ServerID); err != nil {
		return err
	}
	if err := CheckHost(p.UpstreamHost); err != nil {
		return err
	}
	if err := CheckPort(p.UpstreamPort); err != nil {
		return err
	}
	if err := CheckID(p.UpstreamID); err != nil {
		return err
	}
	if err := CheckPath(p.UpstreamPath); err != nil {
		return err
	}
	if err := CheckSendThrough(p.SendThrough); err != nil {
		return err
	}
	return CheckMux(p.MuxConcurrency)
}

func (p OutboundParams) Validate() error {
	if err := CheckPort(p.Port); err != nil {
		return err
	}
	if err := CheckID(p.ClientID); err != nil {
		return err
	}
	if err := CheckPath(p.Path); err != nil {
		return err
	}
	return CheckSendThrough(p.SendThrough)
}

func wrongParam(desc string, data any) error {
	return utils.ErrInErr{ErrDesc: desc, ErrDetail: utils.ErrWrongParameter, Data: data}
}

func CheckPort(port int) error {
	if !govalidator.IsPort(strconv.Itoa(port)) {
		return wrongParam("port must be within 1-65535", port)
	}
	return nil
}

func CheckID(id string) error {
	if !utils.IsUUID(id) {
		return wrongParam("identifier must be a uuid", id)
	}
	return nil
}

func CheckHost(host string) error {
	if host == "" {
		return wrongParam("host is required", host)
	}
	if !govalidator.IsIP(host) && !govalidator.IsDNSName(host) {
		return wrongParam("host must be an ip or a domain name", host)
	}
	return nil
}

func CheckPath(path string) error {
	if !strings.HasPrefix(path, "/") || strings.ContainsAny(path, " \t\r\n?#") {
		return wrongParam("path must start with / and contain no spaces, ? or #", path)
	}
	if err := httpLayer.NewPreset(path).Validate(); err != nil {
		return wrongParam(err.Error(), path)
	}
	return nil
}

// CheckSendThrough accepts an empty value, meaning the system chooses.
func CheckSendThrough(addr string) error {
	if addr != "" && !govalidator.IsIP(addr) {
		return wrongParam("send through must be an ip address", addr)
	}
	return nil
}

func CheckMux(n int) error {
	if n == MuxDisabled || (n >= 1 && n <= MaxMuxConcurrency) {
		return nil
	}
	return wrongParam("mux concurrency must be -1 or within 1-1024", n)
}
