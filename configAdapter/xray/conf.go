// Package xray defines the subset of the xray json config that xrelay generates.
// See https://xtls.github.io/config/
package xray

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Conf struct {
	Log       *LogObject     `json:"log"`
	Inbounds  []Inbound      `json:"inbounds"`
	Outbounds []Outbound     `json:"outbounds"`
	Routing   *RoutingObject `json:"routing"`
}

type LogObject struct {
	Access   string `json:"access,omitempty"`
	Error    string `json:"error,omitempty"`
	LogLevel string `json:"loglevel"` //"debug" | "info" | "warning" | "error" | "none"
}

type Inbound struct {
	Port     int           `json:"port"`
	Listen   string        `json:"listen,omitempty"`
	Protocol string        `json:"protocol"`
	Settings any           `json:"settings"`
	Stream   *StreamObject `json:"streamSettings,omitempty"`
	Tag      string        `json:"tag"`
}

type Outbound struct {
	SendThrough string        `json:"sendThrough,omitempty"`
	Protocol    string        `json:"protocol"`
	Settings    any           `json:"settings"`
	Stream      *StreamObject `json:"streamSettings,omitempty"`
	Mux         *MuxObject    `json:"mux,omitempty"`
	Tag         string        `json:"tag"`
}

type MuxObject struct {
	Enabled     bool `json:"enabled"`
	Concurrency int  `json:"concurrency"`
}

type StreamObject struct {
	Network     string       `json:"network"`  // "tcp" | "ws" | ...
	Security    string       `json:"security"` // "none" | "tls" | "reality"
	TCPSettings *TCPSettings `json:"tcpSettings,omitempty"`
}

type TCPSettings struct {
	Header *HeaderObject `json:"header,omitempty"`
}

// HeaderObject 即 tcp 的 http 伪装头. Type 为 "none" 时, Request 与 Response 均无意义.
type HeaderObject struct {
	Type     string        `json:"type"`
	Request  *HTTPRequest  `json:"request,omitempty"`
	Response *HTTPResponse `json:"response,omitempty"`
}

type HTTPRequest struct {
	Version string              `json:"version"`
	Method  string              `json:"method"`
	Path    []string            `json:"path"`
	Headers map[string][]string `json:"headers,omitempty"`
}

type HTTPResponse struct {
	Version string              `json:"version"`
	Status  string              `json:"status"`
	Reason  string              `json:"reason"`
	Headers map[string][]string `json:"headers,omitempty"`
}

type RoutingObject struct {
	DomainStrategy string       `json:"domainStrategy"` //"AsIs" | "IPIfNonMatch" | "IPOnDemand"
	Rules          []RuleObject `json:"rules"`
}

// RuleObject 所有非空条件同时满足时匹配; 规则按顺序检查, 首个匹配者生效.
type RuleObject struct {
	Type        string   `json:"type"` // always "field"
	InboundTag  []string `json:"inboundTag,omitempty"`
	OutboundTag string   `json:"outboundTag"`
	Protocol    []string `json:"protocol,omitempty"`
	IP          []string `json:"ip,omitempty"`
	Domain      []string `json:"domain,omitempty"`
	Network     string   `json:"network,omitempty"`
}

// IsCatchAll reports whether the rule matches any tcp/udp traffic it sees.
// An inboundTag condition is allowed since the generated configs have a single inbound.
func (r RuleObject) IsCatchAll() bool {
	return len(r.Protocol) == 0 && len(r.IP) == 0 && len(r.Domain) == 0 && r.Network == NetworkAll
}

var (
	ErrInboundCount  = errors.New("config must have exactly one inbound")
	ErrNoBlackhole   = errors.New("config must have a blackhole outbound")
	ErrNoCatchAll    = errors.New("last routing rule must be a catch-all")
	ErrUnknownTarget = errors.New("routing rule points to an unknown outbound")
)

// Check verifies the structural invariants of a generated config.
func (c *Conf) Check() error {
	if len(c.Inbounds) != 1 {
		return fmt.Errorf("%w, got %d", ErrInboundCount, len(c.Inbounds))
	}

	tags := make(map[string]bool)
	hasBlackhole := false
	for _, o := range c.Outbounds {
		tags[o.Tag] = true
		if o.Protocol == ProtocolBlackhole {
			hasBlackhole = true
		}
	}
	if !hasBlackhole {
		return ErrNoBlackhole
	}

	if c.Routing == nil || len(c.Routing.Rules) == 0 || !c.Routing.Rules[len(c.Routing.Rules)-1].IsCatchAll() {
		return ErrNoCatchAll
	}
	for i, r := range c.Routing.Rules {
		if !tags[r.OutboundTag] {
			return fmt.Errorf("%w: rule %d -> %q", ErrUnknownTarget, i, r.OutboundTag)
		}
	}
	return nil
}

// Encode renders c as indented json.
func (c *Conf) Encode() ([]byte, error) {
	bs, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(bs, '\n'), nil
}

const (
	ProtocolVMess     = "vmess"
	ProtocolVLESS     = "vless"
	ProtocolFreedom   = "freedom"
	ProtocolBlackhole = "blackhole"

	NetworkAll = "tcp,udp"
)
