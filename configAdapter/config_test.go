package configAdapter_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/e1732a364fed/xrelay/configAdapter"
	"github.com/e1732a364fed/xrelay/configAdapter/xray"
	"github.com/e1732a364fed/xrelay/utils"
)

const otherUUID = "0b8f2f7e-6d6b-4e63-9a0e-2f4c3f9a1b2c"

func defaultRelay() configAdapter.RelayParams {
	p := configAdapter.NewRelayParams()
	p.UpstreamHost = "example.com"
	p.UpstreamID = utils.ExampleUUID
	return p
}

// decode renders c and decodes it back into a generic tree, as xray would read it.
func decode(t *testing.T, c xray.Conf) map[string]any {
	t.Helper()
	bs, err := configAdapter.Encode(&c)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(bs, &m); err != nil {
		t.Fatal("not valid json", err)
	}
	return m
}

func TestRelayDefaults(t *testing.T) {
	p := defaultRelay()
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	if p.ServerID == p.UpstreamID || !utils.IsUUID(p.ServerID) {
		t.Fatal("default server id must be a fresh uuid", p.ServerID)
	}

	c := configAdapter.RenderRelay(p, configAdapter.DefaultRenderEnv())
	m := decode(t, c)

	ins := m["inbounds"].([]any)
	if len(ins) != 1 {
		t.Fatal("want exactly one inbound")
	}
	in := ins[0].(map[string]any)
	if in["port"].(float64) != 9921 || in["protocol"] != "vmess" {
		t.Fatal("bad inbound", in)
	}
	clients := in["settings"].(map[string]any)["clients"].([]any)
	if clients[0].(map[string]any)["id"] != p.ServerID {
		t.Fatal("inbound must use the server id")
	}

	outs := m["outbounds"].([]any)
	protocols := map[string]bool{}
	for _, o := range outs {
		protocols[o.(map[string]any)["protocol"].(string)] = true
	}
	if len(outs) < 2 || !protocols["freedom"] || !protocols["blackhole"] {
		t.Fatal("want direct and blackhole outbounds", protocols)
	}

	tunnel := outs[0].(map[string]any)
	mux := tunnel["mux"].(map[string]any)
	if mux["enabled"] != false || mux["concurrency"].(float64) != -1 {
		t.Fatal("mux should be disabled by default", mux)
	}
	server := tunnel["settings"].(map[string]any)["vnext"].([]any)[0].(map[string]any)
	if server["address"] != "example.com" || server["port"].(float64) != 21432 {
		t.Fatal("bad upstream", server)
	}
	header := tunnel["streamSettings"].(map[string]any)["tcpSettings"].(map[string]any)["header"].(map[string]any)
	path := header["request"].(map[string]any)["path"].([]any)
	if header["type"] != "http" || path[0] != "/aVerySecretPath" {
		t.Fatal("bad camouflage header", header)
	}
	if _, has := tunnel["sendThrough"]; has {
		t.Fatal("empty sendThrough should be omitted")
	}
}

func TestRelayRuleOrder(t *testing.T) {
	c := configAdapter.RenderRelay(defaultRelay(), configAdapter.DefaultRenderEnv())
	rules := c.Routing.Rules

	type want struct {
		out  string
		cond []string
	}
	wants := []want{
		{"blocked", []string{"geoip:private"}},
		{"blocked", []string{"geosite:private"}},
		{"blocked", []string{"bittorrent"}},
		{"direct", []string{`regexp:^.+\.ir$`}},
		{"direct", []string{"ext:iran.dat:ir"}},
		{"direct", []string{"ext:iran.dat:other"}},
		{"blocked", []string{"ext:iran.dat:ads"}},
		{"tunnel", nil},
	}
	if len(rules) != len(wants) {
		t.Fatal("want 8 rules, got", len(rules))
	}

	for i, r := range rules {
		w := wants[i]
		if r.OutboundTag != w.out || r.Type != "field" {
			t.Fatalf("rule %d: got %s want %s", i, r.OutboundTag, w.out)
		}
		var cond []string
		switch {
		case len(r.IP) > 0:
			cond = r.IP
		case len(r.Domain) > 0:
			cond = r.Domain
		case len(r.Protocol) > 0:
			cond = r.Protocol
		}
		if !reflect.DeepEqual(cond, w.cond) {
			t.Fatalf("rule %d: got %v want %v", i, cond, w.cond)
		}
	}
	if !rules[7].IsCatchAll() {
		t.Fatal("last rule must be catch-all")
	}
	if c.Routing.DomainStrategy != "IPIfNonMatch" {
		t.Fatal(c.Routing.DomainStrategy)
	}
}

func TestRelayMuxAndSendThrough(t *testing.T) {
	p := defaultRelay()
	p.MuxConcurrency = 8
	p.SendThrough = "10.0.0.2"
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	c := configAdapter.RenderRelay(p, configAdapter.DefaultRenderEnv())
	tunnel := c.Outbounds[0]
	if !tunnel.Mux.Enabled || tunnel.Mux.Concurrency != 8 {
		t.Fatal("mux not enabled", tunnel.Mux)
	}
	if tunnel.SendThrough != "10.0.0.2" {
		t.Fatal(tunnel.SendThrough)
	}
}

func TestOtherCountry(t *testing.T) {
	env, err := configAdapter.NewRenderEnv("/tmp/log", "/usr/local/share/xray/custom.dat", "gb")
	if err != nil {
		t.Fatal(err)
	}
	c := configAdapter.RenderRelay(defaultRelay(), env)
	if c.Routing.Rules[3].Domain[0] != `regexp:^.+\.uk$` || c.Routing.Rules[4].Domain[0] != "ext:custom.dat:gb" {
		t.Fatal(c.Routing.Rules[3:5])
	}
	if c.Log.Access != "/tmp/log/access.log" {
		t.Fatal(c.Log.Access)
	}

	if _, err := configAdapter.NewRenderEnv("/tmp", "a.dat", "XX"); !errors.Is(err, utils.ErrWrongParameter) {
		t.Fatal("unknown country accepted", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(p *configAdapter.RelayParams){
		"port 0":       func(p *configAdapter.RelayParams) { p.Port = 0 },
		"port big":     func(p *configAdapter.RelayParams) { p.UpstreamPort = 70000 },
		"bad id":       func(p *configAdapter.RelayParams) { p.UpstreamID = "not-a-uuid" },
		"no host":      func(p *configAdapter.RelayParams) { p.UpstreamHost = "" },
		"bad host":     func(p *configAdapter.RelayParams) { p.UpstreamHost = "exa mple.com" },
		"bad path":     func(p *configAdapter.RelayParams) { p.UpstreamPath = "noslash" },
		"mux 0":        func(p *configAdapter.RelayParams) { p.MuxConcurrency = 0 },
		"mux too big":  func(p *configAdapter.RelayParams) { p.MuxConcurrency = 1025 },
		"bad bindaddr": func(p *configAdapter.RelayParams) { p.SendThrough = "example.com" },
	}
	for name, f := range cases {
		p := defaultRelay()
		f(&p)
		if err := p.Validate(); !errors.Is(err, utils.ErrWrongParameter) {
			t.Errorf("%s: expected ErrWrongParameter, got %v", name, err)
		}
	}

	p := defaultRelay()
	p.UpstreamHost = "1.2.3.4"
	p.MuxConcurrency = 1024
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboundDefaults(t *testing.T) {
	p := configAdapter.NewOutboundParams()
	if err := p.Validate(); err != nil {
		t.Fatal(err)
	}
	c := configAdapter.RenderOutbound(p, configAdapter.DefaultRenderEnv())
	if err := c.Check(); err != nil {
		t.Fatal(err)
	}

	in := c.Inbounds[0]
	if in.Port != 21432 || in.Protocol != "vless" {
		t.Fatal(in)
	}
	h := in.Stream.TCPSettings.Header
	if h.Request.Path[0] != "/aVerySecretPath" || h.Response.Status != "200" {
		t.Fatal("bad header", h.Request, h.Response)
	}
	if c.Outbounds[0].Tag != "direct-out" || c.Outbounds[0].SendThrough != "0.0.0.0" {
		t.Fatal(c.Outbounds[0])
	}

	rules := c.Routing.Rules
	if len(rules) != 2 || rules[0].Protocol[0] != "bittorrent" || rules[0].OutboundTag != "blocked" {
		t.Fatal(rules)
	}
	if !rules[1].IsCatchAll() || rules[1].OutboundTag != "direct-out" {
		t.Fatal(rules[1])
	}

	m := decode(t, c)
	if m["log"].(map[string]any)["loglevel"] != "warning" {
		t.Fatal("bad log section")
	}
}

func TestCheck(t *testing.T) {
	c := configAdapter.RenderRelay(defaultRelay(), configAdapter.DefaultRenderEnv())
	c.Routing.Rules = c.Routing.Rules[:7]
	if _, err := configAdapter.Encode(&c); !errors.Is(err, xray.ErrNoCatchAll) {
		t.Fatal("missing catch-all accepted", err)
	}

	c = configAdapter.RenderRelay(defaultRelay(), configAdapter.DefaultRenderEnv())
	c.Outbounds = c.Outbounds[:2]
	if err := c.Check(); !errors.Is(err, xray.ErrNoBlackhole) {
		t.Fatal(err)
	}
}

func TestWriteConf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "etc", "xray", "config.json")
	c := configAdapter.RenderOutbound(configAdapter.NewOutboundParams(), configAdapter.DefaultRenderEnv())

	if err := configAdapter.WriteConf(path, &c); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o644 {
		t.Fatal("want 0644, got", fi.Mode().Perm())
	}
	bs, _ := os.ReadFile(path)
	if !json.Valid(bs) {
		t.Fatal("written file is not json")
	}
}

func TestShareLinks(t *testing.T) {
	p := defaultRelay()
	link := configAdapter.RelayShareLink(p, "1.2.3.4", "relay")
	if !strings.HasPrefix(link, "vmess://") {
		t.Fatal(link)
	}
	bs, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(link, "vmess://"))
	if err != nil {
		t.Fatal(err)
	}
	var vc configAdapter.V2rayNConfig
	if err := json.Unmarshal(bs, &vc); err != nil {
		t.Fatal(err)
	}
	if vc.Add != "1.2.3.4" || vc.Port != "9921" || vc.ID != p.ServerID || vc.Net != "tcp" {
		t.Fatal(vc)
	}

	op := configAdapter.NewOutboundParams()
	op.ClientID = otherUUID
	u, err := url.Parse(configAdapter.OutboundShareLink(op, "5.6.7.8", "out"))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if u.Scheme != "vless" || u.User.Username() != otherUUID || u.Host != "5.6.7.8:21432" || u.Fragment != "out" {
		t.Fatal(u)
	}
	if q.Get("headerType") != "http" || q.Get("path") != "/aVerySecretPath" || q.Get("type") != "tcp" {
		t.Fatal(q)
	}
}
