package service

import (
	"context"
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

type fakeRunner struct {
	ran  []string
	fail map[string]bool
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	c := strings.Join(append([]string{name}, args...), " ")
	f.ran = append(f.ran, c)
	if f.fail[c] {
		return []byte("inactive"), errors.New("exit status 3")
	}
	return nil, nil
}

var privilegeLines = []string{
	"CapabilityBoundingSet=CAP_NET_ADMIN CAP_NET_BIND_SERVICE",
	"AmbientCapabilities=CAP_NET_ADMIN CAP_NET_BIND_SERVICE",
	"NoNewPrivileges=true",
}

func testUnit(uid int) Unit {
	return XrayUnit("xray", "/usr/local/bin/xray", "/usr/local/etc/xray/config.json", "/usr/local/share/xray", "nobody", uid)
}

func TestRenderPrivileges(t *testing.T) {
	bs, err := Render(testUnit(0))
	if err != nil {
		t.Fatal(err)
	}
	s := string(bs)
	for _, l := range privilegeLines {
		if !strings.Contains(s, "\n#"+l+"\n") {
			t.Fatalf("root unit should comment %q:\n%s", l, s)
		}
	}

	bs, err = Render(testUnit(65534))
	if err != nil {
		t.Fatal(err)
	}
	s = string(bs)
	for _, l := range privilegeLines {
		if !strings.Contains(s, "\n"+l+"\n") || strings.Contains(s, "#"+l) {
			t.Fatalf("non-root unit should have %q active:\n%s", l, s)
		}
	}

	for _, want := range []string{
		"User=nobody",
		"ExecStart=/usr/local/bin/xray run -config /usr/local/etc/xray/config.json",
		"Restart=on-failure",
		"RestartPreventExitStatus=23",
		"LimitNPROC=10000",
		"LimitNOFILE=1000000",
		"Environment=XRAY_LOCATION_ASSET=/usr/local/share/xray",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(s, want+"\n") {
			t.Fatalf("missing %q:\n%s", want, s)
		}
	}
}

func TestToolUnit(t *testing.T) {
	bs, err := Render(ToolUnit("spoofdpi", "/usr/local/bin/spoofdpi", []string{"-port", "8080"}, "nobody", 65534))
	if err != nil {
		t.Fatal(err)
	}
	s := string(bs)
	if !strings.Contains(s, "ExecStart=/usr/local/bin/spoofdpi -port 8080\n") {
		t.Fatal(s)
	}
	if strings.Contains(s, "Documentation=") || strings.Contains(s, "RestartPreventExitStatus") {
		t.Fatal("empty fields should be left out", s)
	}
}

func TestRegisterThenStart(t *testing.T) {
	r := &fakeRunner{}
	reg := NewRegistrar(r)
	reg.UnitDir = t.TempDir()
	reg.Wait = 0

	if err := reg.Start(context.Background(), "xray"); !errors.Is(err, ErrNotRegistered) {
		t.Fatal("start before register must fail", err)
	}
	if len(r.ran) != 0 {
		t.Fatal(r.ran)
	}

	if err := reg.Register(context.Background(), testUnit(0)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(reg.UnitDir, "xray.service")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Start(context.Background(), "xray"); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"systemctl daemon-reload",
		"systemctl enable xray",
		"systemctl restart xray",
		"systemctl is-active --quiet xray",
	}
	if strings.Join(r.ran, "|") != strings.Join(want, "|") {
		t.Fatal(r.ran)
	}
}

func TestStartInactive(t *testing.T) {
	r := &fakeRunner{fail: map[string]bool{"systemctl is-active --quiet xray": true}}
	reg := NewRegistrar(r)
	reg.UnitDir = t.TempDir()
	reg.Wait = 0

	if err := reg.Register(context.Background(), testUnit(0)); err != nil {
		t.Fatal(err)
	}
	if err := reg.Start(context.Background(), "xray"); !errors.Is(err, ErrServiceInactive) {
		t.Fatal("expected ErrServiceInactive, got", err)
	}
}

func TestRegisterReloadFails(t *testing.T) {
	r := &fakeRunner{fail: map[string]bool{"systemctl daemon-reload": true}}
	reg := NewRegistrar(r)
	reg.UnitDir = t.TempDir()

	if err := reg.Register(context.Background(), testUnit(0)); err == nil {
		t.Fatal("reload failure ignored")
	}
	if err := reg.Start(context.Background(), "xray"); !errors.Is(err, ErrNotRegistered) {
		t.Fatal(err)
	}
}

func TestPrepareLogDir(t *testing.T) {
	cu, err := user.Current()
	if err != nil {
		t.Skip(err)
	}
	acc, err := LookupAccount(cu.Username)
	if err != nil {
		t.Skip(err)
	}
	if strconv.Itoa(acc.UID) != cu.Uid {
		t.Fatal(acc, cu.Uid)
	}

	dir := filepath.Join(t.TempDir(), "log", "xray")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "access.log"), []byte("old"), 0644)

	if err := PrepareLogDir(dir, acc, "access.log", "error.log"); err != nil {
		t.Fatal(err)
	}
	bs, _ := os.ReadFile(filepath.Join(dir, "access.log"))
	if string(bs) != "old" {
		t.Fatal("existing log truncated")
	}
	if _, err := os.Stat(filepath.Join(dir, "error.log")); err != nil {
		t.Fatal(err)
	}

	if _, err := LookupAccount("no-such-user-xrelay"); err == nil {
		t.Fatal("unknown user accepted")
	}
}
