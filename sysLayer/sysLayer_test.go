package sysLayer

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

type fakeHost struct {
	goos    string
	machine string
	euid    int
	files   map[string]string
	path    map[string]bool

	// outputs maps a command name to its output
	outputs map[string]string

	// onRun is called after each command; it may change path to simulate installs
	onRun func(h *fakeHost, name string, args []string)
	ran   [][]string
}

func newFakeHost(machine string) *fakeHost {
	return &fakeHost{
		goos:    "linux",
		machine: machine,
		files: map[string]string{
			"/proc/1/comm":  "systemd\n",
			"/proc/cpuinfo": "processor\t: 0\nFeatures\t: half thumb fastmult vfp edsp neon vfpv3 tls vfpv4 idiva idivt\n",
		},
		path:    map[string]bool{"systemctl": true, "apt": true},
		outputs: map[string]string{},
	}
}

func (h *fakeHost) GOOS() string             { return h.goos }
func (h *fakeHost) Machine() (string, error) { return h.machine, nil }
func (h *fakeHost) Euid() int                { return h.euid }

func (h *fakeHost) ReadFile(name string) ([]byte, error) {
	s, ok := h.files[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(s), nil
}

func (h *fakeHost) LookPath(file string) (string, error) {
	if h.path[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found")
}

func (h *fakeHost) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	h.ran = append(h.ran, append([]string{name}, args...))
	if h.onRun != nil {
		h.onRun(h, name, args)
	}
	return []byte(h.outputs[name]), nil
}

func TestMapMachine(t *testing.T) {
	for machine, want := range machineToArch {
		got, ok := MapMachine(machine)
		if !ok || got != want {
			t.Fatalf("%s: got %q, want %q", machine, got, want)
		}
	}

	for _, machine := range []string{"", "sparc64", "alpha", "armv4", "x86", "AMD64", "loongarch64"} {
		if tag, ok := MapMachine(machine); ok {
			t.Fatalf("%q should be unsupported, got %q", machine, tag)
		}
	}
}

func TestProbeSupportedArchs(t *testing.T) {
	for machine, want := range machineToArch {
		h := newFakeHost(machine)
		p, err := Probe(context.Background(), h)
		if err != nil {
			t.Fatalf("%s: %v", machine, err)
		}
		if p.Arch != want {
			t.Fatalf("%s: got %s want %s", machine, p.Arch, want)
		}
		if p.PackageManager.Name != "apt" || p.Init != InitSystemd {
			t.Fatal("unexpected platform", p)
		}
		if machine != "mips64" && len(h.ran) != 0 {
			t.Fatal("probe must not run commands for", machine, h.ran)
		}
	}
}

func TestProbeUnsupportedArch(t *testing.T) {
	h := newFakeHost("sparc64")
	_, err := Probe(context.Background(), h)
	if !errors.Is(err, ErrUnsupportedArch) {
		t.Fatal("expected ErrUnsupportedArch, got", err)
	}
	if !IsEnvironmentErr(err) {
		t.Fatal("should be an environment error")
	}
	if len(h.ran) != 0 {
		t.Fatal("no command should have been run", h.ran)
	}
}

func TestARM32HardFloat(t *testing.T) {
	for _, machine := range []string{"armv6l", "armv7", "armv7l"} {
		h := newFakeHost(machine)
		_, tag, err := DetectArch(context.Background(), h)
		if err != nil {
			t.Fatal(err)
		}
		if tag == ArchARM32SoftFloat {
			t.Fatal(machine, "with vfp should not be downgraded")
		}

		h.files["/proc/cpuinfo"] = "processor\t: 0\nFeatures\t: half thumb fastmult edsp\n"
		_, tag, err = DetectArch(context.Background(), h)
		if err != nil {
			t.Fatal(err)
		}
		if tag != ArchARM32SoftFloat {
			t.Fatal(machine, "without vfp should be soft-float, got", tag)
		}
	}
}

func TestHasCPUFeature(t *testing.T) {
	// vfpv3 alone is not vfp
	if HasCPUFeature([]byte("Features\t: vfpv3 neon\n"), "vfp") {
		t.Fatal("vfpv3 matched vfp")
	}
	if HasCPUFeature([]byte("flags\t: vfp\n"), "vfp") {
		t.Fatal("only Features lines count")
	}
}

func TestMips64Endian(t *testing.T) {
	h := newFakeHost("mips64")
	h.outputs["lscpu"] = "Architecture:        mips64\nByte Order:          Big Endian\n"
	_, tag, _ := DetectArch(context.Background(), h)
	if tag != "mips64" {
		t.Fatal("big endian mips64 got", tag)
	}

	h.outputs["lscpu"] = "Architecture:        mips64\nByte Order:          Little Endian\n"
	_, tag, _ = DetectArch(context.Background(), h)
	if tag != "mips64le" {
		t.Fatal("little endian mips64 got", tag)
	}
}

func TestProbeFailures(t *testing.T) {
	h := newFakeHost("x86_64")
	h.goos = "darwin"
	if _, err := Probe(context.Background(), h); !errors.Is(err, ErrUnsupportedOS) {
		t.Fatal(err)
	}

	h = newFakeHost("x86_64")
	h.euid = 1000
	if _, err := Probe(context.Background(), h); !errors.Is(err, ErrNotRoot) {
		t.Fatal(err)
	}

	h = newFakeHost("x86_64")
	h.files["/proc/1/comm"] = "init\n"
	if _, err := Probe(context.Background(), h); !errors.Is(err, ErrNoInitSystem) {
		t.Fatal(err)
	}

	h = newFakeHost("x86_64")
	delete(h.path, "systemctl")
	if _, err := Probe(context.Background(), h); !errors.Is(err, ErrNoInitSystem) {
		t.Fatal(err)
	}

	h = newFakeHost("x86_64")
	delete(h.path, "apt")
	if _, err := Probe(context.Background(), h); !errors.Is(err, ErrNoPackageManager) {
		t.Fatal(err)
	}

	h.path["yum"] = true
	h.path["dnf"] = true
	p, err := Probe(context.Background(), h)
	if err != nil {
		t.Fatal(err)
	}
	if p.PackageManager.Name != "dnf" {
		t.Fatal("dnf should be preferred over yum, got", p.PackageManager.Name)
	}
}

func countInstalls(ran [][]string) (n int) {
	for _, c := range ran {
		if strings.Contains(strings.Join(c, " "), "install") {
			n++
		}
	}
	return
}

func TestEnsureIdempotent(t *testing.T) {
	h := newFakeHost("x86_64")
	h.onRun = func(h *fakeHost, name string, args []string) {
		if name == "apt" && len(args) >= 2 && args[len(args)-2] == "install" {
			h.path[args[len(args)-1]] = true
		}
	}
	pm, _ := DetectPackageManager(h)
	in := &Installer{Host: h, PM: pm}

	dep := Dependency{Package: "unzip", Sentinel: "unzip"}

	if err := in.Ensure(context.Background(), dep); err != nil {
		t.Fatal(err)
	}
	if countInstalls(h.ran) != 1 {
		t.Fatal("first call should install once", h.ran)
	}

	if err := in.Ensure(context.Background(), dep); err != nil {
		t.Fatal(err)
	}
	if countInstalls(h.ran) != 1 {
		t.Fatal("second call must not invoke the package manager", h.ran)
	}

	// apt update only once per installer
	if err := in.Ensure(context.Background(), Dependency{Package: "curl", Sentinel: "curl"}); err != nil {
		t.Fatal(err)
	}
	updates := 0
	for _, c := range h.ran {
		if strings.Join(c, " ") == "apt update" {
			updates++
		}
	}
	if updates != 1 {
		t.Fatal("apt update should run exactly once, ran", updates)
	}
}

func TestEnsurePresentSentinel(t *testing.T) {
	h := newFakeHost("x86_64")
	h.path["qrencode"] = true
	in := &Installer{Host: h, PM: KnownPackageManagers[0]}

	if err := in.Ensure(context.Background(), Dependency{Package: "qrencode", Sentinel: "qrencode"}); err != nil {
		t.Fatal(err)
	}
	if len(h.ran) != 0 {
		t.Fatal("nothing should run when the sentinel exists", h.ran)
	}
}

func TestEnsureFailsWhenSentinelStillMissing(t *testing.T) {
	h := newFakeHost("x86_64")
	in := &Installer{Host: h, PM: KnownPackageManagers[0]}

	err := in.Ensure(context.Background(), Dependency{Package: "qrencode", Sentinel: "qrencode"})
	if !errors.Is(err, ErrDependency) {
		t.Fatal("expected ErrDependency, got", err)
	}
}
