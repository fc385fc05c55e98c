package sysLayer

import (
	"context"
	"errors"
	"strings"

	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedOS    = errors.New("unsupported operating system")
	ErrUnsupportedArch  = errors.New("unsupported architecture")
	ErrNoInitSystem     = errors.New("systemd not found")
	ErrNoPackageManager = errors.New("no supported package manager")
	ErrNotRoot          = errors.New("must be run as root")
)

// IsEnvironmentErr reports whether err is one of the unsupported-platform errors.
func IsEnvironmentErr(err error) bool {
	for _, e := range []error{ErrUnsupportedOS, ErrUnsupportedArch, ErrNoInitSystem, ErrNoPackageManager, ErrNotRoot} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

const InitSystemd = "systemd"

// Platform is what the prober learned about the host.
type Platform struct {
	Machine        string
	Arch           string
	Init           string
	PackageManager PackageManager
}

// Probe checks that h is a supported host and returns its platform facts.
// It only reads from the host.
func Probe(ctx context.Context, h Host) (p Platform, err error) {
	if goos := h.GOOS(); goos != "linux" {
		return p, utils.ErrInErr{ErrDesc: "only linux is supported", ErrDetail: ErrUnsupportedOS, Data: goos}
	}

	if h.Euid() != 0 {
		return p, ErrNotRoot
	}

	p.Machine, p.Arch, err = DetectArch(ctx, h)
	if err != nil {
		return
	}

	if !HasSystemd(h) {
		return p, ErrNoInitSystem
	}
	p.Init = InitSystemd

	var ok bool
	if p.PackageManager, ok = DetectPackageManager(h); !ok {
		return p, ErrNoPackageManager
	}

	if ce := utils.CanLogInfo("platform detected"); ce != nil {
		ce.Write(
			zap.String("machine", p.Machine),
			zap.String("arch", p.Arch),
			zap.String("init", p.Init),
			zap.String("pkgmgr", p.PackageManager.Name),
		)
	}
	return
}

// HasSystemd 要求 pid 1 是 systemd 且 systemctl 在 PATH 中.
func HasSystemd(h Host) bool {
	comm, err := h.ReadFile("/proc/1/comm")
	if err != nil || strings.TrimSpace(string(comm)) != InitSystemd {
		return false
	}
	_, err = h.LookPath("systemctl")
	return err == nil
}
