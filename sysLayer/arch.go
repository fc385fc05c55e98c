package sysLayer

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// uname -m 到 xray 发布包架构名的映射, 与 Xray-install 的 install-release.sh 一致.
var machineToArch = map[string]string{
	"i386":     "32",
	"i686":     "32",
	"x86_64":   "64",
	"amd64":    "64",
	"armv5tel": "arm32-v5",
	"armv6l":   "arm32-v6",
	"armv7":    "arm32-v7a",
	"armv7l":   "arm32-v7a",
	"armv8":    "arm64-v8a",
	"aarch64":  "arm64-v8a",
	"mips":     "mips32",
	"mipsle":   "mips32le",
	"mips64":   "mips64",
	"mips64le": "mips64le",
	"ppc64":    "ppc64",
	"ppc64le":  "ppc64le",
	"riscv64":  "riscv64",
	"s390x":    "s390x",
}

const (
	ArchARM32SoftFloat = "arm32-v5"
	cpuinfoPath        = "/proc/cpuinfo"
)

// MapMachine maps a uname -m string to a release architecture tag, without
// looking at cpu features. ok is false for unsupported machines.
func MapMachine(machine string) (tag string, ok bool) {
	tag, ok = machineToArch[strings.TrimSpace(machine)]
	return
}

// DetectArch returns the release architecture tag of h.
//
// ARM32 hosts without the vfp feature fall back to the soft-float build; a mips64
// host whose lscpu reports little endian gets the mips64le build.
func DetectArch(ctx context.Context, h Host) (machine, tag string, err error) {
	machine, err = h.Machine()
	if err != nil {
		return "", "", utils.ErrInErr{ErrDesc: "uname failed", ErrDetail: ErrUnsupportedArch, Data: err.Error()}
	}

	tag, ok := MapMachine(machine)
	if !ok {
		return machine, "", utils.ErrInErr{ErrDesc: "unsupported architecture", ErrDetail: ErrUnsupportedArch, Data: machine}
	}

	switch machine {
	case "armv6l", "armv7", "armv7l":
		cpuinfo, _ := h.ReadFile(cpuinfoPath)
		if !HasCPUFeature(cpuinfo, "vfp") {
			if ce := utils.CanLogInfo("no vfp in cpu features, using soft-float build"); ce != nil {
				ce.Write(zap.String("machine", machine))
			}
			tag = ArchARM32SoftFloat
		}
	case "mips64":
		out, lerr := h.Run(ctx, "lscpu")
		if lerr == nil && IsLittleEndian(out) {
			tag = "mips64le"
		}
	}

	return
}

// HasCPUFeature reports whether any "Features" line of a /proc/cpuinfo dump contains
// the given flag as a whole word.
func HasCPUFeature(cpuinfo []byte, flag string) bool {
	sc := bufio.NewScanner(bytes.NewReader(cpuinfo))
	for sc.Scan() {
		line := sc.Text()
		k, v, found := strings.Cut(line, ":")
		if !found || strings.TrimSpace(k) != "Features" {
			continue
		}
		if slices.Contains(strings.Fields(v), flag) {
			return true
		}
	}
	return false
}

// IsLittleEndian parses the "Byte Order" line of lscpu output.
func IsLittleEndian(lscpu []byte) bool {
	sc := bufio.NewScanner(bytes.NewReader(lscpu))
	for sc.Scan() {
		k, v, found := strings.Cut(sc.Text(), ":")
		if found && strings.TrimSpace(k) == "Byte Order" {
			return strings.TrimSpace(v) == "Little Endian"
		}
	}
	return false
}
