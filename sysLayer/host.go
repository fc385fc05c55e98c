/*
Package sysLayer probes the host that xrelay runs on and installs helper packages.

Everything here reaches the system through the Host interface, so probing can be tested
with a fake host.
*/
package sysLayer

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/e1732a364fed/xrelay/utils"
)

// Host is the view of the running system that the prober and installer need.
type Host interface {
	utils.Runner

	GOOS() string

	// Machine returns the hardware name, as printed by uname -m.
	Machine() (string, error)

	Euid() int
	ReadFile(name string) ([]byte, error)
	LookPath(file string) (string, error)
}

// LocalHost is the Host backed by the current process.
type LocalHost struct {
	utils.ExecRunner
}

func (LocalHost) GOOS() string { return runtime.GOOS }

func (LocalHost) Euid() int { return os.Geteuid() }

func (LocalHost) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (LocalHost) LookPath(file string) (string, error) { return exec.LookPath(file) }
