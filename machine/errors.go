package machine

import (
	"errors"

	"github.com/e1732a364fed/xrelay/netLayer"
	"github.com/e1732a364fed/xrelay/service"
	"github.com/e1732a364fed/xrelay/sysLayer"
	"github.com/e1732a364fed/xrelay/utils"
)

// 进程退出码
const (
	ExitOK          = 0
	ExitOther       = 1
	ExitEnvironment = 2
	ExitDependency  = 3
	ExitDownload    = 4
	ExitService     = 5
)

// ExitCode maps an error returned by M to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case sysLayer.IsEnvironmentErr(err):
		return ExitEnvironment
	case errors.Is(err, sysLayer.ErrDependency):
		return ExitDependency
	case errors.Is(err, utils.ErrDownload),
		errors.Is(err, netLayer.ErrChecksum),
		errors.Is(err, netLayer.ErrDomainList),
		errors.Is(err, netLayer.ErrUnverified),
		errors.Is(err, utils.ErrFileNotInArchive):
		return ExitDownload
	case errors.Is(err, service.ErrServiceInactive), errors.Is(err, service.ErrNotRegistered):
		return ExitService
	}
	return ExitOther
}
