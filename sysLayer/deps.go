package sysLayer

import (
	"context"
	"errors"

	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
)

var ErrDependency = errors.New("dependency installation failed")

// Dependency is a package that provides the Sentinel executable.
type Dependency struct {
	Package  string `toml:"package"`
	Sentinel string `toml:"sentinel"`
}

// Installer installs missing dependencies with the detected package manager.
type Installer struct {
	Host Host
	PM   PackageManager

	updated bool
}

// Ensure makes dep.Sentinel resolvable on PATH. It does nothing if it already is.
func (in *Installer) Ensure(ctx context.Context, dep Dependency) error {
	if _, err := in.Host.LookPath(dep.Sentinel); err == nil {
		if ce := utils.CanLogDebug("dependency present"); ce != nil {
			ce.Write(zap.String("sentinel", dep.Sentinel))
		}
		return nil
	}

	if ce := utils.CanLogInfo("installing dependency"); ce != nil {
		ce.Write(zap.String("package", dep.Package), zap.String("pkgmgr", in.PM.Name))
	}

	if len(in.PM.Update) > 0 && !in.updated {
		if _, err := in.Host.Run(ctx, in.PM.Update[0], in.PM.Update[1:]...); err != nil {
			if ce := utils.CanLogWarn("package index update failed"); ce != nil {
				ce.Write(zap.Error(err))
			}
		}
		in.updated = true
	}

	cmd := in.PM.InstallCmd(dep.Package)
	if _, err := in.Host.Run(ctx, cmd[0], cmd[1:]...); err != nil {
		return utils.ErrInErr{ErrDesc: dep.Package, ErrDetail: ErrDependency, Data: err.Error()}
	}

	if _, err := in.Host.LookPath(dep.Sentinel); err != nil {
		return utils.ErrInErr{ErrDesc: dep.Package + " installed but " + dep.Sentinel + " still not found", ErrDetail: ErrDependency}
	}
	return nil
}

// EnsureAll stops at the first failure.
func (in *Installer) EnsureAll(ctx context.Context, deps []Dependency) error {
	for _, d := range deps {
		if err := in.Ensure(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

var DefaultDependencies = []Dependency{
	{Package: "curl", Sentinel: "curl"},
	{Package: "unzip", Sentinel: "unzip"},
	{Package: "qrencode", Sentinel: "qrencode"},
}
