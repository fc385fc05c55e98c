package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
)

const (
	DefaultUnitDir = "/etc/systemd/system"
	DefaultWait    = 2 * time.Second
)

var (
	ErrServiceInactive = errors.New("service is not active after start")
	ErrNotRegistered   = errors.New("service must be registered before it is started")
)

// Registrar 通过 systemctl 管理 unit. 同一个 Registrar 上, Start 只能在 Register 之后调用,
// 这样 systemd 一定已经 daemon-reload 过新写入的 unit 文件.
type Registrar struct {
	Runner  utils.Runner
	UnitDir string
	Wait    time.Duration

	registered map[string]bool
}

func NewRegistrar(r utils.Runner) *Registrar {
	return &Registrar{Runner: r, UnitDir: DefaultUnitDir, Wait: DefaultWait}
}

func (r *Registrar) UnitPath(name string) string {
	return filepath.Join(r.UnitDir, name+".service")
}

// Register 写入 unit 文件, 然后 daemon-reload 和 enable.
func (r *Registrar) Register(ctx context.Context, u Unit) error {
	bs, err := Render(u)
	if err != nil {
		return err
	}
	p := r.UnitPath(u.Name)
	if err = utils.WriteFileAtomic(p, bs, 0644); err != nil {
		return err
	}
	if ce := utils.CanLogInfo("unit written"); ce != nil {
		ce.Write(zap.String("path", p), zap.Bool("privileges", u.Privileges.Active))
	}

	err = utils.ExecCmdList(ctx, r.Runner, [][]string{
		{"systemctl", "daemon-reload"},
		{"systemctl", "enable", u.Name},
	})
	if err != nil {
		return err
	}

	if r.registered == nil {
		r.registered = make(map[string]bool)
	}
	r.registered[u.Name] = true
	return nil
}

// Start restarts the unit, waits r.Wait and checks it is still active.
func (r *Registrar) Start(ctx context.Context, name string) error {
	if !r.registered[name] {
		return utils.ErrInErr{ErrDesc: name, ErrDetail: ErrNotRegistered}
	}
	if _, err := r.Runner.Run(ctx, "systemctl", "restart", name); err != nil {
		return utils.ErrInErr{ErrDesc: "restart " + name + " failed", ErrDetail: ErrServiceInactive, Data: err}
	}

	if r.Wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Wait):
		}
	}

	if _, err := r.Runner.Run(ctx, "systemctl", "is-active", "--quiet", name); err != nil {
		status, _ := r.Runner.Run(ctx, "systemctl", "status", "--no-pager", "--lines=10", name)
		if ce := utils.CanLogErr("service inactive"); ce != nil {
			ce.Write(zap.String("name", name), zap.String("status", strings.TrimSpace(string(status))))
		}
		return utils.ErrInErr{ErrDesc: name, ErrDetail: ErrServiceInactive}
	}

	if ce := utils.CanLogInfo("service active"); ce != nil {
		ce.Write(zap.String("name", name))
	}
	return nil
}
