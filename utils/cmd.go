package utils

import (
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner runs an external command and returns its combined output.
// Components take a Runner instead of calling os/exec so they can be tested.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner is the Runner backed by os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return ExecCmd(ctx, name, args...)
}

func ExecCmd(ctx context.Context, name string, args ...string) (out []byte, err error) {
	cmdStr := name + " " + strings.Join(args, " ")

	if ce := CanLogInfo("run cmd"); ce != nil {
		ce.Write(zap.String("cmd", cmdStr))
	}

	out, err = exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			msg = "<no output>"
		}
		if ce := CanLogErr("run cmd failed"); ce != nil {
			ce.Write(zap.String("cmd", cmdStr), zap.Error(err), zap.String("output", msg))
		}
		err = ErrInErr{ErrDesc: cmdStr, ErrDetail: err, Data: msg}
	}

	return
}

// ExecCmdList runs the commands in order and stops at the first failure.
func ExecCmdList(ctx context.Context, r Runner, cmds [][]string) (err error) {
	for _, c := range cmds {
		if len(c) == 0 {
			continue
		}
		if _, err = r.Run(ctx, c[0], c[1:]...); err != nil {
			return
		}
	}
	return
}
