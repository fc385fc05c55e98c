package utils

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
)

// GivenFlags 记录命令行上显式给出的参数, 配置文件中的同名项不能覆盖它们.
var GivenFlags map[string]*flag.Flag

// ParseFlags calls flag.Parse and records the given flags in GivenFlags.
func ParseFlags() {
	flag.Parse()
	GivenFlags = make(map[string]*flag.Flag)
	flag.Visit(func(f *flag.Flag) {
		GivenFlags[f.Name] = f
	})
}

// GetPurgedTomlStr 把 v 编码为 toml, 并移除零值的项 (= "", = false, = 0, = []),
// 用于打印示例文件.
func GetPurgedTomlStr(v any) (string, error) {
	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, l := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if isZeroTomlLine(l) {
			continue
		}
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func isZeroTomlLine(l string) bool {
	for _, suffix := range []string{` = ""`, ` = false`, ` = 0`, ` = []`} {
		if strings.HasSuffix(l, suffix) {
			return true
		}
	}
	return false
}

// WrapFuncForPromptUI 把 govalidator 风格的 func(string) bool 转为 promptui 的 Validate.
func WrapFuncForPromptUI(f func(string) bool) func(string) error {
	return func(s string) error {
		if f(s) {
			return nil
		}
		return ErrInvalidData
	}
}

// SignalContext 返回一个在收到 SIGINT 或 SIGTERM 时取消的 context.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM) //os.Kill cannot be trapped
}
