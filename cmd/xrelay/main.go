package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/debug"

	"github.com/e1732a364fed/xrelay/configAdapter"
	"github.com/e1732a364fed/xrelay/configAdapter/xray"
	"github.com/e1732a364fed/xrelay/machine"
	"github.com/e1732a364fed/xrelay/sysLayer"
	"github.com/e1732a364fed/xrelay/utils"
	"github.com/manifoldco/promptui"
	"go.uber.org/zap"
)

const (
	roleObfs = "obfs"
)

var (
	roleName    string
	answersFile string
	dryRun      bool
	publicHost  string

	proxyURL     string
	xrayVersion  string
	countryCode  string
	serviceUser  string
	errorStyler  = promptui.Styler(promptui.FGRed, promptui.FGBold)
	successStyle = promptui.Styler(promptui.FGGreen)
)

func init() {
	flag.StringVar(&roleName, "role", "", "install without prompts: relay, outbound or obfs")
	flag.StringVar(&answersFile, "answers", "", "toml answers file used with -role, see -ea")
	flag.BoolVar(&dryRun, "dry", false, "print the rendered xray config of -role and exit, the system is not touched")
	flag.StringVar(&publicHost, "host", "", "public address put in the share link, default is found by dns")

	flag.StringVar(&proxyURL, "proxy", "", "proxy used for downloads, overrides "+machine.EnvProxy)
	flag.StringVar(&xrayVersion, "xv", "", "xray version to install, overrides "+machine.EnvVersion)
	flag.StringVar(&countryCode, "country", "", "domestic country code, overrides "+machine.EnvCountry)
	flag.StringVar(&serviceUser, "user", "", "user the services run as, overrides "+machine.EnvUser)

	flag.IntVar(&utils.LogLevel, "ll", utils.DefaultLL, "log level,0=debug, 1=info, 2=warning, 3=error, 4=fatal")
	flag.StringVar(&utils.LogOutFileName, "lf", "", "output file for log, default is "+machine.InstallerLogName+" in the xray log dir")
}

func main() {
	os.Exit(mainFunc())
}

func mainFunc() (result int) {
	defer func() {
		if r := recover(); r != nil {
			if ce := utils.CanLogErr("Captured panic!"); ce != nil {
				ce.Write(
					zap.Any("err:", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
			log.Println("panic captured!", r, "\n", string(debug.Stack()))
			result = machine.ExitOther
		}
	}()

	utils.ParseFlags()

	if runExitCommands() {
		return
	}
	return runMain(os.Stdout)
}

// runMain 在解析完命令行参数后运行. -dry 时 stdout 上只有渲染出的配置, 可以直接重定向为配置文件.
func runMain(stdout io.Writer) int {
	if !dryRun {
		printVersion(stdout)
	}

	s := machine.DefaultSettings()
	var ac machine.AnswersConf
	if answersFile != "" {
		var err error
		if ac, err = machine.LoadAnswers(answersFile); err != nil {
			return fail(err)
		}
		ac.Apply(&s)
	}
	applyFlags(&s)

	if dryRun {
		return fail(printDry(stdout, s, roleName, ac))
	}

	if utils.GivenFlags["lf"] == nil && utils.LogOutFileName == "" {
		utils.LogOutFileName = s.InstallerLogPath()
	}
	utils.InitLog()

	ctx, cancel := utils.SignalContext(context.Background())
	defer cancel()

	m := machine.New(s, sysLayer.LocalHost{})
	m.PublicAddr = publicHost
	m.AddStepCallback(func(step string) {
		fmt.Printf("==> %s\n", step)
	})

	return fail(run(ctx, m, ac, promptAsker{}))
}

func applyFlags(s *machine.Settings) {
	if utils.GivenFlags["proxy"] != nil {
		s.Proxy = proxyURL
	}
	if utils.GivenFlags["xv"] != nil {
		s.Version = xrayVersion
	}
	if utils.GivenFlags["country"] != nil {
		s.Country = countryCode
	}
	if utils.GivenFlags["user"] != nil {
		s.User = serviceUser
	}
}

// run 先准备环境, 然后按 -role 直接安装, 或进入交互菜单.
func run(ctx context.Context, m *machine.M, ac machine.AnswersConf, a asker) error {
	if err := m.Prepare(ctx); err != nil {
		return err
	}
	if roleName == "" {
		err := runCli(ctx, m, a)
		if errors.Is(err, errExit) {
			return nil
		}
		return err
	}
	return runRole(ctx, m, roleName, ac)
}

func runRole(ctx context.Context, m *machine.M, role string, ac machine.AnswersConf) error {
	switch role {
	case configAdapter.RoleRelay.String():
		if ac.Relay == nil {
			return missingAnswers(role)
		}
		r, err := m.InstallRelay(ctx, *ac.Relay)
		if err != nil {
			return err
		}
		printResult(m, r)
	case configAdapter.RoleOutbound.String():
		p := configAdapter.NewOutboundParams()
		if ac.Outbound != nil {
			p = *ac.Outbound
		}
		r, err := m.InstallOutbound(ctx, p)
		if err != nil {
			return err
		}
		printResult(m, r)
	case roleObfs:
		if err := m.InstallObfsTool(ctx); err != nil {
			return err
		}
		fmt.Printf("%s installed and started\n", m.ObfsTool.Name)
	default:
		return utils.ErrInErr{ErrDesc: "unknown role", ErrDetail: utils.ErrWrongParameter, Data: role}
	}
	return nil
}

func missingAnswers(role string) error {
	return utils.ErrInErr{ErrDesc: "answers file has no [" + role + "] table", ErrDetail: utils.ErrWrongParameter, Data: answersFile}
}

// printDry 渲染配置但不下载, 不写文件, 也不注册服务.
func printDry(w io.Writer, s machine.Settings, role string, ac machine.AnswersConf) error {
	env, err := s.RenderEnv()
	if err != nil {
		return err
	}
	var conf xray.Conf
	switch role {
	case configAdapter.RoleRelay.String():
		if ac.Relay == nil {
			return missingAnswers(role)
		}
		if err = ac.Relay.Validate(); err != nil {
			return err
		}
		conf = configAdapter.RenderRelay(*ac.Relay, env)
	case configAdapter.RoleOutbound.String():
		p := configAdapter.NewOutboundParams()
		if ac.Outbound != nil {
			p = *ac.Outbound
		}
		if err = p.Validate(); err != nil {
			return err
		}
		conf = configAdapter.RenderOutbound(p, env)
	default:
		return utils.ErrInErr{ErrDesc: "-dry needs -role relay or outbound", ErrDetail: utils.ErrWrongParameter, Data: role}
	}
	bs, err := configAdapter.Encode(&conf)
	if err != nil {
		return err
	}
	_, err = w.Write(append(bs, '\n'))
	return err
}

func printResult(m *machine.M, r machine.Result) {
	fmt.Println(successStyle(r.Role.String() + " is running"))
	fmt.Printf("config: %s\n", m.Config)
	fmt.Printf("share link: %s\n", r.ShareLink)
	printQR(os.Stdout, r.ShareLink)
}

// fail 打印错误并给出退出码; err 为 nil 时返回 0.
func fail(err error) int {
	if err == nil {
		return machine.ExitOK
	}
	if ce := utils.CanLogErr("install failed"); ce != nil {
		ce.Write(zap.Error(err))
	}
	fmt.Fprintln(os.Stderr, errorStyler(err.Error()))
	return machine.ExitCode(err)
}
