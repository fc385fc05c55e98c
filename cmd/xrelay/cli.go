package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/asaskevich/govalidator"
	"github.com/e1732a364fed/xrelay/configAdapter"
	"github.com/e1732a364fed/xrelay/machine"
	"github.com/e1732a364fed/xrelay/netLayer"
	"github.com/e1732a364fed/xrelay/utils"
	"github.com/manifoldco/promptui"
)

var errExit = errors.New("exit chosen")

type CliCmd struct {
	Name string
	F    func(ctx context.Context, m *machine.M, a asker) error
}

func (cc CliCmd) String() string {
	return cc.Name
}

// 菜单固定为这四项
var cliCmdList = []CliCmd{
	{"安装国内中转机 (relay)", func(ctx context.Context, m *machine.M, a asker) error {
		p, err := askRelayParams(a)
		if err != nil {
			return err
		}
		r, err := m.InstallRelay(ctx, p)
		if err != nil {
			return err
		}
		printResult(m, r)
		return nil
	}},
	{"安装国外出口机 (outbound)", func(ctx context.Context, m *machine.M, a asker) error {
		p, err := askOutboundParams(a)
		if err != nil {
			return err
		}
		r, err := m.InstallOutbound(ctx, p)
		if err != nil {
			return err
		}
		printResult(m, r)
		return nil
	}},
	{"安装 DPI 规避工具", func(ctx context.Context, m *machine.M, a asker) error {
		if err := askObfsVerification(a, &m.ObfsTool); err != nil {
			return err
		}
		if err := m.InstallObfsTool(ctx); err != nil {
			return err
		}
		fmt.Printf("%s 已安装并启动\n", m.ObfsTool.Name)
		return nil
	}},
	{"退出", func(context.Context, *machine.M, asker) error {
		return errExit
	}},
}

// asker 抽象了交互提问, 以便测试时用脚本代替终端.
type asker interface {
	// Ask 返回用户输入; 直接回车时返回 def.
	Ask(label, def string, validate func(string) error) (string, error)
	Confirm(label string) (bool, error)
	Choose(label string, items []CliCmd) (int, error)
}

type promptAsker struct{}

func (promptAsker) Ask(label, def string, validate func(string) error) (string, error) {
	p := promptui.Prompt{
		Label:     label,
		Default:   def,
		AllowEdit: false,
		Validate: func(s string) error {
			if s == "" {
				s = def
			}
			return validate(s)
		},
	}
	result, err := p.Run()
	if err != nil {
		return "", err
	}
	if result == "" {
		result = def
	}
	return result, nil
}

func (promptAsker) Confirm(label string) (bool, error) {
	p := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := p.Run()
	if err == promptui.ErrAbort {
		return false, nil
	}
	return err == nil, err
}

func (promptAsker) Choose(label string, items []CliCmd) (int, error) {
	Select := promptui.Select{
		Label: label,
		Items: items,
	}
	i, _, err := Select.Run()
	return i, err
}

// 交互式命令行用户界面. 选择一项执行, 无论成功失败都返回.
func runCli(ctx context.Context, m *machine.M, a asker) error {
	i, err := a.Choose("请选择想执行的功能", cliCmdList)
	if err != nil {
		return err
	}
	if ce := utils.CanLogInfo("menu chosen"); ce != nil {
		ce.Write()
	}
	fmt.Printf("你选择了 %s\n", cliCmdList[i].Name)
	return cliCmdList[i].F(ctx, m, a)
}

func askInt(a asker, label string, def int, check func(int) error) (int, error) {
	s, err := a.Ask(label, strconv.Itoa(def), func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return utils.ErrInvalidData
		}
		return check(n)
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

// 提问标签, 测试中按标签作答
const (
	labelRelayPort    = "中转机监听端口"
	labelUpstreamHost = "出口机地址 (域名或ip)"
	labelUpstreamPort = "出口机端口"
	labelUpstreamID   = "出口机 uuid"
	labelServerID     = "中转机 uuid (客户端使用, 回车使用随机生成的值)"
	labelUpstreamPath = "http伪装路径"
	labelSendThrough  = "发送流量所用的本机ip (可留空)"
	labelMux          = "mux并发数 (-1 为关闭)"

	labelOutPort     = "出口机监听端口"
	labelClientID    = "出口机 uuid (中转机使用, 回车使用随机生成的值)"
	labelOutPath     = "http伪装路径"
	labelOutSendFrom = "发送流量所用的本机ip"

	labelObfsSHA256     = "工具压缩包的 sha256 (可留空)"
	labelObfsUnverified = "没有校验和, 仍然安装未经校验的文件"
)

func askRelayParams(a asker) (p configAdapter.RelayParams, err error) {
	// ServerID 的默认值在这里已经随机生成, 与出口机的 uuid 无关
	p = configAdapter.NewRelayParams()

	if p.Port, err = askInt(a, labelRelayPort, p.Port, configAdapter.CheckPort); err != nil {
		return
	}
	if p.UpstreamHost, err = a.Ask(labelUpstreamHost, "", configAdapter.CheckHost); err != nil {
		return
	}
	if p.UpstreamPort, err = askInt(a, labelUpstreamPort, p.UpstreamPort, configAdapter.CheckPort); err != nil {
		return
	}
	if p.UpstreamID, err = a.Ask(labelUpstreamID, "", configAdapter.CheckID); err != nil {
		return
	}
	if p.ServerID, err = a.Ask(labelServerID, p.ServerID, configAdapter.CheckID); err != nil {
		return
	}
	if p.UpstreamPath, err = a.Ask(labelUpstreamPath, p.UpstreamPath, configAdapter.CheckPath); err != nil {
		return
	}
	if p.SendThrough, err = a.Ask(labelSendThrough, p.SendThrough, configAdapter.CheckSendThrough); err != nil {
		return
	}
	if p.MuxConcurrency, err = askInt(a, labelMux, p.MuxConcurrency, configAdapter.CheckMux); err != nil {
		return
	}
	err = p.Validate()
	return
}

func askOutboundParams(a asker) (p configAdapter.OutboundParams, err error) {
	p = configAdapter.NewOutboundParams()

	if p.Port, err = askInt(a, labelOutPort, p.Port, configAdapter.CheckPort); err != nil {
		return
	}
	if p.ClientID, err = a.Ask(labelClientID, p.ClientID, configAdapter.CheckID); err != nil {
		return
	}
	if p.Path, err = a.Ask(labelOutPath, p.Path, configAdapter.CheckPath); err != nil {
		return
	}
	if p.SendThrough, err = a.Ask(labelOutSendFrom, p.SendThrough, utils.WrapFuncForPromptUI(govalidator.IsIP)); err != nil {
		return
	}
	err = p.Validate()
	return
}

// askObfsVerification 在工具没有配置校验方式时, 询问 sha256, 或让用户明确同意不校验.
func askObfsVerification(a asker, tool *netLayer.Artifact) error {
	if tool.Verifiable() || tool.AllowUnverified {
		return nil
	}
	sum, err := a.Ask(labelObfsSHA256, "", func(s string) error {
		if s == "" || (len(s) == 64 && govalidator.IsHexadecimal(s)) {
			return nil
		}
		return utils.ErrInvalidData
	})
	if err != nil {
		return err
	}
	if sum != "" {
		tool.SHA256 = sum
		return nil
	}
	ok, err := a.Confirm(labelObfsUnverified)
	if err != nil {
		return err
	}
	tool.AllowUnverified = ok
	return nil
}
