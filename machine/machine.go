/*
Package machine 把安装所需的各个步骤串起来, 对外像一个黑盒子: 给出参数, 得到一个运行中的服务.

关键点是不使用任何静态变量，所有状态都放在 M 中.
*/
package machine

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/e1732a364fed/xrelay/configAdapter"
	"github.com/e1732a364fed/xrelay/configAdapter/xray"
	"github.com/e1732a364fed/xrelay/netLayer"
	"github.com/e1732a364fed/xrelay/service"
	"github.com/e1732a364fed/xrelay/sysLayer"
	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
)

var ErrNotPrepared = errors.New("environment must be prepared before installing")

// 安装流程中的各步骤名, 会传给 step 回调
const (
	StepProbe      = "probe"
	StepDeps       = "dependencies"
	StepDownload   = "download xray"
	StepInstall    = "install xray"
	StepDomainList = "domain list"
	StepConfig     = "write config"
	StepLogDir     = "log dir"
	StepRegister   = "register service"
	StepStart      = "start service"
	StepObfsTool   = "obfuscation tool"
)

type M struct {
	Settings

	Host      sysLayer.Host
	Platform  sysLayer.Platform
	Registrar *service.Registrar

	// Out 接收下载进度等给人看的输出, 可为nil
	Out io.Writer

	// PublicAddr 非空时直接作为分享链接中的地址, 否则通过 Resolver 查询公网ip
	PublicAddr string
	Resolver   string

	callbacks

	prepared bool
}

func New(s Settings, h sysLayer.Host) *M {
	reg := service.NewRegistrar(h)
	reg.Wait = s.ServiceWait
	return &M{
		Settings:  s,
		Host:      h,
		Registrar: reg,
		Out:       os.Stdout,
		Resolver:  netLayer.OpenDNSResolver,
	}
}

type Result struct {
	Role      configAdapter.Role
	Conf      xray.Conf
	Host      string
	ShareLink string
}

// Prepare 探测环境并安装依赖. 无论之后选择哪个安装流程, 都要先调用且只需调用一次.
func (m *M) Prepare(ctx context.Context) (err error) {
	m.callStepCallback(StepProbe)
	if m.Platform, err = sysLayer.Probe(ctx, m.Host); err != nil {
		return
	}

	m.callStepCallback(StepDeps)
	in := &sysLayer.Installer{Host: m.Host, PM: m.Platform.PackageManager}
	if err = in.EnsureAll(ctx, m.Dependencies); err != nil {
		return
	}
	m.prepared = true
	return
}

func (m *M) InstallRelay(ctx context.Context, p configAdapter.RelayParams) (r Result, err error) {
	if err = p.Validate(); err != nil {
		return
	}
	env, err := m.RenderEnv()
	if err != nil {
		return
	}

	conf := configAdapter.RenderRelay(p, env)
	if err = m.installXray(ctx, &conf, configAdapter.DomainListTags(env)); err != nil {
		return
	}

	host := m.PublicHost(ctx)
	r = Result{
		Role:      configAdapter.RoleRelay,
		Conf:      conf,
		Host:      host,
		ShareLink: configAdapter.RelayShareLink(p, host, "xrelay-"+host),
	}
	m.callDoneCallback(r)
	return
}

func (m *M) InstallOutbound(ctx context.Context, p configAdapter.OutboundParams) (r Result, err error) {
	if err = p.Validate(); err != nil {
		return
	}
	env, err := m.RenderEnv()
	if err != nil {
		return
	}

	conf := configAdapter.RenderOutbound(p, env)
	if err = m.installXray(ctx, &conf, nil); err != nil {
		return
	}

	host := m.PublicHost(ctx)
	r = Result{
		Role:      configAdapter.RoleOutbound,
		Conf:      conf,
		Host:      host,
		ShareLink: configAdapter.OutboundShareLink(p, host, "xrelay-"+host),
	}
	m.callDoneCallback(r)
	return
}

// installXray 是两种角色共用的流程. 任何一步失败都直接返回, 已完成的步骤不回滚.
func (m *M) installXray(ctx context.Context, conf *xray.Conf, tags []string) error {
	if !m.prepared {
		return ErrNotPrepared
	}
	if _, err := configAdapter.Encode(conf); err != nil {
		return err
	}

	f, err := netLayer.NewFetcher(m.Proxy, m.Out)
	if err != nil {
		return err
	}
	defer f.Cleanup()

	m.callStepCallback(StepDownload)
	link := netLayer.ReleaseURL(m.ReleaseBase, m.Version, m.Platform.Arch)
	archive, err := f.FetchVerified(ctx, link, netLayer.DigestURL(link))
	if err != nil {
		return err
	}

	m.callStepCallback(StepInstall)
	if err = netLayer.InstallRelease(archive, netLayer.ReleaseLayout{Binary: m.Binary, DataDir: m.DataDir}); err != nil {
		return err
	}

	m.callStepCallback(StepDomainList)
	if err = f.FetchDomainList(ctx, m.DomainListURL, m.DomainList, tags); err != nil {
		return err
	}

	m.callStepCallback(StepConfig)
	if err = configAdapter.WriteConf(m.Config, conf); err != nil {
		return err
	}

	m.callStepCallback(StepLogDir)
	acc, err := service.LookupAccount(m.User)
	if err != nil {
		return err
	}
	if err = service.PrepareLogDir(m.LogDir, acc, "access.log", "error.log"); err != nil {
		return err
	}

	unit := service.XrayUnit(m.ServiceName, m.Binary, m.Config, m.DataDir, acc.Name, acc.UID)
	return m.registerAndStart(ctx, unit)
}

// InstallObfsTool 安装 DPI 规避工具, 并作为独立的服务运行.
func (m *M) InstallObfsTool(ctx context.Context) error {
	if !m.prepared {
		return ErrNotPrepared
	}
	f, err := netLayer.NewFetcher(m.Proxy, m.Out)
	if err != nil {
		return err
	}
	defer f.Cleanup()

	m.callStepCallback(StepObfsTool)
	if err = f.FetchArtifact(ctx, m.ObfsTool, m.Platform.Arch, m.ObfsBinary); err != nil {
		return err
	}

	acc, err := service.LookupAccount(m.User)
	if err != nil {
		return err
	}
	return m.registerAndStart(ctx, service.ToolUnit(m.ObfsTool.Name, m.ObfsBinary, m.ObfsTool.Args, acc.Name, acc.UID))
}

func (m *M) registerAndStart(ctx context.Context, unit service.Unit) error {
	m.callStepCallback(StepRegister)
	if err := m.Registrar.Register(ctx, unit); err != nil {
		return err
	}
	m.callStepCallback(StepStart)
	return m.Registrar.Start(ctx, unit.Name)
}

// PublicHost 返回分享链接中使用的地址; 查询失败时返回一个占位符, 不算错误.
func (m *M) PublicHost(ctx context.Context) string {
	if m.PublicAddr != "" {
		return m.PublicAddr
	}
	ip, err := netLayer.PublicIPv4(ctx, m.Resolver)
	if err != nil {
		if ce := utils.CanLogWarn("can not find public ip, use -host to set it"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return "YOUR_SERVER_IP"
	}
	return ip.String()
}
