package machine

import (
	"os"
	"path/filepath"
	"time"

	"github.com/e1732a364fed/xrelay/configAdapter"
	"github.com/e1732a364fed/xrelay/netLayer"
	"github.com/e1732a364fed/xrelay/service"
	"github.com/e1732a364fed/xrelay/sysLayer"
	"github.com/e1732a364fed/xrelay/utils"
)

// 环境变量名
const (
	EnvInstallRoot = "XRAY_INSTALL_ROOT"
	EnvBinary      = "XRAY_BIN"
	EnvConfig      = "XRAY_CONFIG"
	EnvDataDir     = "XRAY_DAT_PATH"
	EnvDomainList  = "XRAY_DOMAIN_LIST"
	EnvLogDir      = "XRAY_LOG_DIR"
	EnvUser        = "XRAY_USER"
	EnvProxy       = "XRAY_PROXY"
	EnvVersion     = "XRAY_VERSION"
	EnvCountry     = "XRAY_COUNTRY"
)

const (
	DefaultInstallRoot = "/usr/local"
	DefaultUser        = "nobody"
	DefaultServiceName = "xray"
	InstallerLogName   = "xrelay.log"
)

// Settings 是与某次安装的用户输入无关的、机器层面的设置.
type Settings struct {
	InstallRoot string
	Binary      string
	Config      string
	DataDir     string
	DomainList  string
	LogDir      string
	User        string
	Proxy       string
	Version     string
	Country     string

	ReleaseBase   string
	DomainListURL string
	ServiceName   string
	Dependencies  []sysLayer.Dependency

	ObfsTool    netLayer.Artifact
	ObfsBinary  string
	ServiceWait time.Duration
}

// SettingsFromEnv 读取环境变量, 未设置的项使用默认值. 路径类默认值由 XRAY_INSTALL_ROOT 推出.
func SettingsFromEnv(getenv func(string) string) Settings {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}

	s := Settings{InstallRoot: get(EnvInstallRoot, DefaultInstallRoot)}
	s.Binary = get(EnvBinary, filepath.Join(s.InstallRoot, "bin", "xray"))
	s.Config = get(EnvConfig, filepath.Join(s.InstallRoot, "etc", "xray", "config.json"))
	s.DataDir = get(EnvDataDir, filepath.Join(s.InstallRoot, "share", "xray"))
	// xray 只在数据目录中查找 ext: 文件, 所以只给出文件名时放到数据目录下
	s.DomainList = get(EnvDomainList, configAdapter.DefaultDomainListFile)
	if !filepath.IsAbs(s.DomainList) && filepath.Base(s.DomainList) == s.DomainList {
		s.DomainList = filepath.Join(s.DataDir, s.DomainList)
	}
	s.LogDir = get(EnvLogDir, configAdapter.DefaultLogDir)
	s.User = get(EnvUser, DefaultUser)
	s.Proxy = getenv(EnvProxy)
	s.Version = get(EnvVersion, netLayer.DefaultVersion)
	s.Country = get(EnvCountry, configAdapter.DefaultCountry)

	s.ReleaseBase = netLayer.DefaultReleaseBase
	s.DomainListURL = netLayer.DefaultDomainListURL
	s.ServiceName = DefaultServiceName
	s.Dependencies = append([]sysLayer.Dependency(nil), sysLayer.DefaultDependencies...)

	s.ObfsTool = netLayer.DefaultObfsTool()
	s.ObfsBinary = filepath.Join(s.InstallRoot, "bin", s.ObfsTool.Binary)
	s.ServiceWait = service.DefaultWait
	return s
}

func DefaultSettings() Settings {
	return SettingsFromEnv(os.Getenv)
}

// RenderEnv 要求域名列表位于数据目录中: 规则里只写文件名, xray 按 XRAY_LOCATION_ASSET 查找它.
func (s Settings) RenderEnv() (configAdapter.RenderEnv, error) {
	if filepath.Clean(filepath.Dir(s.DomainList)) != filepath.Clean(s.DataDir) {
		return configAdapter.RenderEnv{}, utils.ErrInErr{
			ErrDesc:   "domain list must be inside the xray data dir " + s.DataDir,
			ErrDetail: utils.ErrWrongParameter,
			Data:      s.DomainList,
		}
	}
	return configAdapter.NewRenderEnv(s.LogDir, s.DomainList, s.Country)
}

func (s Settings) InstallerLogPath() string {
	return filepath.Join(s.LogDir, InstallerLogName)
}
