package machine

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/e1732a364fed/xrelay/configAdapter"
	"github.com/e1732a364fed/xrelay/netLayer"
	"github.com/e1732a364fed/xrelay/sysLayer"
	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
)

// AnswersConf 是非交互模式下的 toml 应答文件, 例如
//
//	[app]
//	proxy = "socks5://127.0.0.1:1080"
//
//	[relay]
//	upstream_host = "example.com"
//	upstream_id = "a684455c-b14f-11ea-bf0d-42010aaa0003"
//
// 没给出的参数使用默认值.
type AnswersConf struct {
	AppConf      *AppConf                      `toml:"app"`
	Relay        *configAdapter.RelayParams    `toml:"relay"`
	Outbound     *configAdapter.OutboundParams `toml:"outbound"`
	ObfsTool     *netLayer.Artifact            `toml:"obfs_tool"`
	Dependencies []sysLayer.Dependency         `toml:"dependencies"`
}

// AppConf 覆盖环境变量给出的设置. 需要为指针, 否则无法判断是未给出还是显式给出空值.
type AppConf struct {
	LogLevel      *int    `toml:"loglevel"`
	LogFile       *string `toml:"logfile"`
	Proxy         *string `toml:"proxy"`
	Version       *string `toml:"version"`
	Country       *string `toml:"country"`
	User          *string `toml:"user"`
	DomainListURL *string `toml:"domain_list_url"`
	ReleaseBase   *string `toml:"release_base"`
}

// LoadAnswers 读取应答文件. Relay 与 Outbound 在对应表存在时, 以默认参数为底解码,
// 所以默认的 uuid 也在这里生成.
func LoadAnswers(path string) (ac AnswersConf, err error) {
	relay := configAdapter.NewRelayParams()
	outbound := configAdapter.NewOutboundParams()
	obfs := netLayer.DefaultObfsTool()
	ac.Relay = &relay
	ac.Outbound = &outbound
	ac.ObfsTool = &obfs

	if !utils.FileExist(path) {
		return ac, utils.ErrInErr{ErrDesc: "answers file not found", ErrDetail: os.ErrNotExist, Data: path}
	}

	md, err := toml.DecodeFile(path, &ac)
	if err != nil {
		return ac, utils.ErrInErr{ErrDesc: "bad answers file", ErrDetail: err, Data: path}
	}
	if !md.IsDefined("relay") {
		ac.Relay = nil
	}
	if !md.IsDefined("outbound") {
		ac.Outbound = nil
	}
	if !md.IsDefined("obfs_tool") {
		ac.ObfsTool = nil
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		if ce := utils.CanLogWarn("unknown keys in answers file"); ce != nil {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			ce.Write(zap.Strings("keys", keys))
		}
	}
	return
}

// Setup applies ac to s. Keys whose flag was given on the command line are skipped.
func (ac *AppConf) Setup(s *Settings) {
	if ac == nil {
		return
	}
	if ac.LogFile != nil && utils.GivenFlags["lf"] == nil {
		utils.LogOutFileName = *ac.LogFile
	}
	if ac.LogLevel != nil && utils.GivenFlags["ll"] == nil {
		utils.LogLevel = *ac.LogLevel
	}
	if ac.Proxy != nil && utils.GivenFlags["proxy"] == nil {
		s.Proxy = *ac.Proxy
	}
	if ac.Version != nil && utils.GivenFlags["xv"] == nil {
		s.Version = *ac.Version
	}
	if ac.Country != nil && utils.GivenFlags["country"] == nil {
		s.Country = *ac.Country
	}
	if ac.User != nil && utils.GivenFlags["user"] == nil {
		s.User = *ac.User
	}
	if ac.DomainListURL != nil {
		s.DomainListURL = *ac.DomainListURL
	}
	if ac.ReleaseBase != nil {
		s.ReleaseBase = *ac.ReleaseBase
	}
}

// Apply copies the machine level parts of ac into s.
func (ac *AnswersConf) Apply(s *Settings) {
	ac.AppConf.Setup(s)
	if ac.ObfsTool != nil {
		s.ObfsTool = *ac.ObfsTool
		s.ObfsBinary = filepath.Join(s.InstallRoot, "bin", s.ObfsTool.Binary)
	}
	if len(ac.Dependencies) > 0 {
		s.Dependencies = ac.Dependencies
	}
}
