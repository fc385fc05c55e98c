package configAdapter

import (
	"path/filepath"
	"strings"

	"github.com/biter777/countries"
	"github.com/e1732a364fed/xrelay/configAdapter/xray"
	"github.com/e1732a364fed/xrelay/utils"
)

const (
	DefaultCountry        = "IR"
	DefaultDomainListFile = "iran.dat"
	DefaultLogDir         = "/var/log/xray"
)

// 少数国家的顶级域名与 alpha2 不同
var tldExceptions = map[string]string{
	"gb": "uk",
}

// RenderEnv 是渲染配置时需要的、与主机有关而与用户输入无关的部分.
type RenderEnv struct {
	LogDir string

	// DomainListFile 为数据目录中的文件名, 在规则中以 ext:<DomainListFile>:<tag> 引用.
	DomainListFile string

	// Country 为 ISO 3166 alpha-2 大写代码.
	Country string
}

func DefaultRenderEnv() RenderEnv {
	return RenderEnv{
		LogDir:         DefaultLogDir,
		DomainListFile: DefaultDomainListFile,
		Country:        DefaultCountry,
	}
}

// NewRenderEnv validates country and keeps only the base name of domainList.
func NewRenderEnv(logDir, domainList, country string) (RenderEnv, error) {
	cc, err := LookupCountry(country)
	if err != nil {
		return RenderEnv{}, err
	}
	return RenderEnv{
		LogDir:         logDir,
		DomainListFile: filepath.Base(domainList),
		Country:        cc.Alpha2(),
	}, nil
}

func LookupCountry(code string) (countries.CountryCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) == 2 {
		for _, c := range countries.All() {
			if c.Alpha2() == code {
				return c, nil
			}
		}
	}
	return countries.Unknown, utils.ErrInErr{ErrDesc: "unknown ISO 3166 alpha-2 country code", ErrDetail: utils.ErrWrongParameter, Data: code}
}

// CountryTag 是域名列表文件中该国的标签, 如 "ir".
func (e RenderEnv) CountryTag() string {
	return strings.ToLower(e.Country)
}

func (e RenderEnv) TLD() string {
	tag := e.CountryTag()
	if t, ok := tldExceptions[tag]; ok {
		return t
	}
	return tag
}

func (e RenderEnv) logObject() *xray.LogObject {
	return &xray.LogObject{
		Access:   filepath.Join(e.LogDir, "access.log"),
		Error:    filepath.Join(e.LogDir, "error.log"),
		LogLevel: "warning",
	}
}
