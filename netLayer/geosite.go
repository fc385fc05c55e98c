package netLayer

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/e1732a364fed/xrelay/utils"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"google.golang.org/protobuf/encoding/protowire"
)

const DefaultDomainListURL = "https://github.com/bootmortis/iran-hosted-domains/releases/latest/download/iran.dat"

var ErrDomainList = errors.New("bad domain list file")

// geosite数据格式可参考
// https://github.com/v2fly/v2ray-core/blob/master/app/router/routercommon/common.proto
//
//	message GeoSiteList { repeated GeoSite entry = 1; }
//	message GeoSite { string country_code = 1; repeated Domain domain = 2; }
//
// 我们不引用 xray 的代码, 只用 protowire 读出每个 GeoSite 的 country_code 与 domain 数量.

// ParseDomainListTags returns, for each tag (lower cased) in a GeoSiteList file, its domain count.
func ParseDomainListTags(data []byte) (map[string]int, error) {
	tags := make(map[string]int)

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, wrapProtoErr(n)
		}
		data = data[n:]

		if num != 1 || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, wrapProtoErr(n)
			}
			data = data[n:]
			continue
		}

		site, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, wrapProtoErr(n)
		}
		data = data[n:]

		code, count, err := parseGeoSite(site)
		if err != nil {
			return nil, err
		}
		if code == "" {
			return nil, utils.ErrInErr{ErrDesc: "entry without country code", ErrDetail: ErrDomainList}
		}
		tags[strings.ToLower(code)] += count
	}
	return tags, nil
}

func parseGeoSite(b []byte) (code string, count int, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", 0, wrapProtoErr(n)
		}
		b = b[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", 0, wrapProtoErr(n)
			}
			code = string(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			_, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return "", 0, wrapProtoErr(n)
			}
			count++
			b = b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", 0, wrapProtoErr(n)
			}
			b = b[n:]
		}
	}
	return
}

func wrapProtoErr(n int) error {
	return utils.ErrInErr{ErrDesc: protowire.ParseError(n).Error(), ErrDetail: ErrDomainList}
}

// CheckDomainList 确保文件可以解析, 且包含路由规则用到的所有标签.
func CheckDomainList(data []byte, required []string) error {
	tags, err := ParseDomainListTags(data)
	if err != nil {
		return err
	}
	var missing []string
	for _, r := range required {
		if _, ok := tags[strings.ToLower(r)]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		have := make([]string, 0, len(tags))
		for t := range tags {
			have = append(have, t)
		}
		slices.Sort(have)
		return utils.ErrInErr{ErrDesc: "missing tags " + strings.Join(missing, ","), ErrDetail: ErrDomainList, Data: have}
	}

	if ce := utils.CanLogInfo("domain list ok"); ce != nil {
		ce.Write(zap.Int("tags", len(tags)), zap.Strings("required", required))
	}
	return nil
}

// FetchDomainList 下载并检查域名列表文件, 通过后原子地写到 dst.
func (f *Fetcher) FetchDomainList(ctx context.Context, link, dst string, required []string) error {
	p, err := f.Fetch(ctx, link)
	if err != nil {
		return err
	}
	bs, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	if err = CheckDomainList(bs, required); err != nil {
		return err
	}
	return utils.WriteFileAtomic(dst, bs, 0644)
}
