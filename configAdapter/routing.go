package configAdapter

import (
	"github.com/e1732a364fed/xrelay/configAdapter/xray"
)

const (
	TagRelayIn   = "relay-in"
	TagTunnel    = "tunnel"
	TagDirect    = "direct"
	TagBlocked   = "blocked"
	TagForeignIn = "foreign-in"
	TagDirectOut = "direct-out"

	DomainListOtherTag = "other"
	DomainListAdsTag   = "ads"
)

func fieldRule(outbound string) xray.RuleObject {
	return xray.RuleObject{Type: "field", OutboundTag: outbound}
}

// relayRules 顺序很重要: xray 按顺序匹配, 第一个匹配的规则生效.
// 先屏蔽内网与bt, 再让国内流量直连, 广告屏蔽, 其余全部进隧道.
func relayRules(env RenderEnv) []xray.RuleObject {
	ext := "ext:" + env.DomainListFile + ":"

	privateIP := fieldRule(TagBlocked)
	privateIP.IP = []string{"geoip:private"}

	privateDomain := fieldRule(TagBlocked)
	privateDomain.Domain = []string{"geosite:private"}

	bt := fieldRule(TagBlocked)
	bt.Protocol = []string{"bittorrent"}

	suffix := fieldRule(TagDirect)
	suffix.Domain = []string{`regexp:^.+\.` + env.TLD() + `$`}

	domestic := fieldRule(TagDirect)
	domestic.Domain = []string{ext + env.CountryTag()}

	other := fieldRule(TagDirect)
	other.Domain = []string{ext + DomainListOtherTag}

	ads := fieldRule(TagBlocked)
	ads.Domain = []string{ext + DomainListAdsTag}

	rest := fieldRule(TagTunnel)
	rest.Network = xray.NetworkAll

	return []xray.RuleObject{privateIP, privateDomain, bt, suffix, domestic, other, ads, rest}
}

func outboundRules() []xray.RuleObject {
	bt := fieldRule(TagBlocked)
	bt.Protocol = []string{"bittorrent"}

	rest := fieldRule(TagDirectOut)
	rest.InboundTag = []string{TagForeignIn}
	rest.Network = xray.NetworkAll

	return []xray.RuleObject{bt, rest}
}

// DomainListTags returns the tags that the relay rules look up in the domain list file.
func DomainListTags(env RenderEnv) []string {
	return []string{env.CountryTag(), DomainListOtherTag, DomainListAdsTag}
}
