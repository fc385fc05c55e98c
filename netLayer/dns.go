package netLayer

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/e1732a364fed/xrelay/utils"
	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const (
	OpenDNSResolver = "resolver1.opendns.com:53"

	// 向 opendns 的解析器查询这个域名, 得到的 A 记录就是查询者自己的公网ip
	OpenDNSMyIP = "myip.opendns.com."
)

var ErrRecursion = errors.New("multiple recursion not allowed")

// DNSQuery 向 server 查询 domain 的 A 或 AAAA 记录, 遇到 cname 会继续查询.
// domain必须是 dns.Fqdn 函数 包过的.
//
// 可能返回 os.ErrNotExist (查无此记录), dns.ErrRcode (Rcode 不是 dns.RcodeSuccess), ErrRecursion,
// 其它错误则是网络错误.
// recursionCount 使用者统一填0 即可.
func DNSQuery(ctx context.Context, server, domain string, dnsType uint16, recursionCount int) (ip net.IP, ttl uint32, err error) {
	m := new(dns.Msg)
	m.SetQuestion(domain, dnsType)
	c := new(dns.Client)

	r, _, err := c.ExchangeContext(ctx, m, server)
	if r == nil {
		if ce := utils.CanLogErr("dns query read err"); ce != nil {
			ce.Write(zap.String("server", server), zap.Error(err))
		}
		return
	}

	if r.Rcode != dns.RcodeSuccess {
		if ce := utils.CanLogDebug("dns query code err"); ce != nil {
			ce.Write(zap.Int("rcode", r.Rcode), zap.String("value", r.String()))
		}
		err = dns.ErrRcode
		return
	}

	for _, a := range r.Answer {
		switch aa := a.(type) {
		case *dns.A:
			if dnsType == dns.TypeA {
				return aa.A, aa.Hdr.Ttl, nil
			}
		case *dns.AAAA:
			if dnsType == dns.TypeAAAA {
				return aa.AAAA, aa.Hdr.Ttl, nil
			}
		}
	}

	//没A和4A那就查cname在不在
	for _, a := range r.Answer {
		if aa, ok := a.(*dns.CNAME); ok {
			if recursionCount > 2 {
				err = ErrRecursion
				return
			}
			return DNSQuery(ctx, server, dns.Fqdn(aa.Target), dnsType, recursionCount+1)
		}
	}

	err = os.ErrNotExist
	return
}

// PublicIPv4 asks resolver (normally OpenDNSResolver) for our own address.
func PublicIPv4(ctx context.Context, resolver string) (net.IP, error) {
	ip, _, err := DNSQuery(ctx, resolver, OpenDNSMyIP, dns.TypeA, 0)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: "public ip lookup failed", ErrDetail: err, Data: resolver}
	}
	if ce := utils.CanLogInfo("public ip"); ce != nil {
		ce.Write(zap.Stringer("ip", ip))
	}
	return ip, nil
}
