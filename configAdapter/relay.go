package configAdapter

import (
	"github.com/e1732a364fed/xrelay/configAdapter/xray"
	"github.com/e1732a364fed/xrelay/httpLayer"
)

// RenderRelay 生成中转机配置. 客户端以 vmess 连入, 国内流量直连, 其余经 tunnel 发往出口机.
// p 应先经过 Validate.
func RenderRelay(p RelayParams, env RenderEnv) xray.Conf {
	in := xray.Inbound{
		Port:     p.Port,
		Protocol: xray.ProtocolVMess,
		Settings: xray.VMessInboundSettings{
			Clients: []xray.VMessClient{{ID: p.ServerID}},
		},
		Stream: &xray.StreamObject{Network: "tcp", Security: "none"},
		Tag:    TagRelayIn,
	}

	tunnel := xray.Outbound{
		SendThrough: p.SendThrough,
		Protocol:    xray.ProtocolVLESS,
		Settings: xray.VLESSOutboundSettings{
			Vnext: []xray.VLESSServer{{
				Address: p.UpstreamHost,
				Port:    p.UpstreamPort,
				Users:   []xray.VLESSUser{{ID: p.UpstreamID, Encryption: "none"}},
			}},
		},
		Stream: httpStream(httpLayer.NewPreset(p.UpstreamPath), false),
		Mux: &xray.MuxObject{
			Enabled:     p.MuxEnabled(),
			Concurrency: p.MuxConcurrency,
		},
		Tag: TagTunnel,
	}

	return xray.Conf{
		Log:      env.logObject(),
		Inbounds: []xray.Inbound{in},
		Outbounds: []xray.Outbound{
			tunnel,
			{Protocol: xray.ProtocolFreedom, Settings: xray.FreedomSettings{}, Tag: TagDirect},
			{Protocol: xray.ProtocolBlackhole, Settings: xray.BlackholeSettings{}, Tag: TagBlocked},
		},
		Routing: &xray.RoutingObject{
			DomainStrategy: "IPIfNonMatch",
			Rules:          relayRules(env),
		},
	}
}

// httpStream 把 header 预设转为 tcp 的 http 伪装. 服务端只需 path 与 response, 客户端只需 request.
func httpStream(h *httpLayer.HeaderPreset, server bool) *xray.StreamObject {
	header := &xray.HeaderObject{Type: "http"}

	if server {
		header.Request = &xray.HTTPRequest{
			Version: h.Request.Version,
			Method:  h.Request.Method,
			Path:    h.Request.Path,
		}
		header.Response = &xray.HTTPResponse{
			Version: h.Response.Version,
			Status:  h.Response.StatusCode,
			Reason:  h.Response.Reason,
			Headers: h.Response.Headers,
		}
	} else {
		header.Request = &xray.HTTPRequest{
			Version: h.Request.Version,
			Method:  h.Request.Method,
			Path:    h.Request.Path,
			Headers: h.Request.Headers,
		}
	}

	return &xray.StreamObject{
		Network:     "tcp",
		Security:    "none",
		TCPSettings: &xray.TCPSettings{Header: header},
	}
}
