package configAdapter

import (
	"github.com/e1732a364fed/xrelay/configAdapter/xray"
	"github.com/e1732a364fed/xrelay/httpLayer"
)

// RenderOutbound 生成出口机配置: 接受来自中转机的 vless+http伪装 连接, 然后直连目标.
func RenderOutbound(p OutboundParams, env RenderEnv) xray.Conf {
	in := xray.Inbound{
		Port:     p.Port,
		Protocol: xray.ProtocolVLESS,
		Settings: xray.VLESSInboundSettings{
			Clients:    []xray.VLESSClient{{ID: p.ClientID}},
			Decryption: "none",
		},
		Stream: httpStream(httpLayer.NewPreset(p.Path), true),
		Tag:    TagForeignIn,
	}

	return xray.Conf{
		Log:      env.logObject(),
		Inbounds: []xray.Inbound{in},
		Outbounds: []xray.Outbound{
			{
				SendThrough: p.SendThrough,
				Protocol:    xray.ProtocolFreedom,
				Settings:    xray.FreedomSettings{},
				Tag:         TagDirectOut,
			},
			{Protocol: xray.ProtocolBlackhole, Settings: xray.BlackholeSettings{}, Tag: TagBlocked},
		},
		Routing: &xray.RoutingObject{
			DomainStrategy: "AsIs",
			Rules:          outboundRules(),
		},
	}
}
