package xray

// 各协议 settings 字段的结构

type VMessInboundSettings struct {
	Clients []VMessClient `json:"clients"`
}

type VMessClient struct {
	ID      string `json:"id"`
	AlterID int    `json:"alterId"`
	Email   string `json:"email,omitempty"`
}

type VLESSInboundSettings struct {
	Clients    []VLESSClient `json:"clients"`
	Decryption string        `json:"decryption"` // must be "none"
}

type VLESSClient struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

type VLESSOutboundSettings struct {
	Vnext []VLESSServer `json:"vnext"`
}

type VLESSServer struct {
	Address string      `json:"address"`
	Port    int         `json:"port"`
	Users   []VLESSUser `json:"users"`
}

type VLESSUser struct {
	ID         string `json:"id"`
	Encryption string `json:"encryption"` // must be "none"
}

type FreedomSettings struct {
	DomainStrategy string `json:"domainStrategy,omitempty"`
}

type BlackholeSettings struct{}
