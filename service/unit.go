/*
Package service writes systemd units for the installed binaries and starts them.

xray 以非 root 用户运行时, 需要 CAP_NET_BIND_SERVICE 才能监听低端口; 以 root 运行时这些
权限行没有意义, 所以渲染为注释, 与 xray 官方安装脚本的做法一致.
*/
package service

import (
	"bytes"
	"sort"
	"strings"
	"text/template"
)

var DefaultCapabilities = []string{"CAP_NET_ADMIN", "CAP_NET_BIND_SERVICE"}

type Privileges struct {
	Capabilities    []string
	NoNewPrivileges bool

	// Active 为 false 时, 权限相关的三行会被注释掉
	Active bool
}

// ForUser returns the privileges for a unit running as the account with uid.
func ForUser(uid int) Privileges {
	return Privileges{
		Capabilities:    DefaultCapabilities,
		NoNewPrivileges: true,
		Active:          uid != 0,
	}
}

type Unit struct {
	Name          string
	Description   string
	Documentation string
	User          string
	ExecStart     string
	Environment   map[string]string
	Privileges    Privileges

	Restart                  string
	RestartPreventExitStatus int
	LimitNPROC               int
	LimitNOFILE              int
}

// XrayUnit 与 xray 官方安装脚本生成的 xray.service 基本一致.
func XrayUnit(name, bin, config, dataDir, user string, uid int) Unit {
	return Unit{
		Name:                     name,
		Description:              "Xray Service",
		Documentation:            "https://github.com/xtls",
		User:                     user,
		ExecStart:                bin + " run -config " + config,
		Environment:              map[string]string{"XRAY_LOCATION_ASSET": dataDir},
		Privileges:               ForUser(uid),
		Restart:                  "on-failure",
		RestartPreventExitStatus: 23,
		LimitNPROC:               10000,
		LimitNOFILE:              1000000,
	}
}

// ToolUnit is a plain supervised unit for a helper binary such as the obfuscation tool.
func ToolUnit(name, bin string, args []string, user string, uid int) Unit {
	return Unit{
		Name:        name,
		Description: name + " Service",
		User:        user,
		ExecStart:   strings.TrimSpace(bin + " " + strings.Join(args, " ")),
		Privileges:  ForUser(uid),
		Restart:     "on-failure",
		LimitNOFILE: 1000000,
	}
}

const unitTemplate = `[Unit]
Description={{.Description}}
{{- if .Documentation}}
Documentation={{.Documentation}}
{{- end}}
After=network.target nss-lookup.target

[Service]
User={{.User}}
{{comment}}CapabilityBoundingSet={{caps}}
{{comment}}AmbientCapabilities={{caps}}
{{comment}}NoNewPrivileges={{.Privileges.NoNewPrivileges}}
ExecStart={{.ExecStart}}
Restart={{.Restart}}
{{- if .RestartPreventExitStatus}}
RestartPreventExitStatus={{.RestartPreventExitStatus}}
{{- end}}
{{- if .LimitNPROC}}
LimitNPROC={{.LimitNPROC}}
{{- end}}
{{- if .LimitNOFILE}}
LimitNOFILE={{.LimitNOFILE}}
{{- end}}
{{- range env}}
Environment={{.}}
{{- end}}

[Install]
WantedBy=multi-user.target
`

func Render(u Unit) ([]byte, error) {
	funcs := template.FuncMap{
		"comment": func() string {
			if u.Privileges.Active {
				return ""
			}
			return "#"
		},
		"caps": func() string { return strings.Join(u.Privileges.Capabilities, " ") },
		"env": func() []string {
			kv := make([]string, 0, len(u.Environment))
			for k, v := range u.Environment {
				kv = append(kv, k+"="+v)
			}
			sort.Strings(kv)
			return kv
		},
	}

	t, err := template.New(u.Name).Funcs(funcs).Parse(unitTemplate)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err = t.Execute(&buf, u); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
