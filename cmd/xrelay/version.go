/*
Package main 是 xrelay 的命令行程序: 在一台 systemd linux 主机上安装 xray, 并配置为国内中转机或国外出口机.

不加参数运行时进入交互菜单; 给出 -role 和 -answers 时按应答文件直接安装, 不再提问.

命令行参数请使用 --help / -h 查看详情.
*/
package main

import (
	"fmt"
	"io"
	"runtime"

	"github.com/e1732a364fed/xrelay/netLayer"
)

const (
	desc      = "Interactive installer of xray relay and outbound hosts\n"
	delimiter = "===============================\n"
)

var Version string = "[version_undefined]" //版本号可由 -ldflags "-X 'main.Version=v1.x.x'" 指定

func versionStr() string {
	return fmt.Sprintf("xrelay %s, %s %s %s, installs xray %s by default\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH, netLayer.DefaultVersion)
}

func printVersion_simple(w io.Writer) {
	io.WriteString(w, versionStr())
}

func printVersion(w io.Writer) {
	io.WriteString(w, delimiter)
	printVersion_simple(w)
	io.WriteString(w, delimiter+desc+delimiter)
}
