package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/e1732a364fed/xrelay/configAdapter"
	"github.com/e1732a364fed/xrelay/machine"
	"github.com/e1732a364fed/xrelay/netLayer"
	"github.com/e1732a364fed/xrelay/utils"
	"github.com/mdp/qrterminal"
)

//本文件下所有命令的输出统一使用 fmt 而不是 log

// exitCmd 是执行后直接退出程序的命令, 每个命令对应一个同名的命令行参数.
type exitCmd struct {
	name  string
	desc  string
	isStr bool
	f     func()
	fs    func(string)

	given bool
	str   string
}

var exitCmds = []*exitCmd{
	{name: "v", desc: "print the version string then exit", f: func() { printVersion_simple(os.Stdout) }},
	{name: "gu", desc: "automatically generate a uuid for you", f: generateAndPrintUUID},
	{name: "ea", desc: "print an example answers file for -answers", f: printExampleAnswers},
	{name: "qr", isStr: true, desc: "show qrcode in terminal for given string", fs: func(str string) { printQR(os.Stdout, str) }},
}

func init() {
	for _, ec := range exitCmds {
		if ec.isStr {
			flag.StringVar(&ec.str, ec.name, "", ec.desc)
		} else {
			flag.BoolVar(&ec.given, ec.name, false, ec.desc)
		}
	}
}

func runExitCommands() (atLeastOneCalled bool) {
	for _, ec := range exitCmds {
		if ec.isStr {
			if ec.str != "" {
				atLeastOneCalled = true
				ec.fs(ec.str)
			}
		} else if ec.given {
			atLeastOneCalled = true
			ec.f()
		}
	}
	return
}

func generateAndPrintUUID() {
	fmt.Printf("New random uuid : %s\n", utils.GenerateUUIDStr())
}

func printExampleAnswers() {
	relay := configAdapter.NewRelayParams()
	relay.UpstreamHost = "example.com"
	relay.UpstreamID = utils.ExampleUUID
	outbound := configAdapter.NewOutboundParams()
	obfs := netLayer.DefaultObfsTool()

	str, err := utils.GetPurgedTomlStr(machine.AnswersConf{
		Relay:    &relay,
		Outbound: &outbound,
		ObfsTool: &obfs,
	})
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	fmt.Print(str)
}

func printQR(w io.Writer, str string) {
	config := qrterminal.Config{ //与直接调用 GenerateHalfBlock 的区别是, 取消了QuiteZone
		HalfBlocks:     true,
		Level:          qrterminal.M,
		Writer:         w,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
	}
	qrterminal.GenerateWithConfig(str, config)
}
