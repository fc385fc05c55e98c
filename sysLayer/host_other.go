//go:build !unix

package sysLayer

import "github.com/e1732a364fed/xrelay/utils"

func (LocalHost) Machine() (string, error) {
	return "", utils.ErrNotImplemented
}
