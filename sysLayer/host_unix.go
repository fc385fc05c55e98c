//go:build unix

package sysLayer

import (
	"golang.org/x/sys/unix"
)

func (LocalHost) Machine() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}
