package service

import (
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"github.com/e1732a364fed/xrelay/utils"
)

// Account 是服务运行所用的系统账户.
type Account struct {
	Name string
	UID  int
	GID  int
}

func LookupAccount(name string) (Account, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return Account{}, utils.ErrInErr{ErrDesc: "no such user", ErrDetail: err, Data: name}
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Account{}, utils.ErrInErr{ErrDesc: "non numeric uid", ErrDetail: utils.ErrNotImplemented, Data: u.Uid}
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Account{}, utils.ErrInErr{ErrDesc: "non numeric gid", ErrDetail: utils.ErrNotImplemented, Data: u.Gid}
	}
	return Account{Name: u.Username, UID: uid, GID: gid}, nil
}

// PrepareLogDir 创建日志目录与日志文件 (已有内容不会被清空), 并交给 acc 所有,
// 否则以 nobody 运行的 xray 无法写日志.
func PrepareLogDir(dir string, acc Account, files ...string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := os.Chown(dir, acc.UID, acc.GID); err != nil {
		return err
	}
	for _, name := range files {
		p := filepath.Join(dir, name)
		f, err := os.OpenFile(p, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		f.Close()
		if err = os.Chown(p, acc.UID, acc.GID); err != nil {
			return err
		}
	}
	return nil
}
