package utils

import (
	"errors"
	"fmt"
)

var ErrNotImplemented = errors.New("not implemented")
var ErrWrongParameter = errors.New("wrong parameter")
var ErrInvalidData = errors.New("invalid data")

// ErrDownload 表示一次可重试的下载失败 (网络错误或非200状态码).
var ErrDownload = errors.New("download failed")

// ErrInErr 很适合一个err包含另一个err，并且提供附带数据的情况.
type ErrInErr struct {
	ErrDesc   string
	ErrDetail error
	Data      any
}

func (e ErrInErr) Error() string {
	return e.String()
}

func (e ErrInErr) Unwrap() error {
	return e.ErrDetail
}

func (e ErrInErr) Is(err error) bool {
	return e.ErrDetail == err
}

func (e ErrInErr) String() string {

	if e.Data != nil {

		if e.ErrDetail != nil {
			return fmt.Sprintf("%s : %s, Data: %v", e.ErrDesc, e.ErrDetail.Error(), e.Data)
		}

		return fmt.Sprintf("%s , Data: %v", e.ErrDesc, e.Data)
	}
	if e.ErrDetail != nil {
		return fmt.Sprintf("%s : %s", e.ErrDesc, e.ErrDetail.Error())
	}
	return e.ErrDesc
}
