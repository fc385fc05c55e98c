package utils

import (
	"strings"

	"github.com/google/uuid"
)

const ExampleUUID = "a684455c-b14f-11ea-bf0d-42010aaa0003"

// 生成符合v4标准的uuid
func GenerateUUIDStr() string {
	return uuid.NewString()
}

// IsUUID 只接受 8-4-4-4-12 的标准形式, 不接受 urn:uuid: 前缀或花括号, 因为 xray 也不接受.
func IsUUID(s string) bool {
	if len(s) != 36 || strings.Count(s, "-") != 4 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
