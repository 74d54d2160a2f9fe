package utils

import (
	"crypto/rand"
	"encoding/base64"
)

const tokenIDBytes = 16

// GenerateTokenID 生成 JWT jti：16 字节随机数的 URL-safe 编码（22 个字符）
func GenerateTokenID() (string, error) {
	b := make([]byte, tokenIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
