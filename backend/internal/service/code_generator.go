package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// CodeSource 产生候选邀请码；唯一性由调用方查重重试保证
type CodeSource interface {
	NewCode() (string, error)
}

// randomCodeSource 两段独立随机 [a-z0-9] 以 "-" 连接
type randomCodeSource struct {
	segmentLen int
	rand       io.Reader
}

// NewRandomCodeSource 创建基于 crypto/rand 的邀请码来源
func NewRandomCodeSource(segmentLen int) CodeSource {
	return &randomCodeSource{segmentLen: segmentLen, rand: rand.Reader}
}

func (g *randomCodeSource) NewCode() (string, error) {
	first, err := g.segment()
	if err != nil {
		return "", err
	}
	second, err := g.segment()
	if err != nil {
		return "", err
	}
	return first + "-" + second, nil
}

// segment 拒绝采样，避免取模偏差（256 = 7*36 + 4）
func (g *randomCodeSource) segment() (string, error) {
	const limit = 252
	out := make([]byte, 0, g.segmentLen)
	buf := make([]byte, g.segmentLen*2)
	for len(out) < g.segmentLen {
		if _, err := io.ReadFull(g.rand, buf); err != nil {
			return "", fmt.Errorf("读取随机数失败: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == g.segmentLen {
				break
			}
		}
	}
	return string(out), nil
}

// NormalizeCode 去除首尾空白并转小写
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// isWellFormedCode 仅由 [a-z0-9-] 组成且长度合理
func isWellFormedCode(code string) bool {
	if len(code) < 3 || len(code) > 32 {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return false
		}
	}
	return true
}
