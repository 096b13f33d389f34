package qrcode

import (
	"errors"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	maxSize     = 1024
	minSize     = 64
)

// ErrEmptyContent 二维码内容为空
var ErrEmptyContent = errors.New("二维码内容不能为空")

// PNG 将 content（通常为 RSVP 链接）编码为 PNG
// size 超出 [64,1024] 时取边界值，0 使用默认尺寸
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	switch {
	case size == 0:
		size = DefaultSize
	case size < minSize:
		size = minSize
	case size > maxSize:
		size = maxSize
	}
	png, err := goqrcode.Encode(content, goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("生成二维码失败: %w", err)
	}
	return png, nil
}
