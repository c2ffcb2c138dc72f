package utils

import (
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BetaCatPro/ws-pingpong/internal/errors"
)

// ServerPath 服务端固定路径
const ServerPath = "/server"

var messageSeq atomic.Uint64

// GenerateMessageID 生成唯一消息ID
func GenerateMessageID() string {
	return fmt.Sprintf("msg-%d-%d", time.Now().UnixNano(), messageSeq.Add(1))
}

// GenerateConnectionID 生成唯一连接ID
func GenerateConnectionID() string {
	return fmt.Sprintf("conn-%d", time.Now().UnixNano())
}

// IsValidURL 检查URL是否为 ws/wss 地址
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "ws" || u.Scheme == "wss") && u.Host != ""
}

// ServerURL 由页面来源推导服务端地址：https 页面使用 wss，其余使用 ws，主机不变，路径固定
func ServerURL(origin string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: origin %q has no host", errors.ErrInvalidURL, origin)
	}

	scheme := "ws"
	if strings.EqualFold(u.Scheme, "https") {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: ServerPath}).String(), nil
}
