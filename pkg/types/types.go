package types

import (
	"fmt"
	"strings"
	"time"
)

// ProtocolVersion 存活探测协议版本
type ProtocolVersion string

const (
	ProtocolV1 ProtocolVersion = "v1" // 原样回显协议，固定超时
	ProtocolV2 ProtocolVersion = "v2" // JSON协议，超时由服务端下发
)

// ParseProtocolVersion 解析协议版本字符串
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	switch v := ProtocolVersion(strings.ToLower(strings.TrimSpace(s))); v {
	case ProtocolV1, ProtocolV2:
		return v, nil
	default:
		return "", fmt.Errorf("unknown protocol version %q", s)
	}
}

// Config 客户端配置结构体
type Config struct {
	Origin              string          `env:"ORIGIN, default=http://localhost:8080"` // 页面来源，用于推导服务端地址
	URL                 string          `env:"URL"`                                   // 显式指定的 ws/wss 地址
	Protocol            string          `env:"PROTOCOL, default=v2"`                  // 协议版本 v1/v2
	HandshakeTimeout    time.Duration   `env:"HANDSHAKE_TIMEOUT, default=10s"`        // 握手超时
	WriteTimeout        time.Duration   `env:"WRITE_TIMEOUT, default=10s"`            // 单次写超时
	ReadLimit           int64           `env:"READ_LIMIT, default=65536"`             // 单帧最大字节数
	FallbackReadTimeout time.Duration   `env:"FALLBACK_READ_TIMEOUT, default=0s"`     // v2 未下发超时时的后备窗口，0 表示关闭
	LogLevel            string          `env:"LOG_LEVEL, default=info"`               // zap 日志级别
	MetricsAddr         string          `env:"METRICS_ADDR"`                          // 指标监听地址，空则不启动
	Version             ProtocolVersion // 解析后的协议版本，由 config.Validate 填充
}

// Message 消息结构体
type Message struct {
	Type    int    // 消息类型（TextMessage, BinaryMessage）
	Content []byte // 消息内容
	ID      string // 消息ID（仅用于日志关联）
}

// State 连接生命周期状态
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// LogEntry 事件日志条目
type LogEntry struct {
	Time    time.Time
	Message string
}

// ConnectionStats 连接统计信息
type ConnectionStats struct {
	MessagesReceived int64 // 收到的数据帧数
	MessagesSent     int64 // 成功发送的数据帧数
	SendErrors       int64 // 发送失败次数
}
