package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BetaCatPro/ws-pingpong/internal/errors"
	"github.com/BetaCatPro/ws-pingpong/pkg/types"
	"github.com/bytedance/sonic"
)

// FrameKind 解码后的消息类别
type FrameKind int

const (
	FrameOther       FrameKind = iota // 无可识别字段，仅作为存活信号
	FramePing                         // 探测消息，需要回复
	FrameReadTimeout                  // 超时配置指令
)

func (k FrameKind) String() string {
	switch k {
	case FramePing:
		return "ping"
	case FrameReadTimeout:
		return "read_timeout"
	default:
		return "other"
	}
}

// Frame 解码结果
type Frame struct {
	Kind        FrameKind
	Token       []byte        // 探测令牌的线上表示，回复时原样带回
	Label       string        // 令牌的可读形式，用于事件日志
	ReadTimeout time.Duration // 仅 FrameReadTimeout 有效
}

// MessageProtocol 消息协议接口
type MessageProtocol interface {
	Name() string
	Decode([]byte) (Frame, error)              // 解码收到的消息
	EncodePong(token []byte) ([]byte, error) // 编码确认消息
}

// RawProtocol v1 原样回显协议：整个消息即令牌
type RawProtocol struct{}

func (r *RawProtocol) Name() string { return string(types.ProtocolV1) }

// Decode 总是返回探测帧
func (r *RawProtocol) Decode(data []byte) (Frame, error) {
	token := make([]byte, len(data))
	copy(token, data)
	return Frame{Kind: FramePing, Token: token, Label: string(data)}, nil
}

// EncodePong 令牌原样返回，不做包装
func (r *RawProtocol) EncodePong(token []byte) ([]byte, error) {
	return token, nil
}

// JSONProtocol v2 结构化协议
type JSONProtocol struct{}

type inbound struct {
	ReadTimeout *float64        `json:"read_timeout"`
	Ping        json.RawMessage `json:"ping"`
}

type pong struct {
	Pong json.RawMessage `json:"pong"`
}

var jsonAPI = sonic.ConfigStd

func (j *JSONProtocol) Name() string { return string(types.ProtocolV2) }

// Decode 解析JSON消息。非对象的合法JSON标量视为无字段消息，null 与非法JSON返回 ParseError
func (j *JSONProtocol) Decode(data []byte) (Frame, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !jsonAPI.Valid(trimmed) {
		return Frame{}, &errors.ParseError{Payload: data, Err: fmt.Errorf("%w: malformed json", errors.ErrInvalidMessage)}
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return Frame{}, &errors.ParseError{Payload: data, Err: fmt.Errorf("%w: null payload", errors.ErrInvalidMessage)}
	}
	if trimmed[0] != '{' {
		return Frame{Kind: FrameOther}, nil
	}

	var msg inbound
	if err := jsonAPI.Unmarshal(trimmed, &msg); err != nil {
		return Frame{}, &errors.ParseError{Payload: data, Err: err}
	}

	if msg.ReadTimeout != nil {
		return Frame{
			Kind:        FrameReadTimeout,
			ReadTimeout: time.Duration(*msg.ReadTimeout * float64(time.Second)),
		}, nil
	}

	if present(msg.Ping) {
		return Frame{Kind: FramePing, Token: msg.Ping, Label: label(msg.Ping)}, nil
	}

	return Frame{Kind: FrameOther}, nil
}

// EncodePong 编码为 {"pong":<token>}
func (j *JSONProtocol) EncodePong(token []byte) ([]byte, error) {
	if !present(token) {
		return nil, fmt.Errorf("%w: empty pong token", errors.ErrProtocolError)
	}
	return jsonAPI.Marshal(pong{Pong: token})
}

// present 判断字段存在且不为 null；0、""、false 都是合法令牌
func present(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func label(raw json.RawMessage) string {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := jsonAPI.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// GetProtocol 根据协议版本获取协议处理器
func GetProtocol(version types.ProtocolVersion) MessageProtocol {
	switch version {
	case types.ProtocolV1:
		return &RawProtocol{}
	case types.ProtocolV2:
	default:
		return &JSONProtocol{}
	}
	return &JSONProtocol{}
}
