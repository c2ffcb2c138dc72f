package errors

import (
	"errors"
	"fmt"
	"sync"
)

// 定义错误类型
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrDeadlineExceeded = errors.New("timed out waiting for message")
	ErrTransport        = errors.New("transport error")
	ErrInvalidMessage   = errors.New("invalid message")
	ErrProtocolError    = errors.New("protocol error")
	ErrInvalidURL       = errors.New("invalid url")
	ErrAlreadyStarted   = errors.New("monitor already started")
)

// ParseError 结构化消息解析失败
type ParseError struct {
	Payload []byte
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse message %q: %v", e.Payload, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrInvalidMessage) 对解析错误成立
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidMessage
}

// TransportError 包装底层连接错误
func TransportError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// ErrorCenter 错误处理中心
type ErrorCenter struct {
	mutex          sync.RWMutex
	errorCallbacks []func(error) // 错误回调函数列表
}

// NewErrorCenter 创建新的错误处理中心
func NewErrorCenter() *ErrorCenter {
	return &ErrorCenter{
		errorCallbacks: make([]func(error), 0),
	}
}

// AddErrorCallback 添加错误回调函数
func (ec *ErrorCenter) AddErrorCallback(callback func(error)) {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errorCallbacks = append(ec.errorCallbacks, callback)
}

// ReportError 报告错误
func (ec *ErrorCenter) ReportError(err error) {
	if ec == nil || err == nil {
		return
	}
	ec.mutex.RLock()
	callbacks := ec.errorCallbacks
	ec.mutex.RUnlock()

	for _, callback := range callbacks {
		callback(err)
	}
}

// ClearCallbacks 清空所有回调函数
func (ec *ErrorCenter) ClearCallbacks() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.errorCallbacks = make([]func(error), 0)
}
