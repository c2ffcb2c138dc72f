package conn

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/BetaCatPro/ws-pingpong/internal/errors"
	"github.com/BetaCatPro/ws-pingpong/internal/utils"
	"github.com/BetaCatPro/ws-pingpong/pkg/types"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// closeGracePeriod 主动关闭时发送关闭帧的写超时
const closeGracePeriod = time.Second

// Handler 连接事件处理者
type Handler interface {
	HandleOpen()
	HandleMessage(types.Message) error
	HandleError(error)
	HandleClose()
}

// Connection WebSocket连接
type Connection struct {
	conn        *websocket.Conn     // 底层WebSocket连接
	config      *types.Config       // 配置信息
	errorCenter *errors.ErrorCenter // 错误处理中心
	logger      *zap.Logger

	sendMutex sync.Mutex // 发送锁
	closeOnce sync.Once

	isConnected atomic.Bool // 连接状态原子变量
	closing     atomic.Bool // 本端主动关闭

	received   atomic.Int64
	sent       atomic.Int64
	sendErrors atomic.Int64

	id string // 连接ID
}

// Dial 建立WebSocket连接
func Dial(ctx context.Context, url string, header http.Header, config *types.Config,
	errorCenter *errors.ErrorCenter, logger *zap.Logger) (*Connection, error) {
	if !utils.IsValidURL(url) {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidURL, url)
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.HandshakeTimeout,
	}

	wsConn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewConnection(wsConn, config, errorCenter, logger), nil
}

// NewConnection 包装已建立的WebSocket连接
func NewConnection(wsConn *websocket.Conn, config *types.Config,
	errorCenter *errors.ErrorCenter, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Connection{
		conn:        wsConn,
		config:      config,
		errorCenter: errorCenter,
		id:          utils.GenerateConnectionID(),
	}
	c.logger = logger.With(zap.String("conn_id", c.id))
	if config.ReadLimit > 0 {
		wsConn.SetReadLimit(config.ReadLimit)
	}
	c.isConnected.Store(true)
	return c
}

// Serve 读取消息并分发给 handler，直到连接结束。
// 事件顺序：open，若干 message，异常结束时 error，最后恰好一次 close。
func (c *Connection) Serve(h Handler) {
	h.HandleOpen()
	defer h.HandleClose()
	defer func() {
		c.markClosed()
		c.conn.Close()
	}()

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.isAbnormal(err) {
				c.errorCenter.ReportError(errors.TransportError(err))
				h.HandleError(err)
			} else {
				c.logger.Debug("read loop finished", zap.Error(err))
			}
			return
		}

		c.received.Inc()
		msg := types.Message{
			Type:    msgType,
			Content: data,
			ID:      utils.GenerateMessageID(),
		}
		if err := h.HandleMessage(msg); err != nil {
			c.errorCenter.ReportError(fmt.Errorf("handle message %s: %w", msg.ID, err))
		}
	}
}

// isAbnormal 正常关闭码或本端主动关闭不算错误
func (c *Connection) isAbnormal(err error) bool {
	if c.closing.Load() {
		return false
	}
	if _, ok := err.(*websocket.CloseError); ok {
		return websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
	}
	return true
}

// Send 发送消息
func (c *Connection) Send(msg types.Message) error {
	if !c.isConnected.Load() {
		return errors.ErrConnectionClosed
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()

	if c.config.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if err := c.conn.WriteMessage(msg.Type, msg.Content); err != nil {
		c.sendErrors.Inc()
		return fmt.Errorf("write message failed: %w", err)
	}
	c.sent.Inc()
	return nil
}

// Close 主动关闭连接，可重复调用
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		if !c.isConnected.Load() {
			return
		}

		c.sendMutex.Lock()
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := c.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(closeGracePeriod)); werr != nil {
			c.logger.Debug("write close frame", zap.Error(werr))
		}
		c.sendMutex.Unlock()

		c.markClosed()
		err = c.conn.Close()
	})
	return err
}

func (c *Connection) markClosed() {
	c.isConnected.Store(false)
}

// IsConnected 检查连接状态
func (c *Connection) IsConnected() bool {
	return c.isConnected.Load()
}

// GetStats 获取连接统计信息
func (c *Connection) GetStats() types.ConnectionStats {
	return types.ConnectionStats{
		MessagesReceived: c.received.Load(),
		MessagesSent:     c.sent.Load(),
		SendErrors:       c.sendErrors.Load(),
	}
}

// GetID 获取连接ID
func (c *Connection) GetID() string {
	return c.id
}
