package client

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"

	"github.com/BetaCatPro/ws-pingpong/internal/clock"
	"github.com/BetaCatPro/ws-pingpong/internal/config"
	"github.com/BetaCatPro/ws-pingpong/internal/conn"
	"github.com/BetaCatPro/ws-pingpong/internal/errors"
	"github.com/BetaCatPro/ws-pingpong/internal/eventlog"
	"github.com/BetaCatPro/ws-pingpong/internal/monitor"
	"github.com/BetaCatPro/ws-pingpong/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client 存活探测客户端：一个连接，一个监视器
type Client struct {
	url         string
	config      *types.Config
	errorCenter *errors.ErrorCenter
	sink        eventlog.Sink
	logger      *zap.Logger
	scheduler   clock.Scheduler
	headers     map[string]string
	mutex       sync.RWMutex

	connection *conn.Connection
	monitor    *monitor.Monitor

	// 回调函数
	connectHandler    func()
	disconnectHandler func(error)
}

// NewClient 创建新的客户端
func NewClient(cfg *types.Config, sink eventlog.Sink, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	url, err := config.ServerURL(cfg)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = eventlog.NewBuffer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		url:         url,
		config:      cfg,
		errorCenter: errors.NewErrorCenter(),
		sink:        sink,
		logger:      logger.With(zap.String("url", url)),
		scheduler:   clock.Real{},
		headers:     make(map[string]string),
	}
	c.errorCenter.AddErrorCallback(c.handleError)
	return c, nil
}

// Run 连接服务器并阻塞直到连接结束。
// 返回 errors.ErrDeadlineExceeded、传输错误、ctx.Err()，服务端正常关闭时返回 nil。
func (c *Client) Run(ctx context.Context) error {
	mon := monitor.New(monitor.Options{
		Version:             c.config.Version,
		FallbackReadTimeout: c.config.FallbackReadTimeout,
		Scheduler:           c.scheduler,
		Sink:                c.sink,
		Logger:              c.logger,
	})

	header := http.Header{}
	c.mutex.RLock()
	for key, value := range c.headers {
		header.Set(key, value)
	}
	c.mutex.RUnlock()

	c.logger.Info("connecting")
	connection, err := conn.Dial(ctx, c.url, header, c.config, c.errorCenter, c.logger)
	if err != nil {
		mon.HandleError(err)
		mon.HandleClose()
		c.notifyDisconnect(mon.Err())
		return mon.Err()
	}

	c.mutex.Lock()
	c.connection = connection
	c.monitor = mon
	c.mutex.Unlock()

	if err := mon.Start(connection); err != nil {
		connection.Close()
		return err
	}

	if c.connectHandler != nil {
		c.connectHandler()
	}

	done := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		connection.Serve(mon)
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			return mon.Stop()
		case <-done:
			return nil
		}
	})
	if err := g.Wait(); err != nil {
		c.logger.Debug("stop monitor", zap.Error(err))
	}

	result := mon.Err()
	if result == nil && ctx.Err() != nil {
		result = ctx.Err()
	}
	c.logger.Info("connection finished", zap.Error(result), zap.Any("stats", connection.GetStats()))
	c.notifyDisconnect(result)
	return result
}

// SetHeader 设置请求头
func (c *Client) SetHeader(key, value string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.headers[key] = value
}

// SetConnectHandler 设置连接成功回调
func (c *Client) SetConnectHandler(handler func()) {
	c.connectHandler = handler
}

// SetDisconnectHandler 设置断开连接回调
func (c *Client) SetDisconnectHandler(handler func(error)) {
	c.disconnectHandler = handler
}

// SetScheduler 替换计时器实现，需在 Run 之前调用
func (c *Client) SetScheduler(s clock.Scheduler) {
	c.scheduler = s
}

// OnError 注册错误回调（解析错误、传输错误）
func (c *Client) OnError(callback func(error)) {
	c.errorCenter.AddErrorCallback(callback)
}

// handleError 记录报告到错误中心的错误
func (c *Client) handleError(err error) {
	if stderrors.Is(err, errors.ErrConnectionClosed) {
		c.logger.Debug("message after close", zap.Error(err))
		return
	}
	c.logger.Error("client error", zap.Error(err))
}

func (c *Client) notifyDisconnect(err error) {
	if c.disconnectHandler != nil {
		c.disconnectHandler(err)
	}
}

// IsConnected 检查连接状态
func (c *Client) IsConnected() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.connection != nil && c.connection.IsConnected()
}

// GetStats 获取统计信息
func (c *Client) GetStats() types.ConnectionStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if c.connection == nil {
		return types.ConnectionStats{}
	}
	return c.connection.GetStats()
}

// State 返回监视器的生命周期状态
func (c *Client) State() types.State {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if c.monitor == nil {
		return types.StateConnecting
	}
	return c.monitor.State()
}

// URL 返回服务端地址
func (c *Client) URL() string {
	return c.url
}
