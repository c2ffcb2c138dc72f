package eventlog

import (
	"io"
	"sync"

	"github.com/BetaCatPro/ws-pingpong/pkg/types"
	"github.com/rs/zerolog"
)

// ConsoleTimeFormat 控制台时间格式，与浏览器 toLocaleTimeString 的粒度一致
const ConsoleTimeFormat = "15:04:05"

// Sink 事件日志接收者，只追加
type Sink interface {
	Append(types.LogEntry)
}

// Buffer 内存中的有序事件日志
type Buffer struct {
	mutex   sync.RWMutex
	entries []types.LogEntry
}

// NewBuffer 创建事件日志缓冲区
func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Append(e types.LogEntry) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.entries = append(b.entries, e)
}

// Entries 返回日志副本
func (b *Buffer) Entries() []types.LogEntry {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	out := make([]types.LogEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Messages 只返回消息文本
func (b *Buffer) Messages() []string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	out := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		out = append(out, e.Message)
	}
	return out
}

// Count 统计与 msg 完全相同的条目数
func (b *Buffer) Count(msg string) int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	n := 0
	for _, e := range b.entries {
		if e.Message == msg {
			n++
		}
	}
	return n
}

// Console 以 "HH:MM:SS message" 行输出到 io.Writer
type Console struct {
	mutex  sync.Mutex
	logger zerolog.Logger
}

// NewConsole 创建控制台输出
func NewConsole(w io.Writer) *Console {
	writer := zerolog.ConsoleWriter{
		Out:          w,
		NoColor:      true,
		TimeFormat:   ConsoleTimeFormat,
		PartsOrder:   []string{zerolog.TimestampFieldName, zerolog.MessageFieldName},
		PartsExclude: []string{zerolog.LevelFieldName, zerolog.CallerFieldName},
	}
	return &Console{logger: zerolog.New(writer)}
}

func (c *Console) Append(e types.LogEntry) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.logger.Log().Time(zerolog.TimestampFieldName, e.Time).Msg(e.Message)
}

// Tee 将条目依次分发给多个 Sink
type Tee []Sink

func (t Tee) Append(e types.LogEntry) {
	for _, s := range t {
		s.Append(e)
	}
}
