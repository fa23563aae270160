// Package realtime 数据变更的进程内分发
//
// 数据库触发器通过 pg_notify 发出行级变更，pgnotify.Listener 收到后交给 Hub，
// Hub 按表名（可选再按 user_id）分发给所有订阅者。
package realtime

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// 支持订阅的表
var Tables = []string{
	"check_ins",
	"departure_requests",
	"shift_assignments",
	"points_history",
	"daily_point_goals",
	"patrol_rounds",
	"patrol_scans",
	"fortune_wheel_spins",
	"notifications",
	"tasks",
	"checklist_instances",
}

// IsKnownTable 判断表名是否可订阅
func IsKnownTable(table string) bool {
	for _, t := range Tables {
		if t == table {
			return true
		}
	}
	return false
}

// Event 一条行级变更
type Event struct {
	Table  string `json:"table"`
	Op     string `json:"op"` // INSERT | UPDATE | DELETE
	ID     string `json:"id"`
	UserID string `json:"user_id,omitempty"`
}

// Subscription 订阅句柄，使用完必须 Close
type Subscription struct {
	C <-chan Event

	ch     chan Event
	tables map[string]bool
	userID string
	hub    *Hub
	once   sync.Once
}

func (s *Subscription) matches(ev Event) bool {
	if !s.tables[ev.Table] {
		return false
	}
	return s.userID == "" || s.userID == ev.UserID
}

// Close 取消订阅并关闭通道，可重复调用
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub 变更事件分发中心
// Publish 从不阻塞：订阅者缓冲区满时丢弃该事件
type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	buffer  int
	closed  bool
	dropped atomic.Int64
	logger  *zap.Logger
}

// NewHub 创建 Hub，buffer 为每个订阅者的通道容量
func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe 订阅若干表；userID 非空时只接收该用户的变更
func (h *Hub) Subscribe(tables []string, userID string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{
		C:      ch,
		ch:     ch,
		tables: make(map[string]bool, len(tables)),
		userID: userID,
		hub:    h,
	}
	for _, t := range tables {
		sub.tables[t] = true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// Publish 分发一条事件
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		if !sub.matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// HandleNotification 作为 pgnotify.Handler 使用，payload 为触发器生成的 JSON
func (h *Hub) HandleNotification(channel, payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		h.logger.Warn("无法解析变更通知",
			zap.String("channel", channel),
			zap.String("payload", payload),
			zap.Error(err),
		)
		return
	}
	if ev.Table == "" {
		return
	}
	h.Publish(ev)
}

// Subscribers 当前订阅数
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped 因订阅者过慢被丢弃的事件数
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close 关闭所有订阅，之后的订阅立即得到已关闭的通道
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.ch)
		delete(h.subs, sub)
	}
}
