package handler

import (
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"villasun/backend/internal/api/middleware"
	"villasun/backend/internal/model"
	"villasun/backend/internal/realtime"
	"villasun/backend/pkg/response"
)

const defaultHeartbeat = 25 * time.Second

// RealtimeHandler 数据变更推送（Server-Sent Events）
type RealtimeHandler struct {
	hub       *realtime.Hub
	heartbeat time.Duration
}

// NewRealtimeHandler 创建 RealtimeHandler；heartbeat <= 0 时使用默认 25s
func NewRealtimeHandler(hub *realtime.Hub, heartbeat time.Duration) *RealtimeHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &RealtimeHandler{hub: hub, heartbeat: heartbeat}
}

// Stream 订阅数据变更
// GET /api/v1/realtime?tables=check_ins,notifications
// 员工只能收到与自己相关的变更；管理员可收到全部
func (h *RealtimeHandler) Stream(c *gin.Context) {
	tables, ok := parseTables(c.Query("tables"))
	if !ok {
		response.BadRequest(c, 18301, "无效的订阅表")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	filter := userID
	if c.GetString(middleware.CtxRole) == model.RoleAdmin {
		filter = ""
	}

	sub := h.hub.Subscribe(tables, filter)
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.SSEvent("ready", gin.H{"tables": tables})
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, open := <-sub.C:
			if !open {
				return false
			}
			c.SSEvent("change", ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

// parseTables 解析逗号分隔的表名；为空时订阅全部
func parseTables(raw string) ([]string, bool) {
	if strings.TrimSpace(raw) == "" {
		return realtime.Tables, true
	}
	var tables []string
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !realtime.IsKnownTable(t) {
			return nil, false
		}
		tables = append(tables, t)
	}
	return tables, len(tables) > 0
}
