package service

import (
	"context"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
)

// Clock 当前时间来源，测试中替换为固定时间
type Clock func() time.Time

// Actor 发起操作的用户（由请求会话提供）
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin 是否管理员
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// 自由文本（迟到原因、驳回原因、离岗原因）去除所有 HTML
var textPolicy = bluemonday.StrictPolicy()

func sanitize(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// notify 写入一条通知；失败仅记录日志，不影响主流程
func notify(ctx context.Context, repo *repository.Repository, logger *zap.Logger, userID, typ, title, message string) {
	n := &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
	}
	if err := repo.Notification.Create(ctx, n); err != nil {
		logger.Warn("写入通知失败",
			zap.String("user_id", userID),
			zap.String("type", typ),
			zap.Error(err),
		)
	}
}

// logAdminAction 写入管理操作日志（调用方决定是否在事务内）
func logAdminAction(ctx context.Context, repo *repository.Repository, adminID, action string, targetUserID *string, details model.JSONMap) error {
	return repo.AdminLog.Create(ctx, &model.AdminLog{
		AdminID:      &adminID,
		ActionType:   action,
		TargetUserID: targetUserID,
		Details:      details,
	})
}

// ── 模型 → 响应 ──

func toProfileResponse(p *model.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		ID:                p.ID,
		Email:             p.Email,
		FullName:          p.FullName,
		Role:              p.Role,
		TotalPoints:       p.TotalPoints,
		AvatarColor:       p.AvatarColor,
		PreferredLanguage: p.PreferredLanguage,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
	}
}

func toCheckInResponse(c *model.CheckIn) dto.CheckInResponse {
	resp := dto.CheckInResponse{
		ID:              c.ID,
		UserID:          c.UserID,
		CheckInDate:     c.CheckInDate.String(),
		CheckInTime:     c.CheckInTime,
		ShiftType:       c.ShiftType,
		IsLate:          c.IsLate,
		MinutesLate:     c.MinutesLate,
		LateReason:      c.LateReason,
		Status:          c.Status,
		PointsAwarded:   c.PointsAwarded,
		ApprovedBy:      c.ApprovedBy,
		ApprovedAt:      c.ApprovedAt,
		RejectionReason: c.RejectionReason,
		CheckOutTime:    c.CheckOutTime,
		IsManual:        c.IsManual,
	}
	if c.WorkHours.Valid {
		h := c.WorkHours.Decimal.StringFixed(2)
		resp.WorkHours = &h
	}
	if c.User != nil {
		resp.UserName = c.User.FullName
	}
	return resp
}

func toDepartureResponse(d *model.DepartureRequest) dto.DepartureResponse {
	resp := dto.DepartureResponse{
		ID:              d.ID,
		UserID:          d.UserID,
		RequestDate:     d.RequestDate.String(),
		ShiftType:       d.ShiftType,
		Reason:          d.Reason,
		Status:          d.Status,
		ApprovedBy:      d.ApprovedBy,
		ApprovedAt:      d.ApprovedAt,
		RejectionReason: d.RejectionReason,
		CreatedAt:       d.CreatedAt,
	}
	if d.User != nil {
		resp.UserName = d.User.FullName
	}
	return resp
}

func toLocationResponse(l *model.PatrolLocation) dto.LocationResponse {
	return dto.LocationResponse{
		ID:          l.ID,
		Name:        l.Name,
		QRCode:      l.QRCode,
		Description: l.Description,
		OrderIndex:  l.OrderIndex,
	}
}

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}
