package model

import "time"

// 通知类型
const (
	NotificationCheckInApproved   = "check_in_approved"
	NotificationCheckInRejected   = "check_in_rejected"
	NotificationDepartureApproved = "departure_approved"
	NotificationDepartureRejected = "departure_rejected"
	NotificationPointsAdjusted    = "points_adjusted"
	NotificationTaskApproved      = "task_approved"
	NotificationTaskRejected      = "task_rejected"
	NotificationChecklistApproved = "checklist_approved"
	NotificationChecklistRejected = "checklist_rejected"
)

// Notification 通知消息表，对应 notifications
type Notification struct {
	ID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    string    `gorm:"type:uuid;not null"                             json:"user_id"`
	Type      string    `gorm:"type:text;not null"                             json:"type"`
	Title     string    `gorm:"type:text;not null"                             json:"title"`
	Message   string    `gorm:"type:text;not null;default:''"                  json:"message"`
	IsRead    bool      `gorm:"not null;default:false"                         json:"is_read"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
