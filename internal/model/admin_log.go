package model

import "time"

// 管理操作类型
const (
	AdminActionManualCheckIn   = "manual_checkin"
	AdminActionManualCheckout  = "manual_checkout"
	AdminActionPointsAdjust    = "points_adjust"
	AdminActionPointsReset     = "points_reset"
	AdminActionDeleteUser      = "delete_user"
	AdminActionDailyReset      = "daily_reset"
	AdminActionTaskReview      = "task_review"
	AdminActionChecklistReview = "checklist_review"
)

// AdminLog 管理操作日志，对应 admin_logs
type AdminLog struct {
	ID           string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AdminID      *string   `gorm:"type:uuid"                                      json:"admin_id,omitempty"`
	ActionType   string    `gorm:"type:text;not null"                             json:"action_type"`
	TargetUserID *string   `gorm:"type:uuid"                                      json:"target_user_id,omitempty"`
	Details      JSONMap   `gorm:"type:jsonb;not null;default:'{}'"               json:"details"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AdminLog) TableName() string { return "admin_logs" }
