package dto

// ── 积分 / 目标 / 通知 DTO ──

// AdjustPointsRequest 管理员调整积分
type AdjustPointsRequest struct {
	UserID   string `json:"user_id"  binding:"required,uuid"`
	Points   int    `json:"points"   binding:"required,min=-100,max=100"`
	Reason   string `json:"reason"   binding:"required,max=500"`
	Category string `json:"category" binding:"omitempty,oneof=manual bonus task"`
}

// PointsHistoryQuery 积分流水查询
type PointsHistoryQuery struct {
	UserID string `form:"user_id" binding:"omitempty,uuid"`
	Limit  int    `form:"limit"   binding:"omitempty,min=1,max=500"`
}

// GoalDateQuery 日目标查询
type GoalDateQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// GoalMonthQuery 月目标查询
type GoalMonthQuery struct {
	Month string `form:"month" binding:"omitempty,datetime=2006-01"`
}

// RefreshGoalsRequest 手动刷新目标
type RefreshGoalsRequest struct {
	Date  string `json:"date"  binding:"omitempty,datetime=2006-01-02"`
	Month string `json:"month" binding:"omitempty,datetime=2006-01"`
}

// ExportQuery 导出查询
type ExportQuery struct {
	Month string `form:"month" binding:"required,datetime=2006-01"`
}

// LimitQuery 条数限制查询参数（排行榜、通知）
type LimitQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}
