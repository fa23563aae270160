package dto

// ── 排班模块 DTO ──

// UpsertWeekRequest 设置某员工一周排班（周一至周日共 7 天）
type UpsertWeekRequest struct {
	StaffID   string   `json:"staff_id"   binding:"required,uuid"`
	WeekStart string   `json:"week_start" binding:"required,datetime=2006-01-02"`
	Shifts    []string `json:"shifts"     binding:"required,len=7,dive,oneof=early late off"`
	Publish   bool     `json:"publish"`
}

// PublishWeekRequest 发布一周排班
type PublishWeekRequest struct {
	WeekStart string `json:"week_start" binding:"required,datetime=2006-01-02"`
}

// WeekQuery 按周查询
type WeekQuery struct {
	WeekStart string `form:"week_start" binding:"omitempty,datetime=2006-01-02"`
}
