package dto

// ── 签到 / 审批 / 转盘 DTO ──

// CheckInRequest 员工签到请求
// ShiftType 为空时使用当天排班的班次
type CheckInRequest struct {
	ShiftType  string `json:"shift_type"  binding:"omitempty,oneof=early late"`
	LateReason string `json:"late_reason" binding:"omitempty,max=500"`
}

// HistoryQuery 签到历史查询
type HistoryQuery struct {
	Month string `form:"month" binding:"omitempty,datetime=2006-01"`
}

// ApproveCheckInRequest 审批通过请求，CustomPoints 为空时使用预估分
type ApproveCheckInRequest struct {
	CustomPoints *int `json:"custom_points" binding:"omitempty,min=-5,max=5"`
}

// RejectRequest 驳回请求
type RejectRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// ManualCheckInRequest 管理员补录签到
type ManualCheckInRequest struct {
	UserID     string `json:"user_id"     binding:"required,uuid"`
	Date       string `json:"date"        binding:"required,datetime=2006-01-02"`
	Time       string `json:"time"        binding:"required,datetime=15:04"`
	ShiftType  string `json:"shift_type"  binding:"required,oneof=early late"`
	LateReason string `json:"late_reason" binding:"omitempty,max=500"`
}

// CheckoutRequest 管理员签退，Time 为空时取当前时间
type CheckoutRequest struct {
	CheckInID string `json:"check_in_id" binding:"required,uuid"`
	Time      string `json:"time"        binding:"omitempty,datetime=15:04"`
}

// SpinRequest 转盘请求
type SpinRequest struct {
	CheckInID string `json:"check_in_id" binding:"required,uuid"`
}

// CreateDepartureRequest 提前离岗申请
type CreateDepartureRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}
