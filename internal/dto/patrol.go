package dto

// ── 巡逻模块 DTO ──

// CreateLocationRequest 创建巡逻点位
type CreateLocationRequest struct {
	Name        string `json:"name"        binding:"required,max=100"`
	QRCode      string `json:"qr_code"     binding:"required,max=64"`
	Description string `json:"description" binding:"omitempty,max=500"`
	OrderIndex  int    `json:"order_index" binding:"omitempty,min=0"`
}

// SetPatrolScheduleRequest 设置巡逻排班
type SetPatrolScheduleRequest struct {
	Date       string `json:"date"        binding:"required,datetime=2006-01-02"`
	Shift      string `json:"shift"       binding:"required,oneof=morning late"`
	AssignedTo string `json:"assigned_to" binding:"required,uuid"`
}

// ScanRequest 巡逻扫码
type ScanRequest struct {
	QRCode   string `json:"qr_code"   binding:"required,max=64"`
	PhotoURL string `json:"photo_url" binding:"omitempty,max=500"`
}

// TestScanRequest 管理员测试扫码（不落库）
type TestScanRequest struct {
	QRCode             string   `json:"qr_code"              binding:"required,max=64"`
	ScannedLocationIDs []string `json:"scanned_location_ids" binding:"omitempty,dive,uuid"`
	PhotoURL           string   `json:"photo_url"            binding:"omitempty,max=500"`
}

// PatrolDateQuery 按日期查询巡逻
type PatrolDateQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}
