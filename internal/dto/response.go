package dto

import "time"

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int             `json:"expires_in"` // Access Token 有效期（秒）
	User         ProfileResponse `json:"user"`
}

// ProfileResponse 员工档案响应
type ProfileResponse struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	FullName          string `json:"full_name"`
	Role              string `json:"role"`
	TotalPoints       int    `json:"total_points"`
	AvatarColor       string `json:"avatar_color"`
	PreferredLanguage string `json:"preferred_language"`
	CreatedAt         string `json:"created_at"`
}

// CreateUserResponse 创建员工响应（含一次性临时密码）
type CreateUserResponse struct {
	User         ProfileResponse `json:"user"`
	TempPassword string          `json:"temp_password"`
}

// DeleteUserResult 删除员工结果
type DeleteUserResult struct {
	DeletedUserID   string `json:"deleted_user_id"`
	ProfileDeleted  bool   `json:"profile_deleted"`  // 档案不存在时为 false
	IdentityDeleted bool   `json:"identity_deleted"` // 身份删除失败时为 false（仅记录日志）
	RowsCleaned     int64  `json:"rows_cleaned"`
}

// FunctionResponse delete-user 函数响应（字段名沿用前端约定）
type FunctionResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	DeletedUserID string `json:"deletedUserId,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ── 排班 ──

// ShiftAssignmentResponse 单日排班
type ShiftAssignmentResponse struct {
	ID          string `json:"id"`
	StaffID     string `json:"staff_id"`
	StaffName   string `json:"staff_name,omitempty"`
	ShiftDate   string `json:"shift_date"`
	Shift       string `json:"shift"`
	IsPublished bool   `json:"is_published"`
}

// WeekScheduleResponse 一周排班
type WeekScheduleResponse struct {
	WeekStart   string                    `json:"week_start"`
	Days        []string                  `json:"days"`
	Assignments []ShiftAssignmentResponse `json:"assignments"`
}

// PublishResponse 发布结果
type PublishResponse struct {
	WeekStart string `json:"week_start"`
	Published int64  `json:"published"`
}

// ── 签到 ──

// EligibilityResponse 签到资格
type EligibilityResponse struct {
	Eligible  bool   `json:"eligible"`
	Shift     string `json:"shift"`
	Threshold string `json:"threshold"`
	FailOpen  bool   `json:"fail_open"` // 排班查询失败后按默认放行
	Reason    string `json:"reason,omitempty"`
}

// CheckInResult 签到结果
type CheckInResult struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	CheckInID        string `json:"check_in_id"`
	Status           string `json:"status"`
	IsLate           bool   `json:"is_late"`
	MinutesLate      int    `json:"minutes_late"`
	PointsAwarded    int    `json:"points_awarded"`
	ShowFortuneWheel bool   `json:"show_fortune_wheel"`
}

// CheckInResponse 签到记录
type CheckInResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	UserName        string     `json:"user_name,omitempty"`
	CheckInDate     string     `json:"check_in_date"`
	CheckInTime     time.Time  `json:"check_in_time"`
	ShiftType       string     `json:"shift_type"`
	IsLate          bool       `json:"is_late"`
	MinutesLate     int        `json:"minutes_late"`
	LateReason      string     `json:"late_reason,omitempty"`
	Status          string     `json:"status"`
	PointsAwarded   int        `json:"points_awarded"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CheckOutTime    *time.Time `json:"check_out_time,omitempty"`
	WorkHours       *string    `json:"work_hours,omitempty"`
	IsManual        bool       `json:"is_manual"`
}

// CheckoutResult 签退结果
type CheckoutResult struct {
	CheckInID    string    `json:"check_in_id"`
	CheckOutTime time.Time `json:"check_out_time"`
	WorkHours    string    `json:"work_hours"`
}

// ── 幸运转盘 ──

// WheelSegment 转盘扇区（展示用）
type WheelSegment struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// SpinResult 转盘结果
type SpinResult struct {
	Success       bool   `json:"success"`
	AlreadySpun   bool   `json:"already_spun"`
	SpinID        string `json:"spin_id"`
	SegmentIndex  int    `json:"segment_index"`
	RewardType    string `json:"reward_type"`
	RewardValue   int    `json:"reward_value"`
	RewardLabel   string `json:"reward_label"`
	PointsApplied int    `json:"points_applied"`
}

// WheelStatusResponse 转盘状态（用于补转）
type WheelStatusResponse struct {
	AlreadySpun      bool           `json:"already_spun"`
	PendingCheckInID string         `json:"pending_check_in_id,omitempty"`
	Spin             *SpinResult    `json:"spin,omitempty"`
	Segments         []WheelSegment `json:"segments"`
}

// ── 离岗申请 ──

// DepartureResponse 离岗申请
type DepartureResponse struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	UserName        string     `json:"user_name,omitempty"`
	RequestDate     string     `json:"request_date"`
	ShiftType       string     `json:"shift_type"`
	Reason          string     `json:"reason"`
	Status          string     `json:"status"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ── 巡逻 ──

// LocationResponse 巡逻点位
type LocationResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	QRCode      string `json:"qr_code"`
	Description string `json:"description,omitempty"`
	OrderIndex  int    `json:"order_index"`
}

// PatrolScheduleResponse 巡逻排班
type PatrolScheduleResponse struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Shift      string `json:"shift"`
	AssignedTo string `json:"assigned_to"`
}

// PatrolRoundResponse 巡逻轮次及进度
type PatrolRoundResponse struct {
	ID                 string     `json:"id"`
	Date               string     `json:"date"`
	TimeSlot           string     `json:"time_slot"`
	AssignedTo         string     `json:"assigned_to"`
	ScheduledTime      time.Time  `json:"scheduled_time"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	Status             string     `json:"status"` // upcoming | active | completed | missed
	ScannedCount       int        `json:"scanned_count"`
	TotalLocations     int        `json:"total_locations"`
	ScannedLocationIDs []string   `json:"scanned_location_ids"`
	PointsAwarded      int        `json:"points_awarded"`
}

// PatrolTodayResponse 今日巡逻概览
type PatrolTodayResponse struct {
	Date        string                `json:"date"`
	Rounds      []PatrolRoundResponse `json:"rounds"`
	ActiveRound *PatrolRoundResponse  `json:"active_round,omitempty"`
	Locations   []LocationResponse    `json:"locations"`
}

// ScanResult 扫码结果
type ScanResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	PhotoRequired  bool   `json:"photo_required"`
	RoundID        string `json:"round_id,omitempty"`
	LocationID     string `json:"location_id"`
	LocationName   string `json:"location_name"`
	ScannedCount   int    `json:"scanned_count"`
	TotalLocations int    `json:"total_locations"`
	RoundCompleted bool   `json:"round_completed"`
	PointsAwarded  int    `json:"points_awarded"`
}

// ── 积分 / 目标 ──

// PointsHistoryResponse 积分流水
type PointsHistoryResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	PointsChange int       `json:"points_change"`
	Reason       string    `json:"reason"`
	Category     string    `json:"category"`
	CreatedBy    *string   `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	FullName    string `json:"full_name"`
	AvatarColor string `json:"avatar_color"`
	TotalPoints int    `json:"total_points"`
}

// ResetPointsResponse 积分清零结果
type ResetPointsResponse struct {
	ProfilesReset int64 `json:"profiles_reset"`
}

// GoalProgress 目标进度（个人或团队）
type GoalProgress struct {
	Achievable     int     `json:"achievable"`
	Achieved       int     `json:"achieved"`
	Percentage     float64 `json:"percentage"`
	PercentageText string  `json:"percentage_text"`
	ColorStatus    string  `json:"color_status"`
}

// MemberGoalResponse 员工目标
type MemberGoalResponse struct {
	UserID   string       `json:"user_id"`
	FullName string       `json:"full_name"`
	Progress GoalProgress `json:"progress"`
}

// DailyGoalOverview 团队日目标
type DailyGoalOverview struct {
	Date    string               `json:"date"`
	Team    GoalProgress         `json:"team"`
	Members []MemberGoalResponse `json:"members"`
}

// MyDailyGoalResponse 个人日目标
type MyDailyGoalResponse struct {
	Date      string       `json:"date"`
	Scheduled bool         `json:"scheduled"` // 当日无排班时为 false
	Progress  GoalProgress `json:"progress"`
	Team      GoalProgress `json:"team"`
}

// MonthlyGoalOverview 团队月目标
type MonthlyGoalOverview struct {
	Month   string               `json:"month"`
	Team    GoalProgress         `json:"team"`
	Members []MemberGoalResponse `json:"members"`
}

// ── 通知 / 运维 ──

// NotificationResponse 通知
type NotificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminLogResponse 管理操作日志
type AdminLogResponse struct {
	ID           string                 `json:"id"`
	AdminID      *string                `json:"admin_id,omitempty"`
	ActionType   string                 `json:"action_type"`
	TargetUserID *string                `json:"target_user_id,omitempty"`
	Details      map[string]interface{} `json:"details"`
	CreatedAt    time.Time              `json:"created_at"`
}

// MarkReadResponse 标记已读结果
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

// DailyResetResult 每日重置结果
// FailedSteps 记录失败的步骤名，其余步骤照常执行
type DailyResetResult struct {
	Date                string   `json:"date"`
	RoundsCreated       int64    `json:"rounds_created"`
	DailyGoals          int      `json:"daily_goals"`
	MonthlyGoals        int      `json:"monthly_goals"`
	NotificationsPurged int64    `json:"notifications_purged"`
	ChecklistsGenerated int      `json:"checklists_generated"`
	TasksArchived       int64    `json:"tasks_archived"`
	ChecklistsArchived  int64    `json:"checklists_archived"`
	FailedSteps         []string `json:"failed_steps,omitempty"`
}

// UploadResponse 上传结果
type UploadResponse struct {
	URL string `json:"url"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}
