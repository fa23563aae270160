package dto

import "time"

// ── 任务 / 清单 DTO ──

// CreateTaskRequest 管理员创建任务；AssignedTo 为空时任何员工都可认领
type CreateTaskRequest struct {
	Title       string   `json:"title"        binding:"required,max=200"`
	Description string   `json:"description"  binding:"omitempty,max=2000"`
	Category    string   `json:"category"     binding:"omitempty,oneof=room_cleaning small_cleaning extras repair"`
	AssignedTo  string   `json:"assigned_to"  binding:"omitempty,uuid"`
	DueDate     string   `json:"due_date"     binding:"omitempty,datetime=2006-01-02"`
	PointsValue int      `json:"points_value" binding:"omitempty,min=0,max=100"`
	Items       []string `json:"items"        binding:"omitempty,max=50,dive,required,max=300"`
}

// TaskQuery 管理员按状态筛选任务
type TaskQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending in_progress pending_review completed archived"`
}

// TaskDateQuery 员工按日期查看任务与清单，为空时取 ICT 今日
type TaskDateQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// ToggleItemRequest 勾选 / 取消勾选子项
type ToggleItemRequest struct {
	ItemID string `json:"item_id" binding:"required,max=64"`
}

// SubmitTaskRequest 员工提交任务待审核
type SubmitTaskRequest struct {
	HelperID  string   `json:"helper_id"  binding:"omitempty,uuid"`
	PhotoURLs []string `json:"photo_urls" binding:"omitempty,max=10,dive,max=500"`
	Notes     string   `json:"notes"      binding:"omitempty,max=1000"`
}

// ReviewTaskRequest 管理员逐项审核任务
// 驳回时 RejectedItems 与 AdminNotes 至少填写一项
type ReviewTaskRequest struct {
	Approved      *bool    `json:"approved"       binding:"required"`
	RejectedItems []string `json:"rejected_items" binding:"omitempty,dive,max=64"`
	AdminNotes    string   `json:"admin_notes"    binding:"omitempty,max=1000"`
	AdminPhotos   []string `json:"admin_photos"   binding:"omitempty,max=10,dive,max=500"`
	BonusPoints   int      `json:"bonus_points"   binding:"omitempty,min=0,max=50"`
}

// CreateChecklistRequest 管理员创建清单模板
type CreateChecklistRequest struct {
	Title       string   `json:"title"        binding:"required,max=200"`
	Description string   `json:"description"  binding:"omitempty,max=2000"`
	Category    string   `json:"category"     binding:"omitempty,oneof=room_cleaning small_cleaning extras repair"`
	Recurrence  string   `json:"recurrence"   binding:"required,oneof=one_time daily weekly monthly"`
	PointsValue int      `json:"points_value" binding:"omitempty,min=0,max=100"`
	Items       []string `json:"items"        binding:"required,min=1,max=50,dive,required,max=300"`
	AssignedTo  string   `json:"assigned_to"  binding:"omitempty,uuid"`
	StartDate   string   `json:"start_date"   binding:"omitempty,datetime=2006-01-02"`
}

// SubmitChecklistRequest 员工提交清单实例
type SubmitChecklistRequest struct {
	PhotoURLs []string `json:"photo_urls" binding:"omitempty,max=10,dive,max=500"`
}

// ReviewChecklistRequest 管理员审核清单实例，驳回时 Reason 必填
type ReviewChecklistRequest struct {
	Approved   *bool  `json:"approved"    binding:"required"`
	Reason     string `json:"reason"      binding:"omitempty,max=500"`
	AdminPhoto string `json:"admin_photo" binding:"omitempty,max=500"`
}

// TaskItemResponse 子项
type TaskItemResponse struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	IsCompleted   bool       `json:"is_completed"`
	CompletedByID *string    `json:"completed_by_id,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	AdminRejected bool       `json:"admin_rejected"`
}

// TaskResponse 任务信息
type TaskResponse struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Category        string             `json:"category"`
	AssignedTo      *string            `json:"assigned_to,omitempty"`
	AssigneeName    string             `json:"assignee_name,omitempty"`
	HelperID        *string            `json:"helper_id,omitempty"`
	Status          string             `json:"status"`
	DueDate         string             `json:"due_date,omitempty"`
	PointsValue     int                `json:"points_value"`
	BonusPoints     int                `json:"bonus_points"`
	Items           []TaskItemResponse `json:"items"`
	PhotoURLs       []string           `json:"photo_urls"`
	AdminPhotos     []string           `json:"admin_photos"`
	CompletionNotes string             `json:"completion_notes"`
	AdminNotes      string             `json:"admin_notes"`
	RejectionReason string             `json:"rejection_reason"`
	ReopenedCount   int                `json:"reopened_count"`
	ReviewedBy      *string            `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time         `json:"reviewed_at,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// TaskReviewResponse 审核结果，PointsAwarded 为每位参与者获得的积分
type TaskReviewResponse struct {
	Task          TaskResponse `json:"task"`
	PointsAwarded int          `json:"points_awarded"`
	AwardedUsers  []string     `json:"awarded_users"`
}

// ChecklistResponse 清单模板
type ChecklistResponse struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Category          string             `json:"category"`
	Recurrence        string             `json:"recurrence"`
	PointsValue       int                `json:"points_value"`
	Items             []TaskItemResponse `json:"items"`
	AssignedTo        *string            `json:"assigned_to,omitempty"`
	StartDate         string             `json:"start_date"`
	LastGeneratedDate string             `json:"last_generated_date,omitempty"`
	IsActive          bool               `json:"is_active"`
}

// ChecklistInstanceResponse 清单实例
type ChecklistInstanceResponse struct {
	ID              string             `json:"id"`
	ChecklistID     *string            `json:"checklist_id,omitempty"`
	Title           string             `json:"title"`
	InstanceDate    string             `json:"instance_date"`
	AssignedTo      *string            `json:"assigned_to,omitempty"`
	Status          string             `json:"status"`
	Items           []TaskItemResponse `json:"items"`
	PointsValue     int                `json:"points_value"`
	PointsAwarded   int                `json:"points_awarded"`
	PhotoURLs       []string           `json:"photo_urls"`
	AdminPhoto      string             `json:"admin_photo,omitempty"`
	CompletedBy     *string            `json:"completed_by,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at,omitempty"`
	ReviewedAt      *time.Time         `json:"reviewed_at,omitempty"`
	RejectionReason string             `json:"rejection_reason"`
}

// GenerateChecklistsResult 生成清单实例结果
type GenerateChecklistsResult struct {
	Date      string `json:"date"`
	Generated int    `json:"generated"`
}
