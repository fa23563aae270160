package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// 任务状态
const (
	TaskStatusPending       = "pending"
	TaskStatusInProgress    = "in_progress"
	TaskStatusPendingReview = "pending_review"
	TaskStatusCompleted     = "completed"
	TaskStatusArchived      = "archived"
)

// 任务分类
const (
	TaskCategoryRoomCleaning  = "room_cleaning"
	TaskCategorySmallCleaning = "small_cleaning"
	TaskCategoryExtras        = "extras"
	TaskCategoryRepair        = "repair"
)

// 清单实例状态：pending → completed（已提交待审）→ approved；驳回回到 pending
const (
	ChecklistStatusPending   = "pending"
	ChecklistStatusCompleted = "completed"
	ChecklistStatusApproved  = "approved"
	ChecklistStatusArchived  = "archived"
)

// 清单模板重复周期
const (
	RecurrenceOneTime = "one_time"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

// ── JSONB 子项 ──

// TaskItem 任务 / 清单中的一个勾选项
type TaskItem struct {
	ID            string     `json:"id"`
	Text          string     `json:"text"`
	IsCompleted   bool       `json:"is_completed"`
	CompletedByID *string    `json:"completed_by_id,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	AdminRejected bool       `json:"admin_rejected,omitempty"`
}

// TaskItems 对应 JSONB 数组
type TaskItems []TaskItem

// Scan 解析 JSONB 文本
func (items *TaskItems) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*items = nil
		return err
	}
	return json.Unmarshal(raw, items)
}

// Value 序列化为 JSONB 文本
func (items TaskItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// AllCompleted 所有子项均已勾选；无子项时视为完成
func (items TaskItems) AllCompleted() bool {
	for _, it := range items {
		if !it.IsCompleted {
			return false
		}
	}
	return true
}

// CompletedCount 已勾选数量
func (items TaskItems) CompletedCount() int {
	n := 0
	for _, it := range items {
		if it.IsCompleted {
			n++
		}
	}
	return n
}

// StringList 对应 JSONB 字符串数组（照片 URL）
type StringList []string

// Scan 解析 JSONB 文本
func (l *StringList) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil || raw == nil {
		*l = nil
		return err
	}
	return json.Unmarshal(raw, l)
}

// Value 序列化为 JSONB 文本
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("JSONB.Scan: unsupported type %T", src)
	}
}

// ── 表 ──

// Task 任务表，对应 tasks
// AssignedTo 为空表示任何员工都可认领
type Task struct {
	ID              string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title           string     `gorm:"type:text;not null"                             json:"title"`
	Description     string     `gorm:"type:text;not null;default:''"                  json:"description"`
	Category        string     `gorm:"type:text;not null;default:'extras'"            json:"category"`
	AssignedTo      *string    `gorm:"type:uuid"                                      json:"assigned_to,omitempty"`
	HelperID        *string    `gorm:"type:uuid"                                      json:"helper_id,omitempty"`
	CreatedBy       *string    `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	Status          string     `gorm:"type:text;not null;default:'pending'"           json:"status"`
	DueDate         Date       `gorm:"type:date"                                      json:"due_date"`
	PointsValue     int        `gorm:"not null;default:0"                             json:"points_value"`
	Items           TaskItems  `gorm:"type:jsonb;not null;default:'[]'"               json:"items"`
	PhotoURLs       StringList `gorm:"column:photo_urls;type:jsonb;not null;default:'[]'" json:"photo_urls"`
	AdminPhotos     StringList `gorm:"type:jsonb;not null;default:'[]'"               json:"admin_photos"`
	CompletionNotes string     `gorm:"type:text;not null;default:''"                  json:"completion_notes"`
	AdminNotes      string     `gorm:"type:text;not null;default:''"                  json:"admin_notes"`
	RejectionReason string     `gorm:"type:text;not null;default:''"                  json:"rejection_reason"`
	ReopenedCount   int        `gorm:"not null;default:0"                             json:"reopened_count"`
	BonusPoints     int        `gorm:"not null;default:0"                             json:"bonus_points"`
	ReviewedBy      *string    `gorm:"type:uuid"                                      json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	BaseModel

	// 关联
	Assignee *Profile `gorm:"foreignKey:AssignedTo;references:ID" json:"assignee,omitempty"`
}

// TableName 指定表名
func (Task) TableName() string { return "tasks" }

// IsParticipant 是否为负责人或协助者
func (t *Task) IsParticipant(userID string) bool {
	return (t.AssignedTo != nil && *t.AssignedTo == userID) || (t.HelperID != nil && *t.HelperID == userID)
}

// Checklist 清单模板，对应 checklists
type Checklist struct {
	ID                string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title             string    `gorm:"type:text;not null"                             json:"title"`
	Description       string    `gorm:"type:text;not null;default:''"                  json:"description"`
	Category          string    `gorm:"type:text;not null;default:'extras'"            json:"category"`
	Recurrence        string    `gorm:"type:text;not null;default:'one_time'"          json:"recurrence"`
	PointsValue       int       `gorm:"not null;default:0"                             json:"points_value"`
	Items             TaskItems `gorm:"type:jsonb;not null;default:'[]'"               json:"items"`
	AssignedTo        *string   `gorm:"type:uuid"                                      json:"assigned_to,omitempty"`
	StartDate         Date      `gorm:"type:date;not null"                             json:"start_date"`
	LastGeneratedDate Date      `gorm:"type:date"                                      json:"last_generated_date"`
	IsActive          bool      `gorm:"not null;default:true"                          json:"is_active"`
	CreatedBy         *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Checklist) TableName() string { return "checklists" }

// ChecklistInstance 清单的某日实例，对应 checklist_instances，(checklist_id, instance_date) 唯一
type ChecklistInstance struct {
	ID              string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ChecklistID     *string    `gorm:"type:uuid"                                      json:"checklist_id,omitempty"`
	Title           string     `gorm:"type:text;not null"                             json:"title"`
	InstanceDate    Date       `gorm:"type:date;not null"                             json:"instance_date"`
	AssignedTo      *string    `gorm:"type:uuid"                                      json:"assigned_to,omitempty"`
	Status          string     `gorm:"type:text;not null;default:'pending'"           json:"status"`
	Items           TaskItems  `gorm:"type:jsonb;not null;default:'[]'"               json:"items"`
	PointsValue     int        `gorm:"not null;default:0"                             json:"points_value"`
	PointsAwarded   int        `gorm:"not null;default:0"                             json:"points_awarded"`
	PhotoURLs       StringList `gorm:"column:photo_urls;type:jsonb;not null;default:'[]'" json:"photo_urls"`
	AdminPhoto      string     `gorm:"type:text;not null;default:''"                  json:"admin_photo"`
	CompletedBy     *string    `gorm:"type:uuid"                                      json:"completed_by,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ReviewedBy      *string    `gorm:"type:uuid"                                      json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string     `gorm:"type:text;not null;default:''"                  json:"rejection_reason"`
	BaseModel
}

// TableName 指定表名
func (ChecklistInstance) TableName() string { return "checklist_instances" }
