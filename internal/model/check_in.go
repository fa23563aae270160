package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 审批状态（签到与离岗申请共用）
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// CheckIn 签到记录表，对应 check_ins，(user_id, check_in_date) 唯一
type CheckIn struct {
	ID              string              `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID          string              `gorm:"type:uuid;not null"                             json:"user_id"`
	CheckInDate     Date                `gorm:"type:date;not null"                             json:"check_in_date"`
	CheckInTime     time.Time           `gorm:"not null"                                       json:"check_in_time"`
	ShiftType       string              `gorm:"type:text;not null"                             json:"shift_type"` // early | late
	IsLate          bool                `gorm:"not null;default:false"                         json:"is_late"`
	MinutesLate     int                 `gorm:"not null;default:0"                             json:"minutes_late"`
	LateReason      string              `gorm:"type:text;not null;default:''"                  json:"late_reason"`
	Status          string              `gorm:"type:text;not null;default:'pending'"           json:"status"`
	PointsAwarded   int                 `gorm:"not null;default:0"                             json:"points_awarded"` // 待审批时为预估分
	ApprovedBy      *string             `gorm:"type:uuid"                                      json:"approved_by,omitempty"`
	ApprovedAt      *time.Time          `json:"approved_at,omitempty"`
	RejectionReason string              `gorm:"type:text;not null;default:''"                  json:"rejection_reason"`
	CheckOutTime    *time.Time          `json:"check_out_time,omitempty"`
	WorkHours       decimal.NullDecimal `gorm:"type:numeric(6,2)"                              json:"work_hours"`
	IsManual        bool                `gorm:"not null;default:false"                         json:"is_manual"`
	CreatedBy       *string             `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	BaseModel

	// 关联
	User *Profile `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName 指定表名
func (CheckIn) TableName() string { return "check_ins" }
