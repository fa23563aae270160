package model

import "time"

// DepartureRequest 提前离岗申请，对应 departure_requests
type DepartureRequest struct {
	ID              string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID          string     `gorm:"type:uuid;not null"                             json:"user_id"`
	RequestDate     Date       `gorm:"type:date;not null"                             json:"request_date"`
	ShiftType       string     `gorm:"type:text;not null"                             json:"shift_type"`
	Reason          string     `gorm:"type:text;not null;default:''"                  json:"reason"`
	Status          string     `gorm:"type:text;not null;default:'pending'"           json:"status"`
	ApprovedBy      *string    `gorm:"type:uuid"                                      json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `gorm:"type:text;not null;default:''"                  json:"rejection_reason"`
	BaseModel

	// 关联
	User *Profile `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName 指定表名
func (DepartureRequest) TableName() string { return "departure_requests" }
