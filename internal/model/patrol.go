package model

import "time"

// 巡逻班次
const (
	PatrolShiftMorning = "morning"
	PatrolShiftLate    = "late"
)

// PatrolLocation 巡逻点位，对应 patrol_locations，qr_code 全大写且唯一
type PatrolLocation struct {
	ID          string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string `gorm:"type:text;not null"                             json:"name"`
	QRCode      string `gorm:"column:qr_code;type:text;not null"              json:"qr_code"`
	Description string `gorm:"type:text;not null;default:''"                  json:"description"`
	OrderIndex  int    `gorm:"not null;default:0"                             json:"order_index"`
	IsActive    bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (PatrolLocation) TableName() string { return "patrol_locations" }

// PatrolSchedule 巡逻排班，对应 patrol_schedules
type PatrolSchedule struct {
	ID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Date       Date      `gorm:"type:date;not null"                             json:"date"`
	Shift      string    `gorm:"type:text;not null"                             json:"shift"` // morning | late
	AssignedTo string    `gorm:"type:uuid;not null"                             json:"assigned_to"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (PatrolSchedule) TableName() string { return "patrol_schedules" }

// PatrolRound 巡逻轮次，对应 patrol_rounds，(date, time_slot, assigned_to) 唯一
type PatrolRound struct {
	ID            string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Date          Date       `gorm:"type:date;not null"                             json:"date"`
	TimeSlot      string     `gorm:"type:text;not null"                             json:"time_slot"`
	AssignedTo    string     `gorm:"type:uuid;not null"                             json:"assigned_to"`
	ScheduledTime time.Time  `gorm:"not null"                                       json:"scheduled_time"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	PointsAwarded int        `gorm:"not null;default:0"                             json:"points_awarded"`
	CreatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (PatrolRound) TableName() string { return "patrol_rounds" }

// IsCompleted 轮次是否已完成
func (r *PatrolRound) IsCompleted() bool { return r.CompletedAt != nil }

// PatrolScan 巡逻扫码记录，对应 patrol_scans，(round_id, location_id) 唯一
type PatrolScan struct {
	ID             string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RoundID        string    `gorm:"type:uuid;not null"                             json:"round_id"`
	LocationID     string    `gorm:"type:uuid;not null"                             json:"location_id"`
	UserID         string    `gorm:"type:uuid;not null"                             json:"user_id"`
	PhotoURL       string    `gorm:"type:text;not null;default:''"                  json:"photo_url"`
	PhotoRequested bool      `gorm:"not null;default:false"                         json:"photo_requested"`
	ScannedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"scanned_at"`
}

// TableName 指定表名
func (PatrolScan) TableName() string { return "patrol_scans" }
