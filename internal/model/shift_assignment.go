package model

// 班次
const (
	ShiftEarly = "early"
	ShiftLate  = "late"
	ShiftOff   = "off"
)

// ShiftAssignment 排班表，对应 shift_assignments，每人每天一条
type ShiftAssignment struct {
	ID          string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	StaffID     string  `gorm:"type:uuid;not null"                             json:"staff_id"`
	ShiftDate   Date    `gorm:"type:date;not null"                             json:"shift_date"`
	Shift       string  `gorm:"type:text;not null"                             json:"shift"` // early | late | off
	IsPublished bool    `gorm:"not null;default:false"                         json:"is_published"`
	CreatedBy   *string `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	BaseModel

	// 关联
	Staff *Profile `gorm:"foreignKey:StaffID;references:ID" json:"staff,omitempty"`
}

// TableName 指定表名
func (ShiftAssignment) TableName() string { return "shift_assignments" }
