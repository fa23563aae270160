package model

import "time"

// RewardTypeBonusPoints 转盘奖励类型：积分
const RewardTypeBonusPoints = "bonus_points"

// FortuneWheelSpin 幸运转盘记录，对应 fortune_wheel_spins，(user_id, spin_date) 唯一
type FortuneWheelSpin struct {
	ID           string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID       string    `gorm:"type:uuid;not null"                             json:"user_id"`
	CheckInID    string    `gorm:"type:uuid;not null"                             json:"check_in_id"`
	SpinDate     Date      `gorm:"type:date;not null"                             json:"spin_date"`
	SegmentIndex int       `gorm:"not null"                                       json:"segment_index"`
	RewardType   string    `gorm:"type:text;not null"                             json:"reward_type"`
	RewardValue  int       `gorm:"not null"                                       json:"reward_value"` // 扇区标注值
	RewardLabel  string    `gorm:"type:text;not null"                             json:"reward_label"`
	PointsWon    int       `gorm:"not null;default:0"                             json:"points_won"` // 实际积分变动
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (FortuneWheelSpin) TableName() string { return "fortune_wheel_spins" }
