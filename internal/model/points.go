package model

import "time"

// 积分流水分类
const (
	PointsCategoryCheckIn = "check_in"
	PointsCategoryWheel   = "fortune_wheel"
	PointsCategoryPatrol  = "patrol"
	PointsCategoryManual  = "manual"
	PointsCategoryTask    = "task"
	PointsCategoryBonus   = "bonus"
)

// PointsHistory 积分流水（仅追加），对应 points_history
type PointsHistory struct {
	ID           string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID       string    `gorm:"type:uuid;not null"                             json:"user_id"`
	PointsChange int       `gorm:"not null"                                       json:"points_change"`
	Reason       string    `gorm:"type:text;not null;default:''"                  json:"reason"`
	Category     string    `gorm:"type:text;not null;default:'manual'"            json:"category"`
	CreatedBy    *string   `gorm:"type:uuid"                                      json:"created_by,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (PointsHistory) TableName() string { return "points_history" }

// DailyPointGoal 每日积分目标，对应 daily_point_goals，团队汇总冗余在每一行
type DailyPointGoal struct {
	ID               string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID           string  `gorm:"type:uuid;not null"                             json:"user_id"`
	GoalDate         Date    `gorm:"type:date;not null"                             json:"goal_date"`
	AchievablePoints int     `gorm:"not null;default:0"                             json:"achievable_points"`
	AchievedPoints   int     `gorm:"not null;default:0"                             json:"achieved_points"`
	Percentage       float64 `gorm:"type:numeric(6,2);not null;default:0"           json:"percentage"`
	ColorStatus      string  `gorm:"type:text;not null;default:'gray'"              json:"color_status"`
	TeamAchievable   int     `gorm:"not null;default:0"                             json:"team_achievable"`
	TeamAchieved     int     `gorm:"not null;default:0"                             json:"team_achieved"`
	TeamPercentage   float64 `gorm:"type:numeric(6,2);not null;default:0"           json:"team_percentage"`
	TeamColorStatus  string  `gorm:"type:text;not null;default:'gray'"              json:"team_color_status"`
	BaseModel

	// 关联
	User *Profile `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName 指定表名
func (DailyPointGoal) TableName() string { return "daily_point_goals" }

// MonthlyPointGoal 月度积分目标，对应 monthly_point_goals
type MonthlyPointGoal struct {
	ID              string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID          string  `gorm:"type:uuid;not null"                             json:"user_id"`
	Month           string  `gorm:"type:text;not null"                             json:"month"` // YYYY-MM
	TotalAchievable int     `gorm:"not null;default:0"                             json:"total_achievable"`
	TotalAchieved   int     `gorm:"not null;default:0"                             json:"total_achieved"`
	Percentage      float64 `gorm:"type:numeric(6,2);not null;default:0"           json:"percentage"`
	ColorStatus     string  `gorm:"type:text;not null;default:'gray'"              json:"color_status"`
	BaseModel

	// 关联
	User *Profile `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// TableName 指定表名
func (MonthlyPointGoal) TableName() string { return "monthly_point_goals" }
