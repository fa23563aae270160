package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"villasun/backend/pkg/ict"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Patrol     PatrolConfig     `mapstructure:"patrol"`
	Goals      GoalsConfig      `mapstructure:"goals"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port           int        `mapstructure:"port"`
	BaseURL        string     `mapstructure:"base_url"`
	BodyLimitBytes int64      `mapstructure:"body_limit_bytes"`
	CORS           CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串（gorm 使用）
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// URL 生成 postgres:// 连接串（pgx 监听连接使用）
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret               string        `mapstructure:"jwt_secret"`
	AccessTokenTTL          time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTLDefault  time.Duration `mapstructure:"refresh_token_ttl_default"`
	RefreshTokenTTLRemember time.Duration `mapstructure:"refresh_token_ttl_remember_me"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`         // 为空时只输出到 stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"`  // 单个日志文件上限
	MaxBackups int    `mapstructure:"max_backups"`  // 保留的旧文件数
	MaxAgeDays int    `mapstructure:"max_age_days"` // 旧文件保留天数
	Compress   bool   `mapstructure:"compress"`
}

// AttendanceConfig 签到规则配置
type AttendanceConfig struct {
	EarlyShiftStart  string `mapstructure:"early_shift_start"` // 早班迟到阈值 HH:MM
	LateShiftStart   string `mapstructure:"late_shift_start"`  // 晚班迟到阈值 HH:MM
	OnTimePoints     int    `mapstructure:"on_time_points"`
	LatePenaltyStep  int    `mapstructure:"late_penalty_step_minutes"` // 每迟到多少分钟扣 1 分
	ScheduleFailOpen bool   `mapstructure:"schedule_fail_open"`       // 排班查询失败时是否放行（见 DESIGN.md）
}

// PatrolConfig 巡逻配置
type PatrolConfig struct {
	TimeSlots        []string      `mapstructure:"time_slots"`
	PhotoProbability float64       `mapstructure:"photo_probability"`
	PhotoDemandTTL   time.Duration `mapstructure:"photo_demand_ttl"`
	LateShiftFrom    string        `mapstructure:"late_shift_from"` // 晚班巡逻起始时间
}

// GoalsConfig 积分目标配置
type GoalsConfig struct {
	DailyAchievablePoints int `mapstructure:"daily_achievable_points"`
}

// StorageConfig 照片上传配置
type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
	PublicURL string `mapstructure:"public_url"`
	MaxBytes  int64  `mapstructure:"max_bytes"`
}

// JobsConfig 后台任务配置
type JobsConfig struct {
	DailyResetEnabled  bool          `mapstructure:"daily_reset_enabled"`
	DailyResetInterval time.Duration `mapstructure:"daily_reset_interval"`
	DailyResetTimeout  time.Duration `mapstructure:"daily_reset_timeout"`
	NotificationMaxAge time.Duration `mapstructure:"notification_max_age"`
}

// RealtimeConfig 实时变更推送配置
type RealtimeConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Channel   string        `mapstructure:"channel"`
	Buffer    int           `mapstructure:"buffer"`
	Heartbeat time.Duration `mapstructure:"heartbeat"` // SSE 心跳间隔
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_bytes", 10<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "villasun")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Phnom_Penh")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl_default", "24h")
	v.SetDefault("auth.refresh_token_ttl_remember_me", "168h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)

	v.SetDefault("attendance.early_shift_start", "09:00")
	v.SetDefault("attendance.late_shift_start", "15:00")
	v.SetDefault("attendance.on_time_points", 5)
	v.SetDefault("attendance.late_penalty_step_minutes", 15)
	v.SetDefault("attendance.schedule_fail_open", true)

	v.SetDefault("patrol.time_slots", []string{"11:00", "12:15", "13:30", "14:45", "16:00", "17:15", "18:30", "19:45", "21:00"})
	v.SetDefault("patrol.photo_probability", 0.3)
	v.SetDefault("patrol.photo_demand_ttl", "30m")
	v.SetDefault("patrol.late_shift_from", "15:00")

	v.SetDefault("goals.daily_achievable_points", 20)

	v.SetDefault("storage.upload_dir", "./uploads")
	v.SetDefault("storage.public_url", "/uploads")
	v.SetDefault("storage.max_bytes", 8<<20)

	v.SetDefault("jobs.daily_reset_enabled", true)
	v.SetDefault("jobs.daily_reset_interval", "15m")
	v.SetDefault("jobs.daily_reset_timeout", "1m")
	v.SetDefault("jobs.notification_max_age", "720h")

	v.SetDefault("realtime.enabled", true)
	v.SetDefault("realtime.channel", "table_changes")
	v.SetDefault("realtime.buffer", 32)
	v.SetDefault("realtime.heartbeat", "25s")

	v.SetDefault("rate_limit.requests", 120)
	v.SetDefault("rate_limit.window", "1m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("VILLASUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := ict.ParseClock(c.Attendance.EarlyShiftStart); err != nil {
		return fmt.Errorf("配置校验失败: attendance.early_shift_start: %w", err)
	}
	if _, err := ict.ParseClock(c.Attendance.LateShiftStart); err != nil {
		return fmt.Errorf("配置校验失败: attendance.late_shift_start: %w", err)
	}
	if c.Attendance.LatePenaltyStep <= 0 {
		return fmt.Errorf("配置校验失败: attendance.late_penalty_step_minutes 必须大于 0")
	}
	if c.Patrol.PhotoProbability < 0 || c.Patrol.PhotoProbability > 1 {
		return fmt.Errorf("配置校验失败: patrol.photo_probability 必须在 0-1 之间")
	}
	for _, slot := range c.Patrol.TimeSlots {
		if _, err := ict.ParseClock(slot); err != nil {
			return fmt.Errorf("配置校验失败: patrol.time_slots: %w", err)
		}
	}
	if _, err := ict.ParseClock(c.Patrol.LateShiftFrom); err != nil {
		return fmt.Errorf("配置校验失败: patrol.late_shift_from: %w", err)
	}
	if c.Goals.DailyAchievablePoints < 0 {
		return fmt.Errorf("配置校验失败: goals.daily_achievable_points 不能为负数")
	}
	return nil
}
