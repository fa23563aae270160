package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ── PostgreSQL DATE 自定义类型 ──

// Date 对应 PostgreSQL DATE，始终以 "YYYY-MM-DD" 表示 ICT 日历日。
// 不使用 time.Time，避免驱动按会话时区换算导致跨日。
type Date string

// Scan 将驱动返回的 DATE 值解析为 "YYYY-MM-DD"。
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = Date(v.Format("2006-01-02"))
	case []byte:
		*d = Date(trimDate(string(v)))
	case string:
		*d = Date(trimDate(v))
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
	return nil
}

// Value 以字符串形式写入，由 PostgreSQL 转换为 DATE。
func (d Date) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}

// String 实现 fmt.Stringer
func (d Date) String() string { return string(d) }

func trimDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// ── PostgreSQL JSONB 自定义类型 ──

// JSONMap 对应 PostgreSQL JSONB 对象
type JSONMap map[string]interface{}

// Scan 解析 JSONB 文本
func (m *JSONMap) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("JSONMap.Scan: unsupported type %T", src)
	}
	return json.Unmarshal(raw, m)
}

// Value 序列化为 JSONB 文本
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// BaseModel 通用审计字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
