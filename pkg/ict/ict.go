// Package ict 印度支那时间（UTC+7）业务日历工具
//
// 所有"今天"的判定（签到唯一性、幸运转盘每日一次、巡逻轮次、积分日目标）
// 都以 ICT 日历日为准，与服务器或浏览器所在时区无关。
package ict

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OffsetHours ICT 相对 UTC 的固定偏移
const OffsetHours = 7

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
	ClockLayout = "15:04"
)

// Zone 固定 UTC+7 时区，不依赖系统 tzdata
var Zone = time.FixedZone("ICT", OffsetHours*60*60)

// In 将时间转换到 ICT
func In(t time.Time) time.Time {
	return t.In(Zone)
}

// DateString 返回 t 所在的 ICT 日历日（YYYY-MM-DD）
func DateString(t time.Time) string {
	return t.In(Zone).Format(DateLayout)
}

// MonthString 返回 t 所在的 ICT 月份（YYYY-MM）
func MonthString(t time.Time) string {
	return t.In(Zone).Format(MonthLayout)
}

// MinutesSinceMidnight 返回 t 在 ICT 当天已过去的分钟数
func MinutesSinceMidnight(t time.Time) int {
	local := t.In(Zone)
	return local.Hour()*60 + local.Minute()
}

// ParseDate 解析 ICT 日期，返回当天 00:00（ICT）
func ParseDate(date string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, Zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期 %q: %w", date, err)
	}
	return d, nil
}

// DayBounds 返回 ICT 日期的 [开始, 次日开始) 区间
func DayBounds(date string) (time.Time, time.Time, error) {
	start, err := ParseDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

// MonthBounds 返回 ICT 月份的 [月初, 次月月初) 区间
func MonthBounds(month string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(MonthLayout, month, Zone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("无效的月份 %q: %w", month, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// ParseClock 解析 "HH:MM"，返回自午夜起的分钟数
func ParseClock(clock string) (int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("无效的时间 %q", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("无效的小时 %q", clock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("无效的分钟 %q", clock)
	}
	return h*60 + m, nil
}

// Combine 将 ICT 日期与 "HH:MM" 组合为绝对时间
func Combine(date, clock string) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	minutes, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(minutes) * time.Minute), nil
}

// WeekStart 返回 ICT 日期所在周的周一
func WeekStart(date string) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	offset := (int(d.Weekday()) + 6) % 7 // 周一为 0
	return d.AddDate(0, 0, -offset).Format(DateLayout), nil
}
