package ict

import (
	"testing"
	"time"
)

func TestDateString_IndependentOfCallerZone(t *testing.T) {
	// 同一时刻：UTC-8 的 23:30 与 UTC+7 的次日 14:30
	pst := time.FixedZone("PST", -8*60*60)
	instant := time.Date(2025, 3, 10, 23, 30, 0, 0, pst)

	fromPST := DateString(instant)
	fromICT := DateString(instant.In(Zone))
	fromUTC := DateString(instant.UTC())

	if fromPST != "2025-03-11" {
		t.Errorf("期望 2025-03-11，实际 %s", fromPST)
	}
	if fromPST != fromICT || fromPST != fromUTC {
		t.Errorf("不同时区得到的日期不一致: %s / %s / %s", fromPST, fromICT, fromUTC)
	}
}

func TestDateString_MidnightBoundary(t *testing.T) {
	// UTC 16:59 = ICT 23:59，UTC 17:00 = ICT 次日 00:00
	before := time.Date(2025, 1, 1, 16, 59, 0, 0, time.UTC)
	after := time.Date(2025, 1, 1, 17, 0, 0, 0, time.UTC)

	if got := DateString(before); got != "2025-01-01" {
		t.Errorf("期望 2025-01-01，实际 %s", got)
	}
	if got := DateString(after); got != "2025-01-02" {
		t.Errorf("期望 2025-01-02，实际 %s", got)
	}
}

func TestMinutesSinceMidnight(t *testing.T) {
	at := time.Date(2025, 1, 1, 2, 1, 0, 0, time.UTC) // ICT 09:01
	if got := MinutesSinceMidnight(at); got != 9*60+1 {
		t.Errorf("期望 541，实际 %d", got)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"09:00", 540, false},
		{"15:00", 900, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9", 0, true},
		{"ab:cd", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseClock(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseClock(%q)=%d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCombineAndDayBounds(t *testing.T) {
	at, err := Combine("2025-05-20", "08:50")
	if err != nil {
		t.Fatalf("Combine 应成功: %v", err)
	}
	if !at.Equal(time.Date(2025, 5, 20, 1, 50, 0, 0, time.UTC)) {
		t.Errorf("期望 01:50 UTC，实际 %s", at.UTC())
	}

	start, end, err := DayBounds("2025-05-20")
	if err != nil {
		t.Fatalf("DayBounds 应成功: %v", err)
	}
	if at.Before(start) || !at.Before(end) {
		t.Errorf("时间 %s 应落在 [%s, %s)", at, start, end)
	}
	if end.Sub(start) != 24*time.Hour {
		t.Errorf("一天应为 24 小时，实际 %s", end.Sub(start))
	}
}

func TestWeekStart(t *testing.T) {
	tests := map[string]string{
		"2025-05-19": "2025-05-19", // 周一
		"2025-05-21": "2025-05-19",
		"2025-05-25": "2025-05-19", // 周日
	}
	for in, want := range tests {
		got, err := WeekStart(in)
		if err != nil {
			t.Fatalf("WeekStart(%s) 应成功: %v", in, err)
		}
		if got != want {
			t.Errorf("WeekStart(%s)=%s, want %s", in, got, want)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	start, end, err := MonthBounds("2025-02")
	if err != nil {
		t.Fatalf("MonthBounds 应成功: %v", err)
	}
	if DateString(start) != "2025-02-01" || DateString(end) != "2025-03-01" {
		t.Errorf("月份区间错误: %s - %s", start, end)
	}
	if _, _, err := MonthBounds("2025/02"); err == nil {
		t.Error("非法月份应返回错误")
	}
}
