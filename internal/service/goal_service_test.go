package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"villasun/backend/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		percentage float64
		achievable int
		want       string
	}{
		{0, 0, ColorGray},
		{100, 0, ColorGray},
		{95, 20, ColorDarkGreen},
		{94.99, 20, ColorGreen},
		{90, 20, ColorGreen},
		{89.99, 20, ColorOrange},
		{83, 20, ColorOrange},
		{82.99, 20, ColorYellow},
		{74, 20, ColorYellow},
		{73.99, 20, ColorRed},
		{0, 20, ColorRed},
	}
	for _, tc := range cases {
		if got := Classify(tc.percentage, tc.achievable); got != tc.want {
			t.Errorf("Classify(%v, %d) 期望 %s，实际 %s", tc.percentage, tc.achievable, tc.want, got)
		}
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(2, 3); got != 66.67 {
		t.Errorf("期望 66.67，实际 %v", got)
	}
	if got := Percentage(5, 0); got != 0 {
		t.Errorf("可得分为 0 时期望 0，实际 %v", got)
	}
	if got := Percentage(-3, 20); got != -15 {
		t.Errorf("期望 -15，实际 %v", got)
	}
	if got := FormatPercentage(87.5); got != "87.50%" {
		t.Errorf("期望 87.50%%，实际 %s", got)
	}
}

// setupTestGoalService staff-1 / staff-2 当日上班，admin-1 无排班
func setupTestGoalService() (*goalService, *mockRepos) {
	mocks := newMockRepos()
	mocks.addProfile("admin-1", "Admin", model.RoleAdmin)
	mocks.addProfile("staff-1", "Anna", model.RoleStaff)
	mocks.addProfile("staff-2", "Bopha", model.RoleStaff)
	mocks.shifts.set("staff-1", testDate, model.ShiftEarly, true)
	mocks.shifts.set("staff-2", testDate, model.ShiftLate, true)

	svc := NewGoalService(mocks.repository(), 20, zap.NewNop()).(*goalService)
	svc.now = at(testDate, "12:00")
	return svc, mocks
}

func TestRefreshDaily(t *testing.T) {
	svc, mocks := setupTestGoalService()
	mocks.points.items = append(mocks.points.items,
		model.PointsHistory{UserID: "staff-1", PointsChange: 10, CreatedAt: at(testDate, "10:00")()},
		model.PointsHistory{UserID: "staff-1", PointsChange: 9, CreatedAt: at(testDate, "23:59")()},
		// 前一日的积分不计入
		model.PointsHistory{UserID: "staff-2", PointsChange: 7, CreatedAt: at("2026-03-01", "23:59")()},
	)

	n, err := svc.RefreshDaily(context.Background(), "")
	if err != nil {
		t.Fatalf("RefreshDaily 应成功: %v", err)
	}
	if n != 2 {
		t.Fatalf("期望 2 行目标，实际=%d", n)
	}

	g1, _ := mocks.dailyGoals.GetByUserAndDate(context.Background(), "staff-1", testDate)
	if g1.AchievedPoints != 19 || g1.Percentage != 95 || g1.ColorStatus != ColorDarkGreen {
		t.Errorf("staff-1 目标不符: %+v", g1)
	}
	if g1.TeamAchievable != 40 || g1.TeamAchieved != 19 || g1.TeamColorStatus != ColorRed {
		t.Errorf("团队目标不符: %+v", g1)
	}
	g2, _ := mocks.dailyGoals.GetByUserAndDate(context.Background(), "staff-2", testDate)
	if g2.AchievedPoints != 0 || g2.ColorStatus != ColorRed {
		t.Errorf("staff-2 目标不符: %+v", g2)
	}
}

func TestRefreshDaily_RemovesUnscheduledRows(t *testing.T) {
	svc, mocks := setupTestGoalService()
	if _, err := svc.RefreshDaily(context.Background(), testDate); err != nil {
		t.Fatalf("RefreshDaily 应成功: %v", err)
	}

	// staff-2 改为休息后重新计算
	mocks.shifts.set("staff-2", testDate, model.ShiftOff, true)
	if _, err := svc.RefreshDaily(context.Background(), testDate); err != nil {
		t.Fatalf("RefreshDaily 应成功: %v", err)
	}
	if _, err := mocks.dailyGoals.GetByUserAndDate(context.Background(), "staff-2", testDate); err == nil {
		t.Error("休息员工的日目标应被移除")
	}
}

func TestRefreshDaily_InvalidDate(t *testing.T) {
	svc, _ := setupTestGoalService()
	if _, err := svc.RefreshDaily(context.Background(), "2026-13-01"); !errors.Is(err, ErrInvalidGoalPeriod) {
		t.Errorf("期望 ErrInvalidGoalPeriod，实际: %v", err)
	}
	if _, err := svc.RefreshMonthly(context.Background(), "2026-3"); !errors.Is(err, ErrInvalidGoalPeriod) {
		t.Errorf("期望 ErrInvalidGoalPeriod，实际: %v", err)
	}
}

func TestMyDaily(t *testing.T) {
	svc, mocks := setupTestGoalService()
	mocks.points.items = append(mocks.points.items,
		model.PointsHistory{UserID: "staff-1", PointsChange: 15, CreatedAt: at(testDate, "09:00")()},
	)
	if _, err := svc.RefreshDaily(context.Background(), testDate); err != nil {
		t.Fatalf("RefreshDaily 应成功: %v", err)
	}

	mine, err := svc.MyDaily(context.Background(), "staff-1", "")
	if err != nil {
		t.Fatalf("MyDaily 应成功: %v", err)
	}
	if !mine.Scheduled || mine.Progress.PercentageText != "75.00%" || mine.Progress.ColorStatus != ColorYellow {
		t.Errorf("个人目标不符: %+v", mine)
	}
	if mine.Team.Achievable != 40 || mine.Team.Achieved != 15 {
		t.Errorf("团队目标不符: %+v", mine.Team)
	}

	off, err := svc.MyDaily(context.Background(), "admin-1", "")
	if err != nil {
		t.Fatalf("MyDaily 应成功: %v", err)
	}
	if off.Scheduled || off.Progress.ColorStatus != ColorGray {
		t.Errorf("无排班时应为灰色: %+v", off)
	}
}

func TestDailyAndMonthlyOverview(t *testing.T) {
	svc, mocks := setupTestGoalService()
	mocks.shifts.set("staff-1", "2026-03-03", model.ShiftEarly, true)
	mocks.points.items = append(mocks.points.items,
		model.PointsHistory{UserID: "staff-1", PointsChange: 20, CreatedAt: at(testDate, "09:00")()},
		model.PointsHistory{UserID: "staff-1", PointsChange: 16, CreatedAt: at("2026-03-03", "09:00")()},
		model.PointsHistory{UserID: "staff-2", PointsChange: 18, CreatedAt: at(testDate, "16:00")()},
	)
	for _, date := range []string{testDate, "2026-03-03"} {
		if _, err := svc.RefreshDaily(context.Background(), date); err != nil {
			t.Fatalf("RefreshDaily(%s) 应成功: %v", date, err)
		}
	}

	daily, err := svc.DailyOverview(context.Background(), testDate)
	if err != nil {
		t.Fatalf("DailyOverview 应成功: %v", err)
	}
	if len(daily.Members) != 2 || daily.Team.Achieved != 38 || daily.Team.ColorStatus != ColorDarkGreen {
		t.Errorf("日团队目标不符: %+v", daily)
	}

	n, err := svc.RefreshMonthly(context.Background(), "")
	if err != nil {
		t.Fatalf("RefreshMonthly 应成功: %v", err)
	}
	if n != 2 {
		t.Fatalf("期望 2 行月目标，实际=%d", n)
	}

	monthly, err := svc.MonthlyOverview(context.Background(), "2026-03")
	if err != nil {
		t.Fatalf("MonthlyOverview 应成功: %v", err)
	}
	// staff-1：36/40；staff-2：18/20；团队：54/60
	if monthly.Team.Achievable != 60 || monthly.Team.Achieved != 54 || monthly.Team.Percentage != 90 {
		t.Errorf("月团队目标不符: %+v", monthly.Team)
	}
	if monthly.Members[0].UserID != "staff-1" || monthly.Members[0].Progress.ColorStatus != ColorGreen {
		t.Errorf("staff-1 月目标不符: %+v", monthly.Members[0])
	}
}
