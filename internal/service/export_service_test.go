package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"villasun/backend/internal/model"
)

func TestExportCheckIns(t *testing.T) {
	mocks := newMockRepos()
	svc := NewExportService(mocks.repository(), zap.NewNop())

	a := seedCheckIn(mocks, "staff-1", testDate, "08:55", 5)
	a.Status = model.StatusApproved
	a.User = &model.Profile{FullName: "Anna"}
	a.WorkHours = decimal.NewNullDecimal(decimal.RequireFromString("8.25"))

	b := seedCheckIn(mocks, "staff-1", "2026-03-03", "09:20", -2)
	b.IsLate, b.MinutesLate = true, 20
	b.User = &model.Profile{FullName: "Anna"}
	b.WorkHours = decimal.NewNullDecimal(decimal.RequireFromString("7.5"))

	c := seedCheckIn(mocks, "staff-2", testDate, "14:50", 5)
	c.Status = model.StatusApproved
	c.User = &model.Profile{FullName: "Bopha"}

	// 其它月份不导出
	seedCheckIn(mocks, "staff-2", "2026-04-01", "08:50", 5)

	buf, filename, err := svc.ExportCheckIns(context.Background(), "2026-03")
	if err != nil {
		t.Fatalf("ExportCheckIns 应成功: %v", err)
	}
	if filename != "checkins_2026-03.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("读取导出文件失败: %v", err)
	}
	defer f.Close()

	detail, err := f.GetRows("Check-ins")
	if err != nil {
		t.Fatalf("读取明细失败: %v", err)
	}
	if len(detail) != 4 {
		t.Fatalf("期望 1 行表头 + 3 行明细，实际 %d 行", len(detail))
	}
	if detail[1][1] != "Anna" || detail[2][1] != "Bopha" || detail[3][0] != "2026-03-03" {
		t.Errorf("明细排序不符: %v", detail)
	}

	summary, err := f.GetRows("Zusammenfassung")
	if err != nil {
		t.Fatalf("读取汇总失败: %v", err)
	}
	if len(summary) != 3 {
		t.Fatalf("期望 2 位员工汇总，实际 %d 行", len(summary)-1)
	}
	// Anna：2 天、1 次迟到 20 分钟、15.75 小时、仅已审批积分 5
	anna := summary[1]
	want := []string{"Anna", "2", "1", "20", "15.75", "5"}
	for i, v := range want {
		if anna[i] != v {
			t.Errorf("汇总第 %d 列期望 %s，实际 %s", i+1, v, anna[i])
		}
	}
}

func TestExportCheckIns_Empty(t *testing.T) {
	mocks := newMockRepos()
	svc := NewExportService(mocks.repository(), zap.NewNop())

	if _, _, err := svc.ExportCheckIns(context.Background(), "2026-03"); !errors.Is(err, ErrExportNoData) {
		t.Errorf("期望 ErrExportNoData，实际: %v", err)
	}
	if _, _, err := svc.ExportCheckIns(context.Background(), "März"); !errors.Is(err, ErrInvalidGoalPeriod) {
		t.Errorf("期望 ErrInvalidGoalPeriod，实际: %v", err)
	}
}
