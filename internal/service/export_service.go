package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	"villasun/backend/pkg/ict"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoData       = errors.New("该月份没有签到记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportCheckIns 导出某月签到明细与按员工汇总
	ExportCheckIns(ctx context.Context, month string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// staffSummary 汇总表中的一行
type staffSummary struct {
	name     string
	days     int
	late     int
	lateMins int
	hours    decimal.Decimal
	points   int
}

// ═══════════════════════════════════════════════════════════
// ExportCheckIns 导出指定月份签到为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Check-ins"：每条签到一行，按日期、员工排序
//   - Sheet "Zusammenfassung"：每位员工一行（天数、迟到、工时、已审批积分）

func (s *exportService) ExportCheckIns(ctx context.Context, month string) (*bytes.Buffer, string, error) {
	start, end, err := ict.MonthBounds(month)
	if err != nil {
		return nil, "", ErrInvalidGoalPeriod
	}

	list, err := s.repo.CheckIn.ListByRange(ctx,
		start.Format(ict.DateLayout), end.AddDate(0, 0, -1).Format(ict.DateLayout))
	if err != nil {
		s.logger.Error("查询签到失败", zap.String("month", month), zap.Error(err))
		return nil, "", err
	}
	if len(list) == 0 {
		return nil, "", ErrExportNoData
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CheckInDate != list[j].CheckInDate {
			return list[i].CheckInDate < list[j].CheckInDate
		}
		return staffName(&list[i]) < staffName(&list[j])
	})

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#F59E0B"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 1. 明细
	detail := "Check-ins"
	idx, _ := f.NewSheet(detail)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"Datum", "Mitarbeiter", "Schicht", "Check-in", "Check-out", "Stunden", "Verspätung (Min.)", "Status", "Punkte", "Manuell"}
	writeHeader(f, detail, headers, headerStyle)
	f.SetColWidth(detail, "A", "A", 12)
	f.SetColWidth(detail, "B", "B", 24)
	f.SetColWidth(detail, "C", "J", 14)

	summaries := make(map[string]*staffSummary)
	for i := range list {
		c := &list[i]
		row := i + 2

		checkOut, hours := "-", "-"
		if c.CheckOutTime != nil {
			checkOut = ict.In(*c.CheckOutTime).Format(ict.ClockLayout)
		}
		if c.WorkHours.Valid {
			hours = c.WorkHours.Decimal.StringFixed(2)
		}
		manual := ""
		if c.IsManual {
			manual = "ja"
		}
		values := []interface{}{
			c.CheckInDate.String(),
			staffName(c),
			c.ShiftType,
			ict.In(c.CheckInTime).Format(ict.ClockLayout),
			checkOut,
			hours,
			c.MinutesLate,
			c.Status,
			c.PointsAwarded,
			manual,
		}
		for col, v := range values {
			f.SetCellValue(detail, cell(colName(col), row), v)
		}

		sum, ok := summaries[c.UserID]
		if !ok {
			sum = &staffSummary{name: staffName(c)}
			summaries[c.UserID] = sum
		}
		sum.days++
		if c.IsLate {
			sum.late++
			sum.lateMins += c.MinutesLate
		}
		if c.WorkHours.Valid {
			sum.hours = sum.hours.Add(c.WorkHours.Decimal)
		}
		if c.Status == model.StatusApproved {
			sum.points += c.PointsAwarded
		}
	}

	// 2. 汇总
	summary := "Zusammenfassung"
	f.NewSheet(summary)
	writeHeader(f, summary, []string{"Mitarbeiter", "Tage", "Verspätungen", "Verspätung (Min.)", "Stunden", "Punkte"}, headerStyle)
	f.SetColWidth(summary, "A", "A", 24)
	f.SetColWidth(summary, "B", "F", 16)

	rows := make([]*staffSummary, 0, len(summaries))
	for _, sum := range summaries {
		rows = append(rows, sum)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })
	for i, sum := range rows {
		row := i + 2
		f.SetCellValue(summary, cell("A", row), sum.name)
		f.SetCellValue(summary, cell("B", row), sum.days)
		f.SetCellValue(summary, cell("C", row), sum.late)
		f.SetCellValue(summary, cell("D", row), sum.lateMins)
		f.SetCellValue(summary, cell("E", row), sum.hours.StringFixed(2))
		f.SetCellValue(summary, cell("F", row), sum.points)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	return buf, fmt.Sprintf("checkins_%s.xlsx", month), nil
}

// ── 辅助函数 ──

func staffName(c *model.CheckIn) string {
	if c.User != nil {
		return c.User.FullName
	}
	return c.UserID
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(headers)-1), 1), style)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
