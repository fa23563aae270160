package service

import (
	"context"
	"errors"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"villasun/backend/config"
	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	"villasun/backend/pkg/ict"
)

// ── 排班模块业务错误 ──

var (
	ErrInvalidWeekStart = errors.New("周起始日必须是周一")
	ErrNoShiftToday     = errors.New("今日无已发布排班")
)

// 日历中每个班次的时长
const shiftDuration = 8 * time.Hour

// 日历覆盖范围：过去一周至未来两个月
const (
	calendarPastDays   = 7
	calendarFutureDays = 62
)

// ScheduleService 排班业务接口
type ScheduleService interface {
	UpsertWeek(ctx context.Context, admin Actor, req *dto.UpsertWeekRequest) (*dto.WeekScheduleResponse, error)
	PublishWeek(ctx context.Context, admin Actor, weekStart string) (*dto.PublishResponse, error)
	GetWeek(ctx context.Context, weekStart string) (*dto.WeekScheduleResponse, error)
	MyShifts(ctx context.Context, userID, weekStart string) (*dto.WeekScheduleResponse, error)
	TodayShift(ctx context.Context, userID string) (*dto.ShiftAssignmentResponse, error)
	// MyCalendar 导出已发布班次的 iCalendar 文本
	MyCalendar(ctx context.Context, userID string) (string, error)
}

type scheduleService struct {
	repo   *repository.Repository
	cfg    *config.AttendanceConfig
	now    Clock
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, cfg *config.AttendanceConfig, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, cfg: cfg, now: time.Now, logger: logger}
}

func toShiftAssignmentResponse(a *model.ShiftAssignment) dto.ShiftAssignmentResponse {
	resp := dto.ShiftAssignmentResponse{
		ID:          a.ID,
		StaffID:     a.StaffID,
		ShiftDate:   a.ShiftDate.String(),
		Shift:       a.Shift,
		IsPublished: a.IsPublished,
	}
	if a.Staff != nil {
		resp.StaffName = a.Staff.FullName
	}
	return resp
}

// weekDays 返回以周一 weekStart 开始的 7 个日期
func weekDays(weekStart string) ([]string, error) {
	start, err := ict.ParseDate(weekStart)
	if err != nil {
		return nil, ErrInvalidWeekStart
	}
	if start.Weekday() != time.Monday {
		return nil, ErrInvalidWeekStart
	}
	days := make([]string, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i).Format(ict.DateLayout)
	}
	return days, nil
}

// resolveWeek 空值表示本周
func (s *scheduleService) resolveWeek(weekStart string) (string, error) {
	if weekStart != "" {
		return weekStart, nil
	}
	return ict.WeekStart(ict.DateString(s.now()))
}

// ────────────────────── UpsertWeek ──────────────────────

func (s *scheduleService) UpsertWeek(ctx context.Context, admin Actor, req *dto.UpsertWeekRequest) (*dto.WeekScheduleResponse, error) {
	days, err := weekDays(req.WeekStart)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Profile.GetByID(ctx, req.StaffID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询员工失败", zap.String("staff_id", req.StaffID), zap.Error(err))
		return nil, err
	}

	rows := make([]model.ShiftAssignment, 0, len(days))
	for i, day := range days {
		rows = append(rows, model.ShiftAssignment{
			StaffID:     req.StaffID,
			ShiftDate:   model.Date(day),
			Shift:       req.Shifts[i],
			IsPublished: req.Publish,
			CreatedBy:   &admin.UserID,
		})
	}
	if err := s.repo.ShiftAssignment.Upsert(ctx, rows); err != nil {
		s.logger.Error("保存排班失败",
			zap.String("staff_id", req.StaffID),
			zap.String("week_start", req.WeekStart),
			zap.Error(err),
		)
		return nil, err
	}

	return s.GetWeek(ctx, req.WeekStart)
}

// ────────────────────── PublishWeek ──────────────────────

func (s *scheduleService) PublishWeek(ctx context.Context, admin Actor, weekStart string) (*dto.PublishResponse, error) {
	days, err := weekDays(weekStart)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.ShiftAssignment.Publish(ctx, days[0], days[6])
	if err != nil {
		s.logger.Error("发布排班失败", zap.String("week_start", weekStart), zap.Error(err))
		return nil, err
	}
	s.logger.Info("排班已发布",
		zap.String("admin_id", admin.UserID),
		zap.String("week_start", weekStart),
		zap.Int64("rows", n),
	)
	return &dto.PublishResponse{WeekStart: weekStart, Published: n}, nil
}

// ────────────────────── Query ──────────────────────

func (s *scheduleService) GetWeek(ctx context.Context, weekStart string) (*dto.WeekScheduleResponse, error) {
	weekStart, err := s.resolveWeek(weekStart)
	if err != nil {
		return nil, err
	}
	days, err := weekDays(weekStart)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.ShiftAssignment.ListByRange(ctx, days[0], days[6])
	if err != nil {
		s.logger.Error("查询周排班失败", zap.String("week_start", weekStart), zap.Error(err))
		return nil, err
	}
	return buildWeek(weekStart, days, list), nil
}

func (s *scheduleService) MyShifts(ctx context.Context, userID, weekStart string) (*dto.WeekScheduleResponse, error) {
	weekStart, err := s.resolveWeek(weekStart)
	if err != nil {
		return nil, err
	}
	days, err := weekDays(weekStart)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.ShiftAssignment.ListPublishedByStaff(ctx, userID, days[0], days[6])
	if err != nil {
		s.logger.Error("查询个人排班失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return buildWeek(weekStart, days, list), nil
}

func buildWeek(weekStart string, days []string, list []model.ShiftAssignment) *dto.WeekScheduleResponse {
	resp := &dto.WeekScheduleResponse{
		WeekStart:   weekStart,
		Days:        days,
		Assignments: make([]dto.ShiftAssignmentResponse, 0, len(list)),
	}
	for i := range list {
		resp.Assignments = append(resp.Assignments, toShiftAssignmentResponse(&list[i]))
	}
	return resp
}

func (s *scheduleService) TodayShift(ctx context.Context, userID string) (*dto.ShiftAssignmentResponse, error) {
	a, err := s.repo.ShiftAssignment.GetPublished(ctx, userID, ict.DateString(s.now()))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoShiftToday
		}
		s.logger.Error("查询今日排班失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toShiftAssignmentResponse(a)
	return &resp, nil
}

// ────────────────────── MyCalendar ──────────────────────

func (s *scheduleService) MyCalendar(ctx context.Context, userID string) (string, error) {
	today, _ := ict.ParseDate(ict.DateString(s.now()))
	from := today.AddDate(0, 0, -calendarPastDays).Format(ict.DateLayout)
	to := today.AddDate(0, 0, calendarFutureDays).Format(ict.DateLayout)

	list, err := s.repo.ShiftAssignment.ListPublishedByStaff(ctx, userID, from, to)
	if err != nil {
		s.logger.Error("查询日历排班失败", zap.String("user_id", userID), zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Villa Sun//Staff Schedule//DE")
	cal.SetXWRCalName("Villa Sun Schichtplan")

	stamp := s.now().UTC()
	for _, a := range list {
		if a.Shift == model.ShiftOff {
			continue
		}
		start, err := ict.Combine(a.ShiftDate.String(), s.shiftStart(a.Shift))
		if err != nil {
			s.logger.Warn("班次时间无效，跳过", zap.String("id", a.ID), zap.Error(err))
			continue
		}
		event := cal.AddEvent(a.ID + "@villasun")
		event.SetDtStampTime(stamp)
		event.SetStartAt(start.UTC())
		event.SetEndAt(start.Add(shiftDuration).UTC())
		event.SetSummary(shiftSummary(a.Shift))
	}
	return cal.Serialize(), nil
}

func (s *scheduleService) shiftStart(shift string) string {
	if shift == model.ShiftLate {
		return s.cfg.LateShiftStart
	}
	return s.cfg.EarlyShiftStart
}

func shiftSummary(shift string) string {
	if shift == model.ShiftLate {
		return "Spätschicht"
	}
	return "Frühschicht"
}
