package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"villasun/backend/config"
	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	pkgerrors "villasun/backend/pkg/errors"
	"villasun/backend/pkg/ict"
)

// ── 签到模块业务错误 ──

var (
	ErrNotScheduled          = errors.New("今日没有排班，无法签到")
	ErrLateReasonRequired    = errors.New("迟到签到必须填写原因")
	ErrAlreadyCheckedIn      = errors.New("今日已签到")
	ErrCheckInNotFound       = errors.New("签到记录不存在")
	ErrAlreadyCheckedOut     = errors.New("该签到已签退")
	ErrCheckoutBeforeCheckIn = errors.New("签退时间不能早于签到时间")
	ErrInvalidCheckInTime    = errors.New("签到日期或时间无效")
)

// 迟到扣分下限
const maxLatePenalty = -5

// Lateness 按 ICT 分钟数比较，严格大于阈值才算迟到
func Lateness(minutes, threshold int) (bool, int) {
	if minutes > threshold {
		return true, minutes - threshold
	}
	return false, 0
}

// ProvisionalPoints 签到的预估分：准时为 onTime，迟到按每 step 分钟多扣 1 分，最多扣 5 分
func ProvisionalPoints(isLate bool, minutesLate, onTime, step int) int {
	if !isLate {
		return onTime
	}
	if step <= 0 {
		step = 15
	}
	p := -(1 + minutesLate/step)
	if p < maxLatePenalty {
		p = maxLatePenalty
	}
	return p
}

// WorkHours 工时（小时），四舍五入保留两位
func WorkHours(in, out time.Time) decimal.Decimal {
	seconds := decimal.NewFromInt(int64(out.Sub(in) / time.Second))
	return seconds.Div(decimal.NewFromInt(3600)).Round(2)
}

// AttendanceService 签到业务接口
type AttendanceService interface {
	Eligibility(ctx context.Context, actor Actor) (*dto.EligibilityResponse, error)
	CheckIn(ctx context.Context, actor Actor, req *dto.CheckInRequest) (*dto.CheckInResult, error)
	Today(ctx context.Context, userID string) ([]dto.CheckInResponse, error)
	History(ctx context.Context, userID, month string) ([]dto.CheckInResponse, error)
	ManualCheckIn(ctx context.Context, admin Actor, req *dto.ManualCheckInRequest) (*dto.CheckInResult, error)
	Checkout(ctx context.Context, admin Actor, req *dto.CheckoutRequest) (*dto.CheckoutResult, error)
	// ListActive 今日尚未签退的签到
	ListActive(ctx context.Context) ([]dto.CheckInResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	cfg    *config.AttendanceConfig
	now    Clock
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, cfg *config.AttendanceConfig, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, cfg: cfg, now: time.Now, logger: logger}
}

// threshold 返回班次的迟到阈值（分钟数）及原始 HH:MM
func (s *attendanceService) threshold(shift string) (int, string) {
	clock := s.cfg.EarlyShiftStart
	if shift == model.ShiftLate {
		clock = s.cfg.LateShiftStart
	}
	m, err := ict.ParseClock(clock)
	if err != nil {
		// 配置在启动时已校验
		m = 9 * 60
	}
	return m, clock
}

// ────────────────────── Eligibility ──────────────────────

func (s *attendanceService) Eligibility(ctx context.Context, actor Actor) (*dto.EligibilityResponse, error) {
	if actor.IsAdmin() {
		_, clock := s.threshold(model.ShiftEarly)
		return &dto.EligibilityResponse{Eligible: true, Shift: model.ShiftEarly, Threshold: clock}, nil
	}

	today := ict.DateString(s.now())
	a, err := s.repo.ShiftAssignment.GetPublished(ctx, actor.UserID, today)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &dto.EligibilityResponse{Eligible: false, Reason: "no_shift"}, nil
	case s.cfg.ScheduleFailOpen:
		s.logger.Warn("查询排班失败，按早班放行签到",
			zap.String("user_id", actor.UserID),
			zap.String("date", today),
			zap.Error(err),
		)
		_, clock := s.threshold(model.ShiftEarly)
		return &dto.EligibilityResponse{Eligible: true, Shift: model.ShiftEarly, Threshold: clock, FailOpen: true}, nil
	default:
		s.logger.Error("查询排班失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}

	if a.Shift == model.ShiftOff {
		return &dto.EligibilityResponse{Eligible: false, Shift: model.ShiftOff, Reason: "day_off"}, nil
	}
	_, clock := s.threshold(a.Shift)
	return &dto.EligibilityResponse{Eligible: true, Shift: a.Shift, Threshold: clock}, nil
}

// ────────────────────── CheckIn ──────────────────────

func (s *attendanceService) CheckIn(ctx context.Context, actor Actor, req *dto.CheckInRequest) (*dto.CheckInResult, error) {
	elig, err := s.Eligibility(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !elig.Eligible {
		return nil, ErrNotScheduled
	}

	shift := req.ShiftType
	if shift == "" {
		shift = elig.Shift
	}

	now := s.now()
	result, err := s.record(ctx, &model.CheckIn{
		UserID:      actor.UserID,
		CheckInDate: model.Date(ict.DateString(now)),
		CheckInTime: now,
		ShiftType:   shift,
		LateReason:  sanitize(req.LateReason),
	}, true, nil)
	if err != nil {
		return nil, err
	}

	// 今日尚未转过转盘时提示前端展示
	if _, err := s.repo.FortuneWheel.GetByUserAndDate(ctx, actor.UserID, ict.DateString(now)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.ShowFortuneWheel = true
		} else {
			s.logger.Warn("查询转盘记录失败", zap.String("user_id", actor.UserID), zap.Error(err))
		}
	}
	return result, nil
}

// record 计算迟到与预估分并写入 pending 签到
// 同一事务内可附带 after（如管理日志）
func (s *attendanceService) record(ctx context.Context, c *model.CheckIn, requireReason bool, after func(tx *repository.Repository) error) (*dto.CheckInResult, error) {
	threshold, _ := s.threshold(c.ShiftType)
	c.IsLate, c.MinutesLate = Lateness(ict.MinutesSinceMidnight(c.CheckInTime), threshold)
	if c.IsLate && requireReason && c.LateReason == "" {
		return nil, ErrLateReasonRequired
	}
	c.Status = model.StatusPending
	c.PointsAwarded = ProvisionalPoints(c.IsLate, c.MinutesLate, s.cfg.OnTimePoints, s.cfg.LatePenaltyStep)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.CheckIn.GetByUserAndDate(ctx, c.UserID, c.CheckInDate.String()); err == nil {
			return ErrAlreadyCheckedIn
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.CheckIn.Create(ctx, c); err != nil {
			return err
		}
		if after != nil {
			return after(tx)
		}
		return nil
	})
	if err != nil {
		// 并发签到由唯一索引兜底
		if errors.Is(err, ErrAlreadyCheckedIn) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyCheckedIn
		}
		s.logger.Error("写入签到失败", zap.String("user_id", c.UserID), zap.Error(err))
		return nil, err
	}

	msg := "签到成功，等待审批"
	if c.IsLate {
		msg = fmt.Sprintf("签到成功（迟到 %d 分钟），等待审批", c.MinutesLate)
	}
	return &dto.CheckInResult{
		Success:       true,
		Message:       msg,
		CheckInID:     c.ID,
		Status:        c.Status,
		IsLate:        c.IsLate,
		MinutesLate:   c.MinutesLate,
		PointsAwarded: c.PointsAwarded,
	}, nil
}

// ────────────────────── Query ──────────────────────

func (s *attendanceService) Today(ctx context.Context, userID string) ([]dto.CheckInResponse, error) {
	today := ict.DateString(s.now())
	list, err := s.repo.CheckIn.ListByUserRange(ctx, userID, today, today)
	if err != nil {
		s.logger.Error("查询今日签到失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toCheckInResponses(list), nil
}

func (s *attendanceService) History(ctx context.Context, userID, month string) ([]dto.CheckInResponse, error) {
	if month == "" {
		month = ict.MonthString(s.now())
	}
	start, end, err := ict.MonthBounds(month)
	if err != nil {
		return nil, ErrInvalidGoalPeriod
	}
	list, err := s.repo.CheckIn.ListByUserRange(ctx, userID,
		start.Format(ict.DateLayout), end.AddDate(0, 0, -1).Format(ict.DateLayout))
	if err != nil {
		s.logger.Error("查询签到历史失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toCheckInResponses(list), nil
}

func (s *attendanceService) ListActive(ctx context.Context) ([]dto.CheckInResponse, error) {
	list, err := s.repo.CheckIn.ListOpen(ctx, ict.DateString(s.now()))
	if err != nil {
		s.logger.Error("查询未签退列表失败", zap.Error(err))
		return nil, err
	}
	return toCheckInResponses(list), nil
}

func toCheckInResponses(list []model.CheckIn) []dto.CheckInResponse {
	resp := make([]dto.CheckInResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toCheckInResponse(&list[i]))
	}
	return resp
}

// ────────────────────── ManualCheckIn ──────────────────────

func (s *attendanceService) ManualCheckIn(ctx context.Context, admin Actor, req *dto.ManualCheckInRequest) (*dto.CheckInResult, error) {
	at, err := ict.Combine(req.Date, req.Time)
	if err != nil {
		return nil, ErrInvalidCheckInTime
	}
	if _, err := s.repo.Profile.GetByID(ctx, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询员工失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	c := &model.CheckIn{
		UserID:      req.UserID,
		CheckInDate: model.Date(req.Date),
		CheckInTime: at,
		ShiftType:   req.ShiftType,
		LateReason:  sanitize(req.LateReason),
		IsManual:    true,
		CreatedBy:   &admin.UserID,
	}
	result, err := s.record(ctx, c, false, func(tx *repository.Repository) error {
		return logAdminAction(ctx, tx, admin.UserID, model.AdminActionManualCheckIn, &req.UserID, model.JSONMap{
			"check_in_id": c.ID,
			"date":        req.Date,
			"time":        req.Time,
			"shift_type":  req.ShiftType,
		})
	})
	if err != nil {
		return nil, err
	}
	result.Message = "补录签到成功"
	return result, nil
}

// ────────────────────── Checkout ──────────────────────

func (s *attendanceService) Checkout(ctx context.Context, admin Actor, req *dto.CheckoutRequest) (*dto.CheckoutResult, error) {
	c, err := s.repo.CheckIn.GetByID(ctx, req.CheckInID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckInNotFound
		}
		s.logger.Error("查询签到失败", zap.String("id", req.CheckInID), zap.Error(err))
		return nil, err
	}
	if c.CheckOutTime != nil {
		return nil, ErrAlreadyCheckedOut
	}

	at := s.now()
	if req.Time != "" {
		if at, err = ict.Combine(c.CheckInDate.String(), req.Time); err != nil {
			return nil, ErrInvalidCheckInTime
		}
	}
	if at.Before(c.CheckInTime) {
		return nil, ErrCheckoutBeforeCheckIn
	}
	hours := WorkHours(c.CheckInTime, at)

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.CheckIn.Checkout(ctx, c.ID, at, hours); err != nil {
			return err
		}
		return logAdminAction(ctx, tx, admin.UserID, model.AdminActionManualCheckout, &c.UserID, model.JSONMap{
			"check_in_id":    c.ID,
			"check_out_time": at.Format(time.RFC3339),
			"work_hours":     hours.StringFixed(2),
		})
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrStaleState) {
			return nil, ErrAlreadyCheckedOut
		}
		s.logger.Error("签退失败", zap.String("id", c.ID), zap.Error(err))
		return nil, err
	}

	return &dto.CheckoutResult{CheckInID: c.ID, CheckOutTime: at, WorkHours: hours.StringFixed(2)}, nil
}
