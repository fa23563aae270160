package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	"villasun/backend/pkg/ict"
)

var (
	ErrCheckInNotToday = errors.New("只能使用今日的签到转动转盘")
	ErrCheckInRejected = errors.New("签到已被驳回，不能转动转盘")
)

// wheelSegment 转盘扇区：Label 为展示值，Delta 为相对签到基础分的实际变动
type wheelSegment struct {
	Label string
	Value int
	Delta int
}

// wheelSegments 固定 10 个扇区：1 个 "1 Punkt"、8 个 "5 Punkte"、1 个 "10 Punkte"
var wheelSegments = func() []wheelSegment {
	segs := make([]wheelSegment, 0, 10)
	segs = append(segs, wheelSegment{Label: "1 Punkt", Value: 1, Delta: -4})
	for i := 0; i < 8; i++ {
		segs = append(segs, wheelSegment{Label: "5 Punkte", Value: 5, Delta: 0})
	}
	segs = append(segs, wheelSegment{Label: "10 Punkte", Value: 10, Delta: 5})
	return segs
}()

// WheelSegments 返回展示用扇区列表
func WheelSegments() []dto.WheelSegment {
	list := make([]dto.WheelSegment, len(wheelSegments))
	for i, seg := range wheelSegments {
		list[i] = dto.WheelSegment{Index: i, Label: seg.Label}
	}
	return list
}

// WheelService 幸运转盘业务接口
type WheelService interface {
	// Spin 每人每个 ICT 日只生效一次，重复调用返回已有结果
	Spin(ctx context.Context, actor Actor, checkInID string) (*dto.SpinResult, error)
	Status(ctx context.Context, userID string) (*dto.WheelStatusResponse, error)
}

type wheelService struct {
	repo   *repository.Repository
	ledger *ledger
	intn   func(n int) int
	now    Clock
	logger *zap.Logger
}

// NewWheelService 创建 WheelService 实例
func NewWheelService(repo *repository.Repository, dailyAchievable int, logger *zap.Logger) WheelService {
	return &wheelService{
		repo:   repo,
		ledger: &ledger{goals: &goalCalculator{dailyAchievable: dailyAchievable}, now: time.Now},
		intn:   rand.IntN,
		now:    time.Now,
		logger: logger,
	}
}

func toSpinResult(spin *model.FortuneWheelSpin, alreadySpun bool) *dto.SpinResult {
	return &dto.SpinResult{
		Success:       true,
		AlreadySpun:   alreadySpun,
		SpinID:        spin.ID,
		SegmentIndex:  spin.SegmentIndex,
		RewardType:    spin.RewardType,
		RewardValue:   spin.RewardValue,
		RewardLabel:   spin.RewardLabel,
		PointsApplied: spin.PointsWon,
	}
}

// ────────────────────── Spin ──────────────────────

func (s *wheelService) Spin(ctx context.Context, actor Actor, checkInID string) (*dto.SpinResult, error) {
	now := s.now()
	today := ict.DateString(now)

	c, err := s.repo.CheckIn.GetByID(ctx, checkInID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckInNotFound
		}
		s.logger.Error("查询签到失败", zap.String("id", checkInID), zap.Error(err))
		return nil, err
	}
	if c.UserID != actor.UserID {
		return nil, ErrCheckInNotFound
	}
	if c.CheckInDate.String() != today {
		return nil, ErrCheckInNotToday
	}
	if c.Status == model.StatusRejected {
		return nil, ErrCheckInRejected
	}

	if existing, err := s.repo.FortuneWheel.GetByUserAndDate(ctx, actor.UserID, today); err == nil {
		return toSpinResult(existing, true), nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询转盘记录失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}

	idx := s.intn(len(wheelSegments))
	seg := wheelSegments[idx]
	spin := &model.FortuneWheelSpin{
		UserID:       actor.UserID,
		CheckInID:    c.ID,
		SpinDate:     model.Date(today),
		SegmentIndex: idx,
		RewardType:   model.RewardTypeBonusPoints,
		RewardValue:  seg.Value,
		RewardLabel:  seg.Label,
		PointsWon:    seg.Delta,
		CreatedAt:    now,
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.FortuneWheel.Create(ctx, spin); err != nil {
			return err
		}
		if spin.RewardType != model.RewardTypeBonusPoints || seg.Delta == 0 {
			return nil
		}
		return s.ledger.award(ctx, tx, &model.PointsHistory{
			UserID:       actor.UserID,
			PointsChange: seg.Delta,
			Reason:       "Glücksrad: " + seg.Label,
			Category:     model.PointsCategoryWheel,
			CreatedAt:    now,
		})
	})
	if err != nil {
		// 并发重复转动：唯一索引冲突后返回已有结果
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, getErr := s.repo.FortuneWheel.GetByUserAndDate(ctx, actor.UserID, today); getErr == nil {
				return toSpinResult(existing, true), nil
			}
		}
		s.logger.Error("转盘写入失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("转盘完成",
		zap.String("user_id", actor.UserID),
		zap.Int("segment", idx),
		zap.Int("points", seg.Delta),
	)
	return toSpinResult(spin, false), nil
}

// ────────────────────── Status ──────────────────────

// Status 用于补转：今日已签到但未转时返回签到 ID
func (s *wheelService) Status(ctx context.Context, userID string) (*dto.WheelStatusResponse, error) {
	today := ict.DateString(s.now())
	resp := &dto.WheelStatusResponse{Segments: WheelSegments()}

	spin, err := s.repo.FortuneWheel.GetByUserAndDate(ctx, userID, today)
	if err == nil {
		resp.AlreadySpun = true
		resp.Spin = toSpinResult(spin, true)
		return resp, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询转盘记录失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	c, err := s.repo.CheckIn.GetByUserAndDate(ctx, userID, today)
	if err == nil {
		if c.Status != model.StatusRejected {
			resp.PendingCheckInID = c.ID
		}
		return resp, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询今日签到失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return resp, nil
}
