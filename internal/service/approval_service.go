package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	pkgerrors "villasun/backend/pkg/errors"
)

var (
	ErrPointsOutOfRange     = errors.New("自定义积分必须在 -5 到 5 之间")
	ErrCheckInNotPending    = errors.New("签到已审批，不能重复操作")
	ErrRejectReasonRequired = errors.New("驳回必须填写原因")
)

// 审批自定义积分范围
const (
	minCustomPoints = -5
	maxCustomPoints = 5
)

// ApprovalService 签到审批业务接口
type ApprovalService interface {
	ListPending(ctx context.Context) ([]dto.CheckInResponse, error)
	// Approve customPoints 为 nil 时使用签到时的预估分
	Approve(ctx context.Context, admin Actor, checkInID string, customPoints *int) (*dto.CheckInResponse, error)
	Reject(ctx context.Context, admin Actor, checkInID, reason string) (*dto.CheckInResponse, error)
}

type approvalService struct {
	repo   *repository.Repository
	ledger *ledger
	now    Clock
	logger *zap.Logger
}

// NewApprovalService 创建 ApprovalService 实例
func NewApprovalService(repo *repository.Repository, dailyAchievable int, logger *zap.Logger) ApprovalService {
	return &approvalService{
		repo:   repo,
		ledger: &ledger{goals: &goalCalculator{dailyAchievable: dailyAchievable}, now: time.Now},
		now:    time.Now,
		logger: logger,
	}
}

func (s *approvalService) ListPending(ctx context.Context) ([]dto.CheckInResponse, error) {
	list, err := s.repo.CheckIn.ListPending(ctx)
	if err != nil {
		s.logger.Error("查询待审批签到失败", zap.Error(err))
		return nil, err
	}
	return toCheckInResponses(list), nil
}

// loadPending 读取签到并确认仍为 pending
func loadPending(ctx context.Context, repo *repository.Repository, id string) (*model.CheckIn, error) {
	c, err := repo.CheckIn.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCheckInNotFound
		}
		return nil, err
	}
	if c.Status != model.StatusPending {
		return nil, ErrCheckInNotPending
	}
	return c, nil
}

// ────────────────────── Approve ──────────────────────

func (s *approvalService) Approve(ctx context.Context, admin Actor, checkInID string, customPoints *int) (*dto.CheckInResponse, error) {
	if customPoints != nil && (*customPoints < minCustomPoints || *customPoints > maxCustomPoints) {
		return nil, ErrPointsOutOfRange
	}

	now := s.now()
	var c *model.CheckIn
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if c, err = loadPending(ctx, tx, checkInID); err != nil {
			return err
		}

		points := c.PointsAwarded
		if customPoints != nil {
			points = *customPoints
		}
		if err := tx.CheckIn.Approve(ctx, c.ID, admin.UserID, points, now); err != nil {
			return err
		}
		c.Status = model.StatusApproved
		c.PointsAwarded = points
		c.ApprovedBy = &admin.UserID
		c.ApprovedAt = &now

		if points == 0 {
			return nil
		}
		return s.ledger.award(ctx, tx, &model.PointsHistory{
			UserID:       c.UserID,
			PointsChange: points,
			Reason:       fmt.Sprintf("Check-in %s", c.CheckInDate),
			Category:     model.PointsCategoryCheckIn,
			CreatedBy:    &admin.UserID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, s.decisionError("审批签到失败", checkInID, err)
	}

	notify(ctx, s.repo, s.logger, c.UserID, model.NotificationCheckInApproved,
		"Check-in bestätigt", fmt.Sprintf("Dein Check-in vom %s wurde bestätigt (%+d Punkte).", c.CheckInDate, c.PointsAwarded))

	resp := toCheckInResponse(c)
	return &resp, nil
}

// ────────────────────── Reject ──────────────────────

func (s *approvalService) Reject(ctx context.Context, admin Actor, checkInID, reason string) (*dto.CheckInResponse, error) {
	reason = sanitize(reason)
	if reason == "" {
		return nil, ErrRejectReasonRequired
	}

	now := s.now()
	var c *model.CheckIn
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if c, err = loadPending(ctx, tx, checkInID); err != nil {
			return err
		}
		if err := tx.CheckIn.Reject(ctx, c.ID, admin.UserID, reason, now); err != nil {
			return err
		}
		c.Status = model.StatusRejected
		c.PointsAwarded = 0
		c.RejectionReason = reason
		c.ApprovedBy = &admin.UserID
		c.ApprovedAt = &now
		return nil
	})
	if err != nil {
		return nil, s.decisionError("驳回签到失败", checkInID, err)
	}

	notify(ctx, s.repo, s.logger, c.UserID, model.NotificationCheckInRejected,
		"Check-in abgelehnt", fmt.Sprintf("Dein Check-in vom %s wurde abgelehnt: %s", c.CheckInDate, reason))

	resp := toCheckInResponse(c)
	return &resp, nil
}

func (s *approvalService) decisionError(msg, id string, err error) error {
	switch {
	case errors.Is(err, ErrCheckInNotFound), errors.Is(err, ErrCheckInNotPending):
		return err
	case errors.Is(err, pkgerrors.ErrStaleState):
		// 并发审批：另一管理员已先处理
		return ErrCheckInNotPending
	}
	s.logger.Error(msg, zap.String("id", id), zap.Error(err))
	return err
}
