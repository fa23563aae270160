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
	"villasun/backend/pkg/ict"
)

var (
	ErrNoCheckInToday          = errors.New("今日尚未签到，不能申请离岗")
	ErrDepartureAlreadyPending = errors.New("今日已有待审批的离岗申请")
	ErrDepartureNotFound       = errors.New("离岗申请不存在")
	ErrDepartureNotPending     = errors.New("离岗申请已处理")
)

// 驳回未填写原因时的默认值
const defaultDepartureRejectReason = "Keine Angabe"

// DepartureService 提前离岗业务接口
type DepartureService interface {
	Create(ctx context.Context, actor Actor, req *dto.CreateDepartureRequest) (*dto.DepartureResponse, error)
	// Approve 通过后为当日仍未签退的签到补记签退
	Approve(ctx context.Context, admin Actor, id string) (*dto.DepartureResponse, error)
	Reject(ctx context.Context, admin Actor, id, reason string) (*dto.DepartureResponse, error)
	ListPending(ctx context.Context) ([]dto.DepartureResponse, error)
	ListMine(ctx context.Context, userID string) ([]dto.DepartureResponse, error)
}

type departureService struct {
	repo   *repository.Repository
	now    Clock
	logger *zap.Logger
}

// NewDepartureService 创建 DepartureService 实例
func NewDepartureService(repo *repository.Repository, logger *zap.Logger) DepartureService {
	return &departureService{repo: repo, now: time.Now, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *departureService) Create(ctx context.Context, actor Actor, req *dto.CreateDepartureRequest) (*dto.DepartureResponse, error) {
	today := ict.DateString(s.now())

	c, err := s.repo.CheckIn.GetByUserAndDate(ctx, actor.UserID, today)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCheckInToday
		}
		s.logger.Error("查询今日签到失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}
	if c.Status == model.StatusRejected {
		return nil, ErrNoCheckInToday
	}

	if _, err := s.repo.Departure.GetPending(ctx, actor.UserID, today); err == nil {
		return nil, ErrDepartureAlreadyPending
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询离岗申请失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}

	d := &model.DepartureRequest{
		UserID:      actor.UserID,
		RequestDate: model.Date(today),
		ShiftType:   c.ShiftType,
		Reason:      sanitize(req.Reason),
		Status:      model.StatusPending,
	}
	if err := s.repo.Departure.Create(ctx, d); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDepartureAlreadyPending
		}
		s.logger.Error("创建离岗申请失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}

	resp := toDepartureResponse(d)
	return &resp, nil
}

func loadPendingDeparture(ctx context.Context, repo *repository.Repository, id string) (*model.DepartureRequest, error) {
	d, err := repo.Departure.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartureNotFound
		}
		return nil, err
	}
	if d.Status != model.StatusPending {
		return nil, ErrDepartureNotPending
	}
	return d, nil
}

// ────────────────────── Approve ──────────────────────

func (s *departureService) Approve(ctx context.Context, admin Actor, id string) (*dto.DepartureResponse, error) {
	now := s.now()
	var d *model.DepartureRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if d, err = loadPendingDeparture(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Departure.Decide(ctx, d.ID, model.StatusApproved, admin.UserID, "", now); err != nil {
			return err
		}
		d.Status = model.StatusApproved
		d.ApprovedBy = &admin.UserID
		d.ApprovedAt = &now

		return s.closeCheckIn(ctx, tx, d, now)
	})
	if err != nil {
		return nil, s.decisionError("审批离岗申请失败", id, err)
	}

	notify(ctx, s.repo, s.logger, d.UserID, model.NotificationDepartureApproved,
		"Feierabend bestätigt", fmt.Sprintf("Dein Antrag vom %s wurde genehmigt.", d.RequestDate))

	resp := toDepartureResponse(d)
	return &resp, nil
}

// closeCheckIn 为申请当日的签到补记签退；签到缺失只记录告警
func (s *departureService) closeCheckIn(ctx context.Context, tx *repository.Repository, d *model.DepartureRequest, at time.Time) error {
	c, err := tx.CheckIn.GetByUserAndDate(ctx, d.UserID, d.RequestDate.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("离岗申请对应的签到不存在",
				zap.String("departure_id", d.ID),
				zap.String("user_id", d.UserID),
			)
			return nil
		}
		return err
	}
	if c.CheckOutTime != nil || at.Before(c.CheckInTime) {
		return nil
	}
	err = tx.CheckIn.Checkout(ctx, c.ID, at, WorkHours(c.CheckInTime, at))
	if errors.Is(err, pkgerrors.ErrStaleState) {
		return nil
	}
	return err
}

// ────────────────────── Reject ──────────────────────

func (s *departureService) Reject(ctx context.Context, admin Actor, id, reason string) (*dto.DepartureResponse, error) {
	reason = sanitize(reason)
	if reason == "" {
		reason = defaultDepartureRejectReason
	}

	now := s.now()
	var d *model.DepartureRequest
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		if d, err = loadPendingDeparture(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.Departure.Decide(ctx, d.ID, model.StatusRejected, admin.UserID, reason, now); err != nil {
			return err
		}
		d.Status = model.StatusRejected
		d.RejectionReason = reason
		d.ApprovedBy = &admin.UserID
		d.ApprovedAt = &now
		return nil
	})
	if err != nil {
		return nil, s.decisionError("驳回离岗申请失败", id, err)
	}

	notify(ctx, s.repo, s.logger, d.UserID, model.NotificationDepartureRejected,
		"Feierabend abgelehnt", fmt.Sprintf("Dein Antrag vom %s wurde abgelehnt: %s", d.RequestDate, reason))

	resp := toDepartureResponse(d)
	return &resp, nil
}

func (s *departureService) decisionError(msg, id string, err error) error {
	switch {
	case errors.Is(err, ErrDepartureNotFound), errors.Is(err, ErrDepartureNotPending):
		return err
	case errors.Is(err, pkgerrors.ErrStaleState):
		return ErrDepartureNotPending
	}
	s.logger.Error(msg, zap.String("id", id), zap.Error(err))
	return err
}

// ────────────────────── Query ──────────────────────

func (s *departureService) ListPending(ctx context.Context) ([]dto.DepartureResponse, error) {
	list, err := s.repo.Departure.ListPending(ctx)
	if err != nil {
		s.logger.Error("查询待审批离岗申请失败", zap.Error(err))
		return nil, err
	}
	return toDepartureResponses(list), nil
}

func (s *departureService) ListMine(ctx context.Context, userID string) ([]dto.DepartureResponse, error) {
	list, err := s.repo.Departure.ListByUser(ctx, userID, 30)
	if err != nil {
		s.logger.Error("查询离岗申请失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toDepartureResponses(list), nil
}

func toDepartureResponses(list []model.DepartureRequest) []dto.DepartureResponse {
	resp := make([]dto.DepartureResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toDepartureResponse(&list[i]))
	}
	return resp
}
