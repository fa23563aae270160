package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"villasun/backend/internal/model"
	pkgerrors "villasun/backend/pkg/errors"
)

// PatrolLocationRepository 巡逻点位数据访问接口
type PatrolLocationRepository interface {
	Create(ctx context.Context, loc *model.PatrolLocation) error
	GetByQRCode(ctx context.Context, code string) (*model.PatrolLocation, error)
	ListActive(ctx context.Context) ([]model.PatrolLocation, error)
	CountActive(ctx context.Context) (int64, error)
}

// PatrolScheduleRepository 巡逻排班数据访问接口
type PatrolScheduleRepository interface {
	Upsert(ctx context.Context, schedule *model.PatrolSchedule) error
	ListByDate(ctx context.Context, date string) ([]model.PatrolSchedule, error)
}

// PatrolRoundRepository 巡逻轮次数据访问接口
type PatrolRoundRepository interface {
	// CreateMissing 批量插入轮次，已存在的 (date, time_slot, assigned_to) 跳过
	CreateMissing(ctx context.Context, rounds []model.PatrolRound) (int64, error)
	GetByID(ctx context.Context, id string) (*model.PatrolRound, error)
	// LockByID 在事务内以 SELECT ... FOR UPDATE 锁定轮次，串行化同一轮次的扫码
	LockByID(ctx context.Context, id string) (*model.PatrolRound, error)
	ListByUserAndDate(ctx context.Context, userID, date string) ([]model.PatrolRound, error)
	ListByDate(ctx context.Context, date string) ([]model.PatrolRound, error)
	// Complete 仅对未完成轮次生效，否则返回 ErrStaleState
	Complete(ctx context.Context, id string, at time.Time, points int) error
}

// PatrolScanRepository 巡逻扫码数据访问接口
type PatrolScanRepository interface {
	Create(ctx context.Context, scan *model.PatrolScan) error
	ListByRounds(ctx context.Context, roundIDs []string) ([]model.PatrolScan, error)
	CountDistinctLocations(ctx context.Context, roundID string) (int64, error)
}

// ── PatrolLocation Repository 实现 ──

type patrolLocationRepo struct {
	db *gorm.DB
}

// NewPatrolLocationRepo 创建 PatrolLocationRepository 实例
func NewPatrolLocationRepo(db *gorm.DB) PatrolLocationRepository {
	return &patrolLocationRepo{db: db}
}

func (r *patrolLocationRepo) Create(ctx context.Context, loc *model.PatrolLocation) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

func (r *patrolLocationRepo) GetByQRCode(ctx context.Context, code string) (*model.PatrolLocation, error) {
	var loc model.PatrolLocation
	err := r.db.WithContext(ctx).
		Where("qr_code = ? AND is_active = ?", code, true).
		First(&loc).Error
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *patrolLocationRepo) ListActive(ctx context.Context) ([]model.PatrolLocation, error) {
	var list []model.PatrolLocation
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("order_index ASC, name ASC").
		Find(&list).Error
	return list, err
}

func (r *patrolLocationRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.PatrolLocation{}).
		Where("is_active = ?", true).
		Count(&n).Error
	return n, err
}

// ── PatrolSchedule Repository 实现 ──

type patrolScheduleRepo struct {
	db *gorm.DB
}

// NewPatrolScheduleRepo 创建 PatrolScheduleRepository 实例
func NewPatrolScheduleRepo(db *gorm.DB) PatrolScheduleRepository {
	return &patrolScheduleRepo{db: db}
}

func (r *patrolScheduleRepo) Upsert(ctx context.Context, schedule *model.PatrolSchedule) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(schedule).Error
}

func (r *patrolScheduleRepo) ListByDate(ctx context.Context, date string) ([]model.PatrolSchedule, error) {
	var list []model.PatrolSchedule
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("shift ASC").
		Find(&list).Error
	return list, err
}

// ── PatrolRound Repository 实现 ──

type patrolRoundRepo struct {
	db *gorm.DB
}

// NewPatrolRoundRepo 创建 PatrolRoundRepository 实例
func NewPatrolRoundRepo(db *gorm.DB) PatrolRoundRepository {
	return &patrolRoundRepo{db: db}
}

func (r *patrolRoundRepo) CreateMissing(ctx context.Context, rounds []model.PatrolRound) (int64, error) {
	if len(rounds) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rounds)
	return result.RowsAffected, result.Error
}

func (r *patrolRoundRepo) GetByID(ctx context.Context, id string) (*model.PatrolRound, error) {
	var round model.PatrolRound
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&round).Error; err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *patrolRoundRepo) LockByID(ctx context.Context, id string) (*model.PatrolRound, error) {
	var round model.PatrolRound
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&round).Error
	if err != nil {
		return nil, err
	}
	return &round, nil
}

func (r *patrolRoundRepo) ListByUserAndDate(ctx context.Context, userID, date string) ([]model.PatrolRound, error) {
	var list []model.PatrolRound
	err := r.db.WithContext(ctx).
		Where("assigned_to = ? AND date = ?", userID, date).
		Order("scheduled_time ASC").
		Find(&list).Error
	return list, err
}

func (r *patrolRoundRepo) ListByDate(ctx context.Context, date string) ([]model.PatrolRound, error) {
	var list []model.PatrolRound
	err := r.db.WithContext(ctx).
		Where("date = ?", date).
		Order("scheduled_time ASC").
		Find(&list).Error
	return list, err
}

func (r *patrolRoundRepo) Complete(ctx context.Context, id string, at time.Time, points int) error {
	result := r.db.WithContext(ctx).
		Model(&model.PatrolRound{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{
			"completed_at":   at,
			"points_awarded": points,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStaleState
	}
	return nil
}

// ── PatrolScan Repository 实现 ──

type patrolScanRepo struct {
	db *gorm.DB
}

// NewPatrolScanRepo 创建 PatrolScanRepository 实例
func NewPatrolScanRepo(db *gorm.DB) PatrolScanRepository {
	return &patrolScanRepo{db: db}
}

func (r *patrolScanRepo) Create(ctx context.Context, scan *model.PatrolScan) error {
	return r.db.WithContext(ctx).Create(scan).Error
}

func (r *patrolScanRepo) ListByRounds(ctx context.Context, roundIDs []string) ([]model.PatrolScan, error) {
	var list []model.PatrolScan
	if len(roundIDs) == 0 {
		return list, nil
	}
	err := r.db.WithContext(ctx).
		Where("round_id IN ?", roundIDs).
		Order("scanned_at ASC").
		Find(&list).Error
	return list, err
}

func (r *patrolScanRepo) CountDistinctLocations(ctx context.Context, roundID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.PatrolScan{}).
		Where("round_id = ?", roundID).
		Distinct("location_id").
		Count(&n).Error
	return n, err
}
