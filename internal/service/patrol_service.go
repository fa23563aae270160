package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"villasun/backend/config"
	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	pkgerrors "villasun/backend/pkg/errors"
	"villasun/backend/pkg/ict"
)

// ── 巡逻模块业务错误 ──

var (
	ErrUnknownLocation        = errors.New("无法识别的巡逻二维码")
	ErrNoActiveRound          = errors.New("当前没有进行中的巡逻轮次")
	ErrLocationAlreadyScanned = errors.New("该点位本轮已扫描")
	ErrQRCodeExists           = errors.New("二维码已被其他点位使用")
)

// 轮次状态
const (
	RoundUpcoming  = "upcoming"
	RoundActive    = "active"
	RoundCompleted = "completed"
	RoundMissed    = "missed"
)

// 展示状态：距离时段 ±15 分钟内视为进行中
const roundActiveWindow = 15

// RoundStatus 计算轮次的展示状态
func RoundStatus(slotMinutes, nowMinutes int, completed bool) string {
	if completed {
		return RoundCompleted
	}
	diff := nowMinutes - slotMinutes
	switch {
	case diff > roundActiveWindow:
		return RoundMissed
	case diff >= -roundActiveWindow:
		return RoundActive
	default:
		return RoundUpcoming
	}
}

// PhotoDemandStore 拍照要求的短期记忆（Redis 实现见 pkg/redis）
type PhotoDemandStore interface {
	RememberPhotoDemand(ctx context.Context, roundID, locationID string, ttl time.Duration) error
	HasPhotoDemand(ctx context.Context, roundID, locationID string) (bool, error)
	ClearPhotoDemand(ctx context.Context, roundID, locationID string) error
}

// memoryPhotoDemands 未配置 Redis 时的进程内实现
type memoryPhotoDemands struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

// NewMemoryPhotoDemands 创建进程内 PhotoDemandStore
func NewMemoryPhotoDemands() PhotoDemandStore {
	return &memoryPhotoDemands{expires: make(map[string]time.Time)}
}

func (m *memoryPhotoDemands) RememberPhotoDemand(_ context.Context, roundID, locationID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[roundID+":"+locationID] = time.Now().Add(ttl)
	return nil
}

func (m *memoryPhotoDemands) HasPhotoDemand(_ context.Context, roundID, locationID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := roundID + ":" + locationID
	exp, ok := m.expires[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(m.expires, key)
		return false, nil
	}
	return true, nil
}

func (m *memoryPhotoDemands) ClearPhotoDemand(_ context.Context, roundID, locationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, roundID+":"+locationID)
	return nil
}

// PatrolService 巡逻业务接口
type PatrolService interface {
	// EnsureRounds 按巡逻排班补齐某日轮次，返回新建数量
	EnsureRounds(ctx context.Context, date string) (int64, error)
	Today(ctx context.Context, userID string) (*dto.PatrolTodayResponse, error)
	Scan(ctx context.Context, actor Actor, req *dto.ScanRequest) (*dto.ScanResult, error)
	// TestScan 与 Scan 相同的校验与拍照抽取，不落库
	TestScan(ctx context.Context, admin Actor, req *dto.TestScanRequest) (*dto.ScanResult, error)
	CreateLocation(ctx context.Context, req *dto.CreateLocationRequest) (*dto.LocationResponse, error)
	ListLocations(ctx context.Context) ([]dto.LocationResponse, error)
	SetSchedule(ctx context.Context, req *dto.SetPatrolScheduleRequest) (*dto.PatrolScheduleResponse, error)
	ListSchedules(ctx context.Context, date string) ([]dto.PatrolScheduleResponse, error)
	ListRounds(ctx context.Context, date string) ([]dto.PatrolRoundResponse, error)
}

type patrolService struct {
	repo    *repository.Repository
	cfg     *config.PatrolConfig
	demands PhotoDemandStore
	ledger  *ledger
	float   func() float64
	now     Clock
	logger  *zap.Logger
}

// NewPatrolService 创建 PatrolService 实例；demands 为 nil 时使用进程内实现
func NewPatrolService(
	repo *repository.Repository,
	cfg *config.PatrolConfig,
	demands PhotoDemandStore,
	dailyAchievable int,
	logger *zap.Logger,
) PatrolService {
	if demands == nil {
		demands = NewMemoryPhotoDemands()
	}
	return &patrolService{
		repo:    repo,
		cfg:     cfg,
		demands: demands,
		ledger:  &ledger{goals: &goalCalculator{dailyAchievable: dailyAchievable}, now: time.Now},
		float:   rand.Float64,
		now:     time.Now,
		logger:  logger,
	}
}

// slotsFor 早班巡逻取 late_shift_from 之前的时段，晚班取其余
func (s *patrolService) slotsFor(shift string) []string {
	cut, _ := ict.ParseClock(s.cfg.LateShiftFrom)
	var slots []string
	for _, slot := range s.cfg.TimeSlots {
		m, err := ict.ParseClock(slot)
		if err != nil {
			continue
		}
		if (m < cut) == (shift == model.PatrolShiftMorning) {
			slots = append(slots, slot)
		}
	}
	return slots
}

// ────────────────────── EnsureRounds ──────────────────────

func (s *patrolService) EnsureRounds(ctx context.Context, date string) (int64, error) {
	schedules, err := s.repo.PatrolSchedule.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询巡逻排班失败", zap.String("date", date), zap.Error(err))
		return 0, err
	}

	var rounds []model.PatrolRound
	for _, sch := range schedules {
		for _, slot := range s.slotsFor(sch.Shift) {
			at, err := ict.Combine(date, slot)
			if err != nil {
				return 0, ErrInvalidGoalPeriod
			}
			rounds = append(rounds, model.PatrolRound{
				Date:          model.Date(date),
				TimeSlot:      slot,
				AssignedTo:    sch.AssignedTo,
				ScheduledTime: at,
			})
		}
	}
	if len(rounds) == 0 {
		return 0, nil
	}

	n, err := s.repo.PatrolRound.CreateMissing(ctx, rounds)
	if err != nil {
		s.logger.Error("创建巡逻轮次失败", zap.String("date", date), zap.Error(err))
		return 0, err
	}
	return n, nil
}

// ────────────────────── Today ──────────────────────

func (s *patrolService) Today(ctx context.Context, userID string) (*dto.PatrolTodayResponse, error) {
	now := s.now()
	date := ict.DateString(now)

	if _, err := s.EnsureRounds(ctx, date); err != nil {
		s.logger.Warn("补齐今日巡逻轮次失败", zap.String("date", date), zap.Error(err))
	}

	locations, err := s.repo.PatrolLocation.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询巡逻点位失败", zap.Error(err))
		return nil, err
	}
	rounds, err := s.repo.PatrolRound.ListByUserAndDate(ctx, userID, date)
	if err != nil {
		s.logger.Error("查询巡逻轮次失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	list, err := s.describeRounds(ctx, rounds, len(locations), now)
	if err != nil {
		return nil, err
	}

	resp := &dto.PatrolTodayResponse{
		Date:      date,
		Rounds:    list,
		Locations: make([]dto.LocationResponse, 0, len(locations)),
	}
	for i := range locations {
		resp.Locations = append(resp.Locations, toLocationResponse(&locations[i]))
	}
	if active := activeRound(rounds, now); active != nil {
		for i := range list {
			if list[i].ID == active.ID {
				resp.ActiveRound = &list[i]
				break
			}
		}
	}
	return resp, nil
}

// ListRounds 管理端查看某日所有轮次
func (s *patrolService) ListRounds(ctx context.Context, date string) ([]dto.PatrolRoundResponse, error) {
	now := s.now()
	if date == "" {
		date = ict.DateString(now)
	}
	total, err := s.repo.PatrolLocation.CountActive(ctx)
	if err != nil {
		s.logger.Error("统计巡逻点位失败", zap.Error(err))
		return nil, err
	}
	rounds, err := s.repo.PatrolRound.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询巡逻轮次失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}
	return s.describeRounds(ctx, rounds, int(total), now)
}

// describeRounds 附加按点位去重的扫码进度与状态
func (s *patrolService) describeRounds(ctx context.Context, rounds []model.PatrolRound, total int, now time.Time) ([]dto.PatrolRoundResponse, error) {
	ids := make([]string, 0, len(rounds))
	for _, r := range rounds {
		ids = append(ids, r.ID)
	}
	scanned := make(map[string][]string, len(rounds))
	if len(ids) > 0 {
		scans, err := s.repo.PatrolScan.ListByRounds(ctx, ids)
		if err != nil {
			s.logger.Error("查询巡逻扫码失败", zap.Error(err))
			return nil, err
		}
		seen := make(map[string]bool, len(scans))
		for _, sc := range scans {
			key := sc.RoundID + ":" + sc.LocationID
			if seen[key] {
				continue
			}
			seen[key] = true
			scanned[sc.RoundID] = append(scanned[sc.RoundID], sc.LocationID)
		}
	}

	nowMinutes := ict.MinutesSinceMidnight(now)
	list := make([]dto.PatrolRoundResponse, 0, len(rounds))
	for _, r := range rounds {
		slot, _ := ict.ParseClock(r.TimeSlot)
		locIDs := scanned[r.ID]
		if locIDs == nil {
			locIDs = []string{}
		}
		list = append(list, dto.PatrolRoundResponse{
			ID:                 r.ID,
			Date:               r.Date.String(),
			TimeSlot:           r.TimeSlot,
			AssignedTo:         r.AssignedTo,
			ScheduledTime:      r.ScheduledTime,
			CompletedAt:        r.CompletedAt,
			Status:             RoundStatus(slot, nowMinutes, r.IsCompleted() || (total > 0 && len(locIDs) >= total)),
			ScannedCount:       len(locIDs),
			TotalLocations:     total,
			ScannedLocationIDs: locIDs,
			PointsAwarded:      r.PointsAwarded,
		})
	}
	return list, nil
}

// activeRound 按时间顺序返回第一个已到开始时间且未完成的轮次
// 时段按解析后的分钟数排序，"9:00" 与 "09:00" 等价
func activeRound(rounds []model.PatrolRound, now time.Time) *model.PatrolRound {
	type slotted struct {
		round   *model.PatrolRound
		minutes int
	}
	sorted := make([]slotted, 0, len(rounds))
	for i := range rounds {
		m, err := ict.ParseClock(rounds[i].TimeSlot)
		if err != nil {
			continue
		}
		sorted = append(sorted, slotted{round: &rounds[i], minutes: m})
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].minutes < sorted[j].minutes })

	nowMinutes := ict.MinutesSinceMidnight(now)
	for _, it := range sorted {
		if it.round.IsCompleted() {
			continue
		}
		if nowMinutes >= it.minutes {
			return it.round
		}
	}
	return nil
}

// ────────────────────── Scan ──────────────────────

func (s *patrolService) lookupLocation(ctx context.Context, code string) (*model.PatrolLocation, error) {
	loc, err := s.repo.PatrolLocation.GetByQRCode(ctx, normalizeQRCode(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownLocation
		}
		s.logger.Error("查询巡逻点位失败", zap.String("code", code), zap.Error(err))
		return nil, err
	}
	return loc, nil
}

func normalizeQRCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *patrolService) rollPhoto() bool {
	return s.float() < s.cfg.PhotoProbability
}

func (s *patrolService) Scan(ctx context.Context, actor Actor, req *dto.ScanRequest) (*dto.ScanResult, error) {
	now := s.now()
	date := ict.DateString(now)

	loc, err := s.lookupLocation(ctx, req.QRCode)
	if err != nil {
		return nil, err
	}

	rounds, err := s.repo.PatrolRound.ListByUserAndDate(ctx, actor.UserID, date)
	if err != nil {
		s.logger.Error("查询巡逻轮次失败", zap.String("user_id", actor.UserID), zap.Error(err))
		return nil, err
	}
	round := activeRound(rounds, now)
	if round == nil {
		return nil, ErrNoActiveRound
	}

	scans, err := s.repo.PatrolScan.ListByRounds(ctx, []string{round.ID})
	if err != nil {
		s.logger.Error("查询巡逻扫码失败", zap.String("round_id", round.ID), zap.Error(err))
		return nil, err
	}
	for _, sc := range scans {
		if sc.LocationID == loc.ID {
			return nil, ErrLocationAlreadyScanned
		}
	}

	result := &dto.ScanResult{
		RoundID:      round.ID,
		LocationID:   loc.ID,
		LocationName: loc.Name,
	}

	// 拍照要求：已有要求则必须带照片；否则按概率抽取
	photoURL := strings.TrimSpace(req.PhotoURL)
	demanded, err := s.demands.HasPhotoDemand(ctx, round.ID, loc.ID)
	if err != nil {
		s.logger.Warn("查询拍照要求失败", zap.String("round_id", round.ID), zap.Error(err))
	}
	if photoURL == "" && (demanded || s.rollPhoto()) {
		if !demanded {
			if err := s.demands.RememberPhotoDemand(ctx, round.ID, loc.ID, s.cfg.PhotoDemandTTL); err != nil {
				s.logger.Warn("记录拍照要求失败", zap.String("round_id", round.ID), zap.Error(err))
			}
		}
		result.PhotoRequired = true
		result.Message = "Bitte ein Foto aufnehmen"
		return result, nil
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// 锁定轮次，同一轮次的扫码串行计数
		locked, err := tx.PatrolRound.LockByID(ctx, round.ID)
		if err != nil {
			return err
		}
		if err := tx.PatrolScan.Create(ctx, &model.PatrolScan{
			RoundID:        round.ID,
			LocationID:     loc.ID,
			UserID:         actor.UserID,
			PhotoURL:       photoURL,
			PhotoRequested: demanded,
			ScannedAt:      now,
		}); err != nil {
			return err
		}

		count, err := tx.PatrolScan.CountDistinctLocations(ctx, round.ID)
		if err != nil {
			return err
		}
		total, err := tx.PatrolLocation.CountActive(ctx)
		if err != nil {
			return err
		}
		result.ScannedCount = int(count)
		result.TotalLocations = int(total)

		if locked.IsCompleted() || total == 0 || count < total || !s.withinWindow(locked, now) {
			return nil
		}
		return s.completeRound(ctx, tx, locked, int(total), now, result)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLocationAlreadyScanned
		}
		s.logger.Error("记录巡逻扫码失败",
			zap.String("round_id", round.ID),
			zap.String("location_id", loc.ID),
			zap.Error(err),
		)
		return nil, err
	}

	if demanded {
		if err := s.demands.ClearPhotoDemand(ctx, round.ID, loc.ID); err != nil {
			s.logger.Warn("清除拍照要求失败", zap.String("round_id", round.ID), zap.Error(err))
		}
	}

	result.Success = true
	result.Message = fmt.Sprintf("%s erfasst (%d/%d)", loc.Name, result.ScannedCount, result.TotalLocations)
	return result, nil
}

// completeRound 标记轮次完成并一次性发放与点位数相同的积分
func (s *patrolService) completeRound(ctx context.Context, tx *repository.Repository, round *model.PatrolRound, points int, at time.Time, result *dto.ScanResult) error {
	if err := tx.PatrolRound.Complete(ctx, round.ID, at, points); err != nil {
		if errors.Is(err, pkgerrors.ErrStaleState) {
			return nil
		}
		return err
	}
	if err := s.ledger.award(ctx, tx, &model.PointsHistory{
		UserID:       round.AssignedTo,
		PointsChange: points,
		Reason:       "Patrouille " + round.TimeSlot,
		Category:     model.PointsCategoryPatrol,
		CreatedAt:    at,
	}); err != nil {
		return err
	}
	result.RoundCompleted = true
	result.PointsAwarded = points
	return nil
}

// withinWindow 轮次积分的时间窗口校验，目前始终放行
func (s *patrolService) withinWindow(_ *model.PatrolRound, _ time.Time) bool {
	return true
}

// ────────────────────── TestScan ──────────────────────

func (s *patrolService) TestScan(ctx context.Context, admin Actor, req *dto.TestScanRequest) (*dto.ScanResult, error) {
	loc, err := s.lookupLocation(ctx, req.QRCode)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(req.ScannedLocationIDs)+1)
	for _, id := range req.ScannedLocationIDs {
		seen[id] = true
	}
	if seen[loc.ID] {
		return nil, ErrLocationAlreadyScanned
	}

	result := &dto.ScanResult{LocationID: loc.ID, LocationName: loc.Name}
	if strings.TrimSpace(req.PhotoURL) == "" && s.rollPhoto() {
		result.PhotoRequired = true
		result.Message = "Bitte ein Foto aufnehmen (Test)"
		return result, nil
	}

	total, err := s.repo.PatrolLocation.CountActive(ctx)
	if err != nil {
		s.logger.Error("统计巡逻点位失败", zap.Error(err))
		return nil, err
	}
	seen[loc.ID] = true

	result.Success = true
	result.ScannedCount = len(seen)
	result.TotalLocations = int(total)
	if total > 0 && int64(len(seen)) >= total {
		result.RoundCompleted = true
		result.PointsAwarded = int(total)
	}
	result.Message = fmt.Sprintf("Test: %s (%d/%d)", loc.Name, result.ScannedCount, result.TotalLocations)

	s.logger.Debug("测试扫码", zap.String("admin_id", admin.UserID), zap.String("location_id", loc.ID))
	return result, nil
}

// ────────────────────── Locations / Schedules ──────────────────────

func (s *patrolService) CreateLocation(ctx context.Context, req *dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	loc := &model.PatrolLocation{
		Name:        strings.TrimSpace(req.Name),
		QRCode:      normalizeQRCode(req.QRCode),
		Description: sanitize(req.Description),
		OrderIndex:  req.OrderIndex,
		IsActive:    true,
	}
	if err := s.repo.PatrolLocation.Create(ctx, loc); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrQRCodeExists
		}
		s.logger.Error("创建巡逻点位失败", zap.String("code", loc.QRCode), zap.Error(err))
		return nil, err
	}
	resp := toLocationResponse(loc)
	return &resp, nil
}

func (s *patrolService) ListLocations(ctx context.Context) ([]dto.LocationResponse, error) {
	locations, err := s.repo.PatrolLocation.ListActive(ctx)
	if err != nil {
		s.logger.Error("查询巡逻点位失败", zap.Error(err))
		return nil, err
	}
	list := make([]dto.LocationResponse, 0, len(locations))
	for i := range locations {
		list = append(list, toLocationResponse(&locations[i]))
	}
	return list, nil
}

func (s *patrolService) SetSchedule(ctx context.Context, req *dto.SetPatrolScheduleRequest) (*dto.PatrolScheduleResponse, error) {
	if _, err := s.repo.Profile.GetByID(ctx, req.AssignedTo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询员工失败", zap.String("user_id", req.AssignedTo), zap.Error(err))
		return nil, err
	}

	sch := &model.PatrolSchedule{
		Date:       model.Date(req.Date),
		Shift:      req.Shift,
		AssignedTo: req.AssignedTo,
	}
	if err := s.repo.PatrolSchedule.Upsert(ctx, sch); err != nil {
		s.logger.Error("保存巡逻排班失败", zap.String("date", req.Date), zap.Error(err))
		return nil, err
	}
	if _, err := s.EnsureRounds(ctx, req.Date); err != nil {
		return nil, err
	}
	return &dto.PatrolScheduleResponse{
		ID:         sch.ID,
		Date:       req.Date,
		Shift:      sch.Shift,
		AssignedTo: sch.AssignedTo,
	}, nil
}

func (s *patrolService) ListSchedules(ctx context.Context, date string) ([]dto.PatrolScheduleResponse, error) {
	if date == "" {
		date = ict.DateString(s.now())
	}
	list, err := s.repo.PatrolSchedule.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询巡逻排班失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}
	resp := make([]dto.PatrolScheduleResponse, 0, len(list))
	for _, sch := range list {
		resp = append(resp, dto.PatrolScheduleResponse{
			ID:         sch.ID,
			Date:       sch.Date.String(),
			Shift:      sch.Shift,
			AssignedTo: sch.AssignedTo,
		})
	}
	return resp, nil
}
