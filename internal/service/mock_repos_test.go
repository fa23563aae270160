package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	pkgerrors "villasun/backend/pkg/errors"
)

var mockSeq int

func newMockID(prefix string) string {
	mockSeq++
	return fmt.Sprintf("%s-%d", prefix, mockSeq)
}

// ── Mock 仓储聚合 ──

type mockRepos struct {
	identities *mockAuthIdentityRepo
	profiles   *mockProfileRepo
	shifts     *mockShiftRepo
	checkIns   *mockCheckInRepo
	spins      *mockWheelRepo
	departures *mockDepartureRepo
	locations  *mockLocationRepo
	schedules  *mockPatrolScheduleRepo
	rounds     *mockRoundRepo
	scans      *mockScanRepo
	points     *mockPointsRepo
	dailyGoals *mockDailyGoalRepo
	monthGoals *mockMonthlyGoalRepo
	notices    *mockNotificationRepo
	adminLogs  *mockAdminLogRepo
	userData   *mockUserDataRepo
	tasks      *mockTaskRepo
	checklists *mockChecklistRepo
	instances  *mockChecklistInstanceRepo
}

func newMockRepos() *mockRepos {
	return &mockRepos{
		identities: &mockAuthIdentityRepo{items: make(map[string]*model.AuthIdentity)},
		profiles:   &mockProfileRepo{items: make(map[string]*model.Profile)},
		shifts:     &mockShiftRepo{items: make(map[string]*model.ShiftAssignment)},
		checkIns:   &mockCheckInRepo{items: make(map[string]*model.CheckIn)},
		spins:      &mockWheelRepo{items: make(map[string]*model.FortuneWheelSpin)},
		departures: &mockDepartureRepo{items: make(map[string]*model.DepartureRequest)},
		locations:  &mockLocationRepo{items: make(map[string]*model.PatrolLocation)},
		schedules:  &mockPatrolScheduleRepo{},
		rounds:     &mockRoundRepo{items: make(map[string]*model.PatrolRound)},
		scans:      &mockScanRepo{},
		points:     &mockPointsRepo{},
		dailyGoals: &mockDailyGoalRepo{items: make(map[string]*model.DailyPointGoal)},
		monthGoals: &mockMonthlyGoalRepo{items: make(map[string]*model.MonthlyPointGoal)},
		notices:    &mockNotificationRepo{},
		adminLogs:  &mockAdminLogRepo{},
		userData:   &mockUserDataRepo{},
		tasks:      &mockTaskRepo{items: make(map[string]*model.Task)},
		checklists: &mockChecklistRepo{items: make(map[string]*model.Checklist)},
		instances:  &mockChecklistInstanceRepo{items: make(map[string]*model.ChecklistInstance)},
	}
}

// repository 组装为 Repository 聚合（db 为 nil，Transaction 直接执行）
func (m *mockRepos) repository() *repository.Repository {
	return &repository.Repository{
		AuthIdentity:    m.identities,
		Profile:         m.profiles,
		ShiftAssignment: m.shifts,
		CheckIn:         m.checkIns,
		FortuneWheel:    m.spins,
		Departure:       m.departures,
		PatrolLocation:  m.locations,
		PatrolSchedule:  m.schedules,
		PatrolRound:     m.rounds,
		PatrolScan:      m.scans,
		Points:          m.points,
		DailyGoal:       m.dailyGoals,
		MonthlyGoal:     m.monthGoals,
		Notification:    m.notices,
		AdminLog:        m.adminLogs,
		UserData:        m.userData,

		Task:              m.tasks,
		Checklist:         m.checklists,
		ChecklistInstance: m.instances,
	}
}

// addProfile 写入档案与认证身份
func (m *mockRepos) addProfile(id, name, role string) *model.Profile {
	p := &model.Profile{ID: id, Email: id + "@villasun.test", FullName: name, Role: role}
	m.profiles.items[id] = p
	m.identities.items[id] = &model.AuthIdentity{ID: id, Email: p.Email}
	return p
}

// ── Mock AuthIdentityRepository ──

type mockAuthIdentityRepo struct {
	items     map[string]*model.AuthIdentity
	deleteErr error
}

func (m *mockAuthIdentityRepo) Create(_ context.Context, identity *model.AuthIdentity) error {
	if identity.ID == "" {
		identity.ID = newMockID("identity")
	}
	for _, it := range m.items {
		if strings.EqualFold(it.Email, identity.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	m.items[identity.ID] = identity
	return nil
}

func (m *mockAuthIdentityRepo) GetByID(_ context.Context, id string) (*model.AuthIdentity, error) {
	if it, ok := m.items[id]; ok {
		return it, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAuthIdentityRepo) GetByEmail(_ context.Context, email string) (*model.AuthIdentity, error) {
	for _, it := range m.items {
		if strings.EqualFold(it.Email, email) {
			return it, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAuthIdentityRepo) UpdatePassword(_ context.Context, id, hash string) error {
	if it, ok := m.items[id]; ok {
		it.PasswordHash = hash
	}
	return nil
}

func (m *mockAuthIdentityRepo) TouchSignIn(_ context.Context, id string, at time.Time) error {
	if it, ok := m.items[id]; ok {
		it.LastSignInAt = &at
	}
	return nil
}

func (m *mockAuthIdentityRepo) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.items, id)
	return nil
}

// ── Mock ProfileRepository ──

type mockProfileRepo struct {
	items map[string]*model.Profile
}

func (m *mockProfileRepo) Create(_ context.Context, profile *model.Profile) error {
	m.items[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	if p, ok := m.items[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	for _, p := range m.items {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockProfileRepo) sorted() []model.Profile {
	list := make([]model.Profile, 0, len(m.items))
	for _, p := range m.items {
		list = append(list, *p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].FullName < list[j].FullName })
	return list
}

func (m *mockProfileRepo) List(_ context.Context, role string, offset, limit int) ([]model.Profile, int64, error) {
	var list []model.Profile
	for _, p := range m.sorted() {
		if role == "" || p.Role == role {
			list = append(list, p)
		}
	}
	total := int64(len(list))
	if offset >= len(list) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], total, nil
}

func (m *mockProfileRepo) ListByIDs(_ context.Context, ids []string) ([]model.Profile, error) {
	var list []model.Profile
	for _, id := range ids {
		if p, ok := m.items[id]; ok {
			list = append(list, *p)
		}
	}
	return list, nil
}

func (m *mockProfileRepo) Update(_ context.Context, profile *model.Profile) error {
	m.items[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) AddPoints(_ context.Context, id string, delta int) error {
	p, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.TotalPoints += delta
	return nil
}

func (m *mockProfileRepo) ResetAllPoints(_ context.Context) (int64, error) {
	var n int64
	for _, p := range m.items {
		if p.TotalPoints != 0 {
			p.TotalPoints = 0
			n++
		}
	}
	return n, nil
}

func (m *mockProfileRepo) Leaderboard(_ context.Context, limit int) ([]model.Profile, error) {
	var list []model.Profile
	for _, p := range m.sorted() {
		if p.Role == model.RoleStaff {
			list = append(list, p)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].TotalPoints > list[j].TotalPoints })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *mockProfileRepo) Delete(_ context.Context, id string) (int64, error) {
	if _, ok := m.items[id]; !ok {
		return 0, nil
	}
	delete(m.items, id)
	return 1, nil
}

// ── Mock ShiftAssignmentRepository ──

type mockShiftRepo struct {
	items  map[string]*model.ShiftAssignment // key: staff:date
	getErr error
}

func (m *mockShiftRepo) set(staffID, date, shift string, published bool) {
	m.items[staffID+":"+date] = &model.ShiftAssignment{
		ID:          newMockID("shift"),
		StaffID:     staffID,
		ShiftDate:   model.Date(date),
		Shift:       shift,
		IsPublished: published,
	}
}

func (m *mockShiftRepo) Upsert(_ context.Context, assignments []model.ShiftAssignment) error {
	for i := range assignments {
		a := assignments[i]
		key := a.StaffID + ":" + a.ShiftDate.String()
		if old, ok := m.items[key]; ok {
			a.ID = old.ID
		} else {
			a.ID = newMockID("shift")
		}
		m.items[key] = &a
	}
	return nil
}

func (m *mockShiftRepo) GetPublished(_ context.Context, staffID, date string) (*model.ShiftAssignment, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if a, ok := m.items[staffID+":"+date]; ok && a.IsPublished {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftRepo) filter(keep func(a *model.ShiftAssignment) bool) []model.ShiftAssignment {
	var list []model.ShiftAssignment
	for _, a := range m.items {
		if keep(a) {
			list = append(list, *a)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ShiftDate < list[j].ShiftDate })
	return list
}

func (m *mockShiftRepo) ListByRange(_ context.Context, from, to string) ([]model.ShiftAssignment, error) {
	return m.filter(func(a *model.ShiftAssignment) bool {
		return a.ShiftDate.String() >= from && a.ShiftDate.String() <= to
	}), nil
}

func (m *mockShiftRepo) ListPublishedByStaff(_ context.Context, staffID, from, to string) ([]model.ShiftAssignment, error) {
	return m.filter(func(a *model.ShiftAssignment) bool {
		return a.StaffID == staffID && a.IsPublished && a.ShiftDate.String() >= from && a.ShiftDate.String() <= to
	}), nil
}

func (m *mockShiftRepo) ListWorking(_ context.Context, date string) ([]model.ShiftAssignment, error) {
	return m.filter(func(a *model.ShiftAssignment) bool {
		return a.ShiftDate.String() == date && a.IsPublished && a.Shift != model.ShiftOff
	}), nil
}

func (m *mockShiftRepo) Publish(_ context.Context, from, to string) (int64, error) {
	var n int64
	for _, a := range m.items {
		if !a.IsPublished && a.ShiftDate.String() >= from && a.ShiftDate.String() <= to {
			a.IsPublished = true
			n++
		}
	}
	return n, nil
}

// ── Mock CheckInRepository ──

type mockCheckInRepo struct {
	items map[string]*model.CheckIn
}

func (m *mockCheckInRepo) Create(_ context.Context, c *model.CheckIn) error {
	for _, it := range m.items {
		if it.UserID == c.UserID && it.CheckInDate == c.CheckInDate {
			return gorm.ErrDuplicatedKey
		}
	}
	if c.ID == "" {
		c.ID = newMockID("checkin")
	}
	m.items[c.ID] = c
	return nil
}

func (m *mockCheckInRepo) GetByID(_ context.Context, id string) (*model.CheckIn, error) {
	if c, ok := m.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCheckInRepo) GetByUserAndDate(_ context.Context, userID, date string) (*model.CheckIn, error) {
	for _, c := range m.items {
		if c.UserID == userID && c.CheckInDate.String() == date {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCheckInRepo) filter(keep func(c *model.CheckIn) bool) []model.CheckIn {
	var list []model.CheckIn
	for _, c := range m.items {
		if keep(c) {
			list = append(list, *c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CheckInTime.Before(list[j].CheckInTime) })
	return list
}

func (m *mockCheckInRepo) ListByUserRange(_ context.Context, userID, from, to string) ([]model.CheckIn, error) {
	return m.filter(func(c *model.CheckIn) bool {
		d := c.CheckInDate.String()
		return c.UserID == userID && d >= from && d <= to
	}), nil
}

func (m *mockCheckInRepo) ListByRange(_ context.Context, from, to string) ([]model.CheckIn, error) {
	return m.filter(func(c *model.CheckIn) bool {
		d := c.CheckInDate.String()
		return d >= from && d <= to
	}), nil
}

func (m *mockCheckInRepo) ListPending(_ context.Context) ([]model.CheckIn, error) {
	return m.filter(func(c *model.CheckIn) bool { return c.Status == model.StatusPending }), nil
}

func (m *mockCheckInRepo) ListOpen(_ context.Context, date string) ([]model.CheckIn, error) {
	return m.filter(func(c *model.CheckIn) bool {
		return c.CheckInDate.String() == date && c.CheckOutTime == nil && c.Status != model.StatusRejected
	}), nil
}

func (m *mockCheckInRepo) Approve(_ context.Context, id, approverID string, points int, at time.Time) error {
	c, ok := m.items[id]
	if !ok || c.Status != model.StatusPending {
		return pkgerrors.ErrStaleState
	}
	c.Status = model.StatusApproved
	c.ApprovedBy = &approverID
	c.ApprovedAt = &at
	c.PointsAwarded = points
	return nil
}

func (m *mockCheckInRepo) Reject(_ context.Context, id, approverID, reason string, at time.Time) error {
	c, ok := m.items[id]
	if !ok || c.Status != model.StatusPending {
		return pkgerrors.ErrStaleState
	}
	c.Status = model.StatusRejected
	c.ApprovedBy = &approverID
	c.ApprovedAt = &at
	c.PointsAwarded = 0
	c.RejectionReason = reason
	return nil
}

func (m *mockCheckInRepo) Checkout(_ context.Context, id string, at time.Time, hours decimal.Decimal) error {
	c, ok := m.items[id]
	if !ok || c.CheckOutTime != nil {
		return pkgerrors.ErrStaleState
	}
	c.CheckOutTime = &at
	c.WorkHours = decimal.NullDecimal{Decimal: hours, Valid: true}
	return nil
}

// ── Mock FortuneWheelRepository ──

type mockWheelRepo struct {
	items map[string]*model.FortuneWheelSpin
}

func (m *mockWheelRepo) Create(_ context.Context, spin *model.FortuneWheelSpin) error {
	for _, s := range m.items {
		if s.UserID == spin.UserID && s.SpinDate == spin.SpinDate {
			return gorm.ErrDuplicatedKey
		}
	}
	if spin.ID == "" {
		spin.ID = newMockID("spin")
	}
	m.items[spin.ID] = spin
	return nil
}

func (m *mockWheelRepo) GetByUserAndDate(_ context.Context, userID, date string) (*model.FortuneWheelSpin, error) {
	for _, s := range m.items {
		if s.UserID == userID && s.SpinDate.String() == date {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock DepartureRepository ──

type mockDepartureRepo struct {
	items map[string]*model.DepartureRequest
}

func (m *mockDepartureRepo) Create(_ context.Context, d *model.DepartureRequest) error {
	for _, it := range m.items {
		if it.UserID == d.UserID && it.RequestDate == d.RequestDate && it.Status == model.StatusPending {
			return gorm.ErrDuplicatedKey
		}
	}
	if d.ID == "" {
		d.ID = newMockID("departure")
	}
	m.items[d.ID] = d
	return nil
}

func (m *mockDepartureRepo) GetByID(_ context.Context, id string) (*model.DepartureRequest, error) {
	if d, ok := m.items[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDepartureRepo) GetPending(_ context.Context, userID, date string) (*model.DepartureRequest, error) {
	for _, d := range m.items {
		if d.UserID == userID && d.RequestDate.String() == date && d.Status == model.StatusPending {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDepartureRepo) ListPending(_ context.Context) ([]model.DepartureRequest, error) {
	var list []model.DepartureRequest
	for _, d := range m.items {
		if d.Status == model.StatusPending {
			list = append(list, *d)
		}
	}
	return list, nil
}

func (m *mockDepartureRepo) ListByUser(_ context.Context, userID string, limit int) ([]model.DepartureRequest, error) {
	var list []model.DepartureRequest
	for _, d := range m.items {
		if d.UserID == userID && len(list) < limit {
			list = append(list, *d)
		}
	}
	return list, nil
}

func (m *mockDepartureRepo) Decide(_ context.Context, id, status, approverID, reason string, at time.Time) error {
	d, ok := m.items[id]
	if !ok || d.Status != model.StatusPending {
		return pkgerrors.ErrStaleState
	}
	d.Status = status
	d.ApprovedBy = &approverID
	d.ApprovedAt = &at
	d.RejectionReason = reason
	return nil
}

// ── Mock 巡逻仓储 ──

type mockLocationRepo struct {
	items map[string]*model.PatrolLocation
}

func (m *mockLocationRepo) add(name, code string) *model.PatrolLocation {
	loc := &model.PatrolLocation{ID: newMockID("loc"), Name: name, QRCode: code, IsActive: true}
	m.items[loc.ID] = loc
	return loc
}

func (m *mockLocationRepo) Create(_ context.Context, loc *model.PatrolLocation) error {
	for _, it := range m.items {
		if it.QRCode == loc.QRCode {
			return gorm.ErrDuplicatedKey
		}
	}
	if loc.ID == "" {
		loc.ID = newMockID("loc")
	}
	m.items[loc.ID] = loc
	return nil
}

func (m *mockLocationRepo) GetByQRCode(_ context.Context, code string) (*model.PatrolLocation, error) {
	for _, l := range m.items {
		if l.QRCode == code && l.IsActive {
			return l, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLocationRepo) ListActive(_ context.Context) ([]model.PatrolLocation, error) {
	var list []model.PatrolLocation
	for _, l := range m.items {
		if l.IsActive {
			list = append(list, *l)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (m *mockLocationRepo) CountActive(ctx context.Context) (int64, error) {
	list, _ := m.ListActive(ctx)
	return int64(len(list)), nil
}

type mockPatrolScheduleRepo struct {
	items []model.PatrolSchedule
}

func (m *mockPatrolScheduleRepo) Upsert(_ context.Context, sch *model.PatrolSchedule) error {
	for _, it := range m.items {
		if it.Date == sch.Date && it.Shift == sch.Shift && it.AssignedTo == sch.AssignedTo {
			sch.ID = it.ID
			return nil
		}
	}
	sch.ID = newMockID("patrol-schedule")
	m.items = append(m.items, *sch)
	return nil
}

func (m *mockPatrolScheduleRepo) ListByDate(_ context.Context, date string) ([]model.PatrolSchedule, error) {
	var list []model.PatrolSchedule
	for _, it := range m.items {
		if it.Date.String() == date {
			list = append(list, it)
		}
	}
	return list, nil
}

type mockRoundRepo struct {
	items map[string]*model.PatrolRound
}

func (m *mockRoundRepo) CreateMissing(_ context.Context, rounds []model.PatrolRound) (int64, error) {
	var n int64
outer:
	for i := range rounds {
		r := rounds[i]
		for _, it := range m.items {
			if it.Date == r.Date && it.TimeSlot == r.TimeSlot && it.AssignedTo == r.AssignedTo {
				continue outer
			}
		}
		r.ID = newMockID("round")
		m.items[r.ID] = &r
		n++
	}
	return n, nil
}

func (m *mockRoundRepo) GetByID(_ context.Context, id string) (*model.PatrolRound, error) {
	if r, ok := m.items[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoundRepo) LockByID(ctx context.Context, id string) (*model.PatrolRound, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRoundRepo) list(keep func(r *model.PatrolRound) bool) []model.PatrolRound {
	var list []model.PatrolRound
	for _, r := range m.items {
		if keep(r) {
			list = append(list, *r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].TimeSlot < list[j].TimeSlot })
	return list
}

func (m *mockRoundRepo) ListByUserAndDate(_ context.Context, userID, date string) ([]model.PatrolRound, error) {
	return m.list(func(r *model.PatrolRound) bool {
		return r.AssignedTo == userID && r.Date.String() == date
	}), nil
}

func (m *mockRoundRepo) ListByDate(_ context.Context, date string) ([]model.PatrolRound, error) {
	return m.list(func(r *model.PatrolRound) bool { return r.Date.String() == date }), nil
}

func (m *mockRoundRepo) Complete(_ context.Context, id string, at time.Time, points int) error {
	r, ok := m.items[id]
	if !ok || r.CompletedAt != nil {
		return pkgerrors.ErrStaleState
	}
	r.CompletedAt = &at
	r.PointsAwarded = points
	return nil
}

type mockScanRepo struct {
	items []model.PatrolScan
}

func (m *mockScanRepo) Create(_ context.Context, scan *model.PatrolScan) error {
	for _, it := range m.items {
		if it.RoundID == scan.RoundID && it.LocationID == scan.LocationID {
			return gorm.ErrDuplicatedKey
		}
	}
	scan.ID = newMockID("scan")
	m.items = append(m.items, *scan)
	return nil
}

func (m *mockScanRepo) ListByRounds(_ context.Context, roundIDs []string) ([]model.PatrolScan, error) {
	want := make(map[string]bool, len(roundIDs))
	for _, id := range roundIDs {
		want[id] = true
	}
	var list []model.PatrolScan
	for _, it := range m.items {
		if want[it.RoundID] {
			list = append(list, it)
		}
	}
	return list, nil
}

func (m *mockScanRepo) CountDistinctLocations(_ context.Context, roundID string) (int64, error) {
	seen := make(map[string]bool)
	for _, it := range m.items {
		if it.RoundID == roundID {
			seen[it.LocationID] = true
		}
	}
	return int64(len(seen)), nil
}

// ── Mock 积分 / 目标仓储 ──

type mockPointsRepo struct {
	items []model.PointsHistory
}

func (m *mockPointsRepo) Create(_ context.Context, entry *model.PointsHistory) error {
	entry.ID = newMockID("points")
	m.items = append(m.items, *entry)
	return nil
}

func (m *mockPointsRepo) ListByUser(_ context.Context, userID string, limit int) ([]model.PointsHistory, error) {
	var list []model.PointsHistory
	for i := len(m.items) - 1; i >= 0 && len(list) < limit; i-- {
		if m.items[i].UserID == userID {
			list = append(list, m.items[i])
		}
	}
	return list, nil
}

func (m *mockPointsRepo) SumByUser(_ context.Context, userIDs []string, from, to time.Time) (map[string]int, error) {
	want := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	sums := make(map[string]int)
	for _, it := range m.items {
		if want[it.UserID] && !it.CreatedAt.Before(from) && it.CreatedAt.Before(to) {
			sums[it.UserID] += it.PointsChange
		}
	}
	return sums, nil
}

type mockDailyGoalRepo struct {
	items map[string]*model.DailyPointGoal // key: user:date
}

func (m *mockDailyGoalRepo) Upsert(_ context.Context, goals []model.DailyPointGoal) error {
	for i := range goals {
		g := goals[i]
		m.items[g.UserID+":"+g.GoalDate.String()] = &g
	}
	return nil
}

func (m *mockDailyGoalRepo) ListByDate(_ context.Context, date string) ([]model.DailyPointGoal, error) {
	var list []model.DailyPointGoal
	for _, g := range m.items {
		if g.GoalDate.String() == date {
			list = append(list, *g)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })
	return list, nil
}

func (m *mockDailyGoalRepo) GetByUserAndDate(_ context.Context, userID, date string) (*model.DailyPointGoal, error) {
	if g, ok := m.items[userID+":"+date]; ok {
		return g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDailyGoalRepo) ListByRange(_ context.Context, from, to string) ([]model.DailyPointGoal, error) {
	var list []model.DailyPointGoal
	for _, g := range m.items {
		if d := g.GoalDate.String(); d >= from && d <= to {
			list = append(list, *g)
		}
	}
	return list, nil
}

func (m *mockDailyGoalRepo) DeleteByDateExcept(_ context.Context, date string, keep []string) error {
	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	for key, g := range m.items {
		if g.GoalDate.String() == date && !kept[g.UserID] {
			delete(m.items, key)
		}
	}
	return nil
}

type mockMonthlyGoalRepo struct {
	items map[string]*model.MonthlyPointGoal // key: user:month
}

func (m *mockMonthlyGoalRepo) Upsert(_ context.Context, goals []model.MonthlyPointGoal) error {
	for i := range goals {
		g := goals[i]
		m.items[g.UserID+":"+g.Month] = &g
	}
	return nil
}

func (m *mockMonthlyGoalRepo) ListByMonth(_ context.Context, month string) ([]model.MonthlyPointGoal, error) {
	var list []model.MonthlyPointGoal
	for _, g := range m.items {
		if g.Month == month {
			list = append(list, *g)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })
	return list, nil
}

// ── Mock 通知 / 管理日志 ──

type mockNotificationRepo struct {
	items []model.Notification
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	n.ID = newMockID("notice")
	m.items = append(m.items, *n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, limit int) ([]model.Notification, error) {
	var list []model.Notification
	for _, n := range m.items {
		if n.UserID == userID && len(list) < limit {
			list = append(list, n)
		}
	}
	return list, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID, id string) (int64, error) {
	var n int64
	for i := range m.items {
		it := &m.items[i]
		if it.UserID == userID && !it.IsRead && (id == "" || it.ID == id) {
			it.IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	var kept []model.Notification
	var n int64
	for _, it := range m.items {
		if it.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, it)
	}
	m.items = kept
	return n, nil
}

type mockAdminLogRepo struct {
	items []model.AdminLog
}

func (m *mockAdminLogRepo) Create(_ context.Context, log *model.AdminLog) error {
	log.ID = newMockID("adminlog")
	m.items = append(m.items, *log)
	return nil
}

func (m *mockAdminLogRepo) List(_ context.Context, offset, limit int) ([]model.AdminLog, int64, error) {
	total := int64(len(m.items))
	if offset >= len(m.items) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(m.items) {
		end = len(m.items)
	}
	return m.items[offset:end], total, nil
}

// ── Mock UserDataRepository ──

type mockUserDataRepo struct {
	deleted []string
	err     error
}

func (m *mockUserDataRepo) DeleteUserData(_ context.Context, userID string) ([]repository.CascadeResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.deleted = append(m.deleted, userID)
	results := make([]repository.CascadeResult, 0, len(repository.UserCascade))
	for _, step := range repository.UserCascade {
		results = append(results, repository.CascadeResult{Table: step.Table, Column: step.Column, Affected: 1})
	}
	return results, nil
}

// ── Mock TaskRepository ──

type mockTaskRepo struct {
	items map[string]*model.Task
	err   error
}

func (m *mockTaskRepo) Create(_ context.Context, t *model.Task) error {
	if m.err != nil {
		return m.err
	}
	if t.ID == "" {
		t.ID = newMockID("task")
	}
	m.items[t.ID] = t
	return nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, id string) (*model.Task, error) {
	if t, ok := m.items[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaskRepo) LockByID(ctx context.Context, id string) (*model.Task, error) {
	return m.GetByID(ctx, id)
}

func (m *mockTaskRepo) List(_ context.Context, status string) ([]model.Task, error) {
	var list []model.Task
	for _, t := range m.items {
		if (status == "" && t.Status != model.TaskStatusArchived) || t.Status == status {
			list = append(list, *t)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockTaskRepo) ListForUser(_ context.Context, userID, date string) ([]model.Task, error) {
	var list []model.Task
	for _, t := range m.items {
		if t.Status == model.TaskStatusArchived {
			continue
		}
		if t.AssignedTo != nil && !t.IsParticipant(userID) {
			continue
		}
		if t.DueDate != "" && t.DueDate.String() != date {
			continue
		}
		list = append(list, *t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockTaskRepo) Save(_ context.Context, t *model.Task) error {
	if m.err != nil {
		return m.err
	}
	m.items[t.ID] = t
	return nil
}

func (m *mockTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockTaskRepo) ArchiveCompletedBefore(_ context.Context, before time.Time) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, t := range m.items {
		if t.Status == model.TaskStatusCompleted && t.CompletedAt != nil && t.CompletedAt.Before(before) {
			t.Status = model.TaskStatusArchived
			n++
		}
	}
	return n, nil
}

// ── Mock ChecklistRepository ──

type mockChecklistRepo struct {
	items map[string]*model.Checklist
	err   error
}

func (m *mockChecklistRepo) Create(_ context.Context, c *model.Checklist) error {
	if c.ID == "" {
		c.ID = newMockID("checklist")
	}
	m.items[c.ID] = c
	return nil
}

func (m *mockChecklistRepo) GetByID(_ context.Context, id string) (*model.Checklist, error) {
	if c, ok := m.items[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockChecklistRepo) List(_ context.Context) ([]model.Checklist, error) {
	list := make([]model.Checklist, 0, len(m.items))
	for _, c := range m.items {
		list = append(list, *c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockChecklistRepo) ListActive(ctx context.Context) ([]model.Checklist, error) {
	if m.err != nil {
		return nil, m.err
	}
	all, _ := m.List(ctx)
	var list []model.Checklist
	for _, c := range all {
		if c.IsActive {
			list = append(list, c)
		}
	}
	return list, nil
}

func (m *mockChecklistRepo) MarkGenerated(_ context.Context, id, date string) error {
	if c, ok := m.items[id]; ok {
		c.LastGeneratedDate = model.Date(date)
	}
	return nil
}

func (m *mockChecklistRepo) Deactivate(_ context.Context, id string) error {
	c, ok := m.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.IsActive = false
	return nil
}

// ── Mock ChecklistInstanceRepository ──

type mockChecklistInstanceRepo struct {
	items map[string]*model.ChecklistInstance
}

func (m *mockChecklistInstanceRepo) CreateIfAbsent(_ context.Context, inst *model.ChecklistInstance) (bool, error) {
	for _, it := range m.items {
		if it.ChecklistID != nil && inst.ChecklistID != nil &&
			*it.ChecklistID == *inst.ChecklistID && it.InstanceDate == inst.InstanceDate {
			return false, nil
		}
	}
	if inst.ID == "" {
		inst.ID = newMockID("instance")
	}
	m.items[inst.ID] = inst
	return true, nil
}

func (m *mockChecklistInstanceRepo) GetByID(_ context.Context, id string) (*model.ChecklistInstance, error) {
	if it, ok := m.items[id]; ok {
		return it, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockChecklistInstanceRepo) LockByID(ctx context.Context, id string) (*model.ChecklistInstance, error) {
	return m.GetByID(ctx, id)
}

func (m *mockChecklistInstanceRepo) ListForUser(_ context.Context, userID, date string) ([]model.ChecklistInstance, error) {
	var list []model.ChecklistInstance
	for _, it := range m.items {
		if it.InstanceDate.String() != date || it.Status == model.ChecklistStatusArchived {
			continue
		}
		if it.AssignedTo != nil && *it.AssignedTo != userID {
			continue
		}
		list = append(list, *it)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockChecklistInstanceRepo) ListByStatus(_ context.Context, status string) ([]model.ChecklistInstance, error) {
	var list []model.ChecklistInstance
	for _, it := range m.items {
		if it.Status == status {
			list = append(list, *it)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (m *mockChecklistInstanceRepo) Save(_ context.Context, inst *model.ChecklistInstance) error {
	m.items[inst.ID] = inst
	return nil
}

func (m *mockChecklistInstanceRepo) ArchiveApprovedBefore(_ context.Context, date string) (int64, error) {
	var n int64
	for _, it := range m.items {
		if it.Status == model.ChecklistStatusApproved && it.InstanceDate.String() < date {
			it.Status = model.ChecklistStatusArchived
			n++
		}
	}
	return n, nil
}
