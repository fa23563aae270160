package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
	"villasun/backend/internal/repository"
	"villasun/backend/pkg/ict"
)

// 目标颜色
const (
	ColorGray      = "gray"
	ColorDarkGreen = "dark_green"
	ColorGreen     = "green"
	ColorOrange    = "orange"
	ColorYellow    = "yellow"
	ColorRed       = "red"
)

var ErrInvalidGoalPeriod = errors.New("无效的日期或月份")

// Classify 按完成百分比给出颜色；可得分为 0 时为灰色
func Classify(percentage float64, achievable int) string {
	switch {
	case achievable == 0:
		return ColorGray
	case percentage >= 95:
		return ColorDarkGreen
	case percentage >= 90:
		return ColorGreen
	case percentage >= 83:
		return ColorOrange
	case percentage >= 74:
		return ColorYellow
	default:
		return ColorRed
	}
}

// Percentage 计算完成百分比，保留两位小数
func Percentage(achieved, achievable int) float64 {
	if achievable == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(achieved)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(achievable))).
		Round(2).
		InexactFloat64()
}

// FormatPercentage 展示用百分比文本，如 "87.50%"
func FormatPercentage(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(2) + "%"
}

func progress(achieved, achievable int) dto.GoalProgress {
	p := Percentage(achieved, achievable)
	return dto.GoalProgress{
		Achievable:     achievable,
		Achieved:       achieved,
		Percentage:     p,
		PercentageText: FormatPercentage(p),
		ColorStatus:    Classify(p, achievable),
	}
}

// goalCalculator 日/月目标的重新计算，可在事务内调用
type goalCalculator struct {
	dailyAchievable int
}

// refreshDaily 重新计算某 ICT 日的所有员工目标，返回行数
// 仅统计当日已发布且非休息的排班员工
func (g *goalCalculator) refreshDaily(ctx context.Context, repo *repository.Repository, date string) (int, error) {
	start, end, err := ict.DayBounds(date)
	if err != nil {
		return 0, ErrInvalidGoalPeriod
	}

	working, err := repo.ShiftAssignment.ListWorking(ctx, date)
	if err != nil {
		return 0, err
	}
	userIDs := make([]string, 0, len(working))
	seen := make(map[string]bool, len(working))
	for _, a := range working {
		if !seen[a.StaffID] {
			seen[a.StaffID] = true
			userIDs = append(userIDs, a.StaffID)
		}
	}

	sums, err := repo.Points.SumByUser(ctx, userIDs, start, end)
	if err != nil {
		return 0, err
	}

	teamAchievable := g.dailyAchievable * len(userIDs)
	teamAchieved := 0
	for _, id := range userIDs {
		teamAchieved += sums[id]
	}
	team := progress(teamAchieved, teamAchievable)

	rows := make([]model.DailyPointGoal, 0, len(userIDs))
	for _, id := range userIDs {
		p := progress(sums[id], g.dailyAchievable)
		rows = append(rows, model.DailyPointGoal{
			UserID:           id,
			GoalDate:         model.Date(date),
			AchievablePoints: p.Achievable,
			AchievedPoints:   p.Achieved,
			Percentage:       p.Percentage,
			ColorStatus:      p.ColorStatus,
			TeamAchievable:   team.Achievable,
			TeamAchieved:     team.Achieved,
			TeamPercentage:   team.Percentage,
			TeamColorStatus:  team.ColorStatus,
		})
	}

	if err := repo.DailyGoal.Upsert(ctx, rows); err != nil {
		return 0, err
	}
	if err := repo.DailyGoal.DeleteByDateExcept(ctx, date, userIDs); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// refreshMonthly 汇总当月所有日目标行
func (g *goalCalculator) refreshMonthly(ctx context.Context, repo *repository.Repository, month string) (int, error) {
	start, end, err := ict.MonthBounds(month)
	if err != nil {
		return 0, ErrInvalidGoalPeriod
	}
	from := ict.DateString(start)
	to := ict.DateString(end.AddDate(0, 0, -1))

	daily, err := repo.DailyGoal.ListByRange(ctx, from, to)
	if err != nil {
		return 0, err
	}

	type total struct{ achievable, achieved int }
	totals := make(map[string]*total)
	order := make([]string, 0)
	for _, d := range daily {
		t, ok := totals[d.UserID]
		if !ok {
			t = &total{}
			totals[d.UserID] = t
			order = append(order, d.UserID)
		}
		t.achievable += d.AchievablePoints
		t.achieved += d.AchievedPoints
	}

	rows := make([]model.MonthlyPointGoal, 0, len(order))
	for _, id := range order {
		p := progress(totals[id].achieved, totals[id].achievable)
		rows = append(rows, model.MonthlyPointGoal{
			UserID:          id,
			Month:           month,
			TotalAchievable: p.Achievable,
			TotalAchieved:   p.Achieved,
			Percentage:      p.Percentage,
			ColorStatus:     p.ColorStatus,
		})
	}
	if err := repo.MonthlyGoal.Upsert(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// GoalService 积分目标业务接口
type GoalService interface {
	RefreshDaily(ctx context.Context, date string) (int, error)
	RefreshMonthly(ctx context.Context, month string) (int, error)
	DailyOverview(ctx context.Context, date string) (*dto.DailyGoalOverview, error)
	MyDaily(ctx context.Context, userID, date string) (*dto.MyDailyGoalResponse, error)
	MonthlyOverview(ctx context.Context, month string) (*dto.MonthlyGoalOverview, error)
}

type goalService struct {
	repo   *repository.Repository
	calc   *goalCalculator
	now    Clock
	logger *zap.Logger
}

// NewGoalService 创建 GoalService 实例
// dailyAchievable 为每位排班员工每日可得积分
func NewGoalService(repo *repository.Repository, dailyAchievable int, logger *zap.Logger) GoalService {
	return &goalService{
		repo:   repo,
		calc:   &goalCalculator{dailyAchievable: dailyAchievable},
		now:    time.Now,
		logger: logger,
	}
}

func (s *goalService) dateOrToday(date string) string {
	if date == "" {
		return ict.DateString(s.now())
	}
	return date
}

func (s *goalService) RefreshDaily(ctx context.Context, date string) (int, error) {
	date = s.dateOrToday(date)
	n, err := s.calc.refreshDaily(ctx, s.repo, date)
	if err != nil && !errors.Is(err, ErrInvalidGoalPeriod) {
		s.logger.Error("刷新日目标失败", zap.String("date", date), zap.Error(err))
	}
	return n, err
}

func (s *goalService) RefreshMonthly(ctx context.Context, month string) (int, error) {
	if month == "" {
		month = ict.MonthString(s.now())
	}
	n, err := s.calc.refreshMonthly(ctx, s.repo, month)
	if err != nil && !errors.Is(err, ErrInvalidGoalPeriod) {
		s.logger.Error("刷新月目标失败", zap.String("month", month), zap.Error(err))
	}
	return n, err
}

func (s *goalService) DailyOverview(ctx context.Context, date string) (*dto.DailyGoalOverview, error) {
	date = s.dateOrToday(date)
	rows, err := s.repo.DailyGoal.ListByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询日目标失败", zap.String("date", date), zap.Error(err))
		return nil, err
	}

	overview := &dto.DailyGoalOverview{
		Date:    date,
		Team:    progress(0, 0),
		Members: make([]dto.MemberGoalResponse, 0, len(rows)),
	}
	for i := range rows {
		r := &rows[i]
		if i == 0 {
			overview.Team = progress(r.TeamAchieved, r.TeamAchievable)
		}
		m := dto.MemberGoalResponse{
			UserID:   r.UserID,
			Progress: progress(r.AchievedPoints, r.AchievablePoints),
		}
		if r.User != nil {
			m.FullName = r.User.FullName
		}
		overview.Members = append(overview.Members, m)
	}
	return overview, nil
}

func (s *goalService) MyDaily(ctx context.Context, userID, date string) (*dto.MyDailyGoalResponse, error) {
	date = s.dateOrToday(date)
	goal, err := s.repo.DailyGoal.GetByUserAndDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.MyDailyGoalResponse{Date: date, Progress: progress(0, 0), Team: progress(0, 0)}, nil
		}
		s.logger.Error("查询个人日目标失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &dto.MyDailyGoalResponse{
		Date:      date,
		Scheduled: true,
		Progress:  progress(goal.AchievedPoints, goal.AchievablePoints),
		Team:      progress(goal.TeamAchieved, goal.TeamAchievable),
	}, nil
}

func (s *goalService) MonthlyOverview(ctx context.Context, month string) (*dto.MonthlyGoalOverview, error) {
	if month == "" {
		month = ict.MonthString(s.now())
	}
	rows, err := s.repo.MonthlyGoal.ListByMonth(ctx, month)
	if err != nil {
		s.logger.Error("查询月目标失败", zap.String("month", month), zap.Error(err))
		return nil, err
	}

	overview := &dto.MonthlyGoalOverview{
		Month:   month,
		Members: make([]dto.MemberGoalResponse, 0, len(rows)),
	}
	teamAchievable, teamAchieved := 0, 0
	for i := range rows {
		r := &rows[i]
		teamAchievable += r.TotalAchievable
		teamAchieved += r.TotalAchieved
		m := dto.MemberGoalResponse{
			UserID:   r.UserID,
			Progress: progress(r.TotalAchieved, r.TotalAchievable),
		}
		if r.User != nil {
			m.FullName = r.User.FullName
		}
		overview.Members = append(overview.Members, m)
	}
	overview.Team = progress(teamAchieved, teamAchievable)
	return overview, nil
}
