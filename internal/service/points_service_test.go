package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
)

func setupTestPointsService() (PointsService, *mockRepos) {
	mocks := newMockRepos()
	mocks.addProfile("admin-1", "Admin", model.RoleAdmin)
	mocks.addProfile("staff-1", "Anna", model.RoleStaff)
	mocks.addProfile("staff-2", "Bopha", model.RoleStaff)
	return NewPointsService(mocks.repository(), 20, zap.NewNop()), mocks
}

// ── 积分调整 ──

func TestAdjust_Success(t *testing.T) {
	svc, mocks := setupTestPointsService()

	entry, err := svc.Adjust(context.Background(), testAdmin, &dto.AdjustPointsRequest{
		UserID: "staff-1",
		Points: -3,
		Reason: "Pool nicht gereinigt",
	})
	if err != nil {
		t.Fatalf("Adjust 应成功: %v", err)
	}
	if entry.Category != model.PointsCategoryManual || entry.CreatedBy == nil || *entry.CreatedBy != "admin-1" {
		t.Errorf("流水字段不符: %+v", entry)
	}
	if got := mocks.profiles.items["staff-1"].TotalPoints; got != -3 {
		t.Errorf("期望总积分 -3，实际=%d", got)
	}
	if len(mocks.adminLogs.items) != 1 || mocks.adminLogs.items[0].ActionType != model.AdminActionPointsAdjust {
		t.Errorf("应写入一条管理日志: %+v", mocks.adminLogs.items)
	}
	if len(mocks.notices.items) != 1 || mocks.notices.items[0].Type != model.NotificationPointsAdjusted {
		t.Errorf("应通知员工: %+v", mocks.notices.items)
	}
}

func TestAdjust_ReasonRequired(t *testing.T) {
	svc, mocks := setupTestPointsService()
	_, err := svc.Adjust(context.Background(), testAdmin, &dto.AdjustPointsRequest{
		UserID: "staff-1", Points: 2, Reason: "<script></script>",
	})
	if !errors.Is(err, ErrPointsReasonRequired) {
		t.Errorf("期望 ErrPointsReasonRequired，实际: %v", err)
	}
	if len(mocks.points.items) != 0 {
		t.Error("失败时不应写入流水")
	}
}

func TestAdjust_UserNotFound(t *testing.T) {
	svc, _ := setupTestPointsService()
	_, err := svc.Adjust(context.Background(), testAdmin, &dto.AdjustPointsRequest{
		UserID: "ghost", Points: 2, Reason: "Bonus",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── 流水 / 排行 ──

func TestHistory_Permission(t *testing.T) {
	svc, _ := setupTestPointsService()
	for _, p := range []int{1, 2, 3} {
		if _, err := svc.Adjust(context.Background(), testAdmin, &dto.AdjustPointsRequest{
			UserID: "staff-1", Points: p, Reason: "Bonus", Category: model.PointsCategoryBonus,
		}); err != nil {
			t.Fatalf("Adjust 应成功: %v", err)
		}
	}

	list, err := svc.History(context.Background(), testStaff, "", 2)
	if err != nil {
		t.Fatalf("History 应成功: %v", err)
	}
	if len(list) != 2 || list[0].PointsChange != 3 {
		t.Errorf("期望最新的 2 条流水，实际: %+v", list)
	}

	other := Actor{UserID: "staff-2", Role: model.RoleStaff}
	if _, err := svc.History(context.Background(), other, "staff-1", 10); !errors.Is(err, ErrNoPermission) {
		t.Errorf("期望 ErrNoPermission，实际: %v", err)
	}
	if _, err := svc.History(context.Background(), testAdmin, "staff-1", 10); err != nil {
		t.Errorf("管理员可查看任意员工: %v", err)
	}
}

func TestLeaderboardAndReset(t *testing.T) {
	svc, mocks := setupTestPointsService()
	mocks.profiles.items["staff-1"].TotalPoints = 12
	mocks.profiles.items["staff-2"].TotalPoints = 30

	board, err := svc.Leaderboard(context.Background(), 0)
	if err != nil {
		t.Fatalf("Leaderboard 应成功: %v", err)
	}
	if len(board) != 2 || board[0].UserID != "staff-2" || board[0].Rank != 1 || board[1].Rank != 2 {
		t.Errorf("排行榜不符: %+v", board)
	}

	resp, err := svc.ResetAll(context.Background(), testAdmin)
	if err != nil {
		t.Fatalf("ResetAll 应成功: %v", err)
	}
	if resp.ProfilesReset != 2 {
		t.Errorf("期望清零 2 人，实际=%d", resp.ProfilesReset)
	}
	if mocks.profiles.items["staff-2"].TotalPoints != 0 {
		t.Error("总积分应清零")
	}
	if len(mocks.adminLogs.items) != 1 || mocks.adminLogs.items[0].ActionType != model.AdminActionPointsReset {
		t.Errorf("应写入一条管理日志: %+v", mocks.adminLogs.items)
	}
}
