package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"villasun/backend/internal/model"
)

func setupTestApprovalService() (*approvalService, *mockRepos) {
	mocks := newMockRepos()
	mocks.addProfile("admin-1", "Admin", model.RoleAdmin)
	mocks.addProfile("staff-1", "Anna", model.RoleStaff)
	mocks.shifts.set("staff-1", testDate, model.ShiftEarly, true)

	svc := NewApprovalService(mocks.repository(), 20, zap.NewNop()).(*approvalService)
	svc.now = at(testDate, "11:00")
	return svc, mocks
}

func intPtr(n int) *int { return &n }

func TestApprove_UsesProvisionalPoints(t *testing.T) {
	svc, mocks := setupTestApprovalService()
	c := seedCheckIn(mocks, "staff-1", testDate, "08:50", 5)

	result, err := svc.Approve(context.Background(), testAdmin, c.ID, nil)
	if err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}
	if result.Status != model.StatusApproved || result.PointsAwarded != 5 {
		t.Errorf("审批结果不符: %+v", result)
	}
	if got := mocks.profiles.items["staff-1"].TotalPoints; got != 5 {
		t.Errorf("期望总积分 5，实际=%d", got)
	}
	entry := mocks.points.items[0]
	if entry.Category != model.PointsCategoryCheckIn || entry.CreatedBy == nil || *entry.CreatedBy != "admin-1" {
		t.Errorf("积分流水不符: %+v", entry)
	}
	if len(mocks.notices.items) != 1 || mocks.notices.items[0].Type != model.NotificationCheckInApproved {
		t.Errorf("应通知员工审批通过: %+v", mocks.notices.items)
	}
}

func TestApprove_CustomPoints(t *testing.T) {
	svc, mocks := setupTestApprovalService()
	c := seedCheckIn(mocks, "staff-1", testDate, "09:20", -2)

	result, err := svc.Approve(context.Background(), testAdmin, c.ID, intPtr(3))
	if err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}
	if result.PointsAwarded != 3 || mocks.profiles.items["staff-1"].TotalPoints != 3 {
		t.Errorf("应使用自定义积分 3，实际: %+v", result)
	}
}

func TestApprove_ZeroPointsNoLedger(t *testing.T) {
	svc, mocks := setupTestApprovalService()
	c := seedCheckIn(mocks, "staff-1", testDate, "09:20", -2)

	if _, err := svc.Approve(context.Background(), testAdmin, c.ID, intPtr(0)); err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}
	if len(mocks.points.items) != 0 {
		t.Error("0 分审批不应写积分流水")
	}
}

func TestApprove_OutOfRange(t *testing.T) {
	svc, mocks := setupTestApprovalService()
	c := seedCheckIn(mocks, "staff-1", testDate, "08:50", 5)

	for _, p := range []int{-6, 6} {
		if _, err := svc.Approve(context.Background(), testAdmin, c.ID, intPtr(p)); !errors.Is(err, ErrPointsOutOfRange) {
			t.Errorf("积分 %d 期望 ErrPointsOutOfRange，实际: %v", p, err)
		}
	}
	if mocks.checkIns.items[c.ID].Status != model.StatusPending {
		t.Error("越界时签到应保持 pending")
	}
}

func TestApprove_NotPending(t *testing.T) {
	svc, mocks := setupTestApprovalService()
	c := seedCheckIn(mocks, "staff-1", testDate, "08:50", 5)

	if _, err := svc.Approve(context.Background(), testAdmin, c.ID, nil); err != nil {
		t.Fatalf("首次审批应成功: %v", err)
	}
	if _, err := svc.Approve(context.Background(), testAdmin, c.ID, nil); !errors.Is(err, ErrCheckInNotPending) {
		t.Errorf("期望 ErrCheckInNotPending，实际: %v", err)
	}
	if _, err := svc.Reject(context.Background(), testAdmin, c.ID, "zu spät"); !errors.Is(err, ErrCheckInNotPending) {
		t.Errorf("已审批后驳回期望 ErrCheckInNotPending，实际: %v", err)
	}
	if got := mocks.profiles.items["staff-1"].TotalPoints; got != 5 {
		t.Errorf("积分只应发放一次，实际=%d", got)
	}
}

func TestApprove_NotFound(t *testing.T) {
	svc, _ := setupTestApprovalService()
	if _, err := svc.Approve(context.Background(), testAdmin, "missing", nil); !errors.Is(err, ErrCheckInNotFound) {
		t.Errorf("期望 ErrCheckInNotFound，实际: %v", err)
	}
}

func TestReject(t *testing.T) {
	svc, mocks := setupTestApprovalService()
	c := seedCheckIn(mocks, "staff-1", testDate, "08:50", 5)

	if _, err := svc.Reject(context.Background(), testAdmin, c.ID, "   "); !errors.Is(err, ErrRejectReasonRequired) {
		t.Errorf("期望 ErrRejectReasonRequired，实际: %v", err)
	}

	result, err := svc.Reject(context.Background(), testAdmin, c.ID, "Kein Dienst")
	if err != nil {
		t.Fatalf("Reject 应成功: %v", err)
	}
	if result.Status != model.StatusRejected || result.PointsAwarded != 0 || result.RejectionReason != "Kein Dienst" {
		t.Errorf("驳回结果不符: %+v", result)
	}
	if len(mocks.points.items) != 0 {
		t.Error("驳回不应产生积分")
	}
}

func TestListPending(t *testing.T) {
	svc, mocks := setupTestApprovalService()
	seedCheckIn(mocks, "staff-1", testDate, "08:50", 5)
	done := seedCheckIn(mocks, "staff-2", testDate, "08:40", 5)
	done.Status = model.StatusApproved

	list, err := svc.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending 应成功: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("期望 1 条待审批，实际=%d", len(list))
	}
}
