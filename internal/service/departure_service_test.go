package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
)

func setupTestDepartureService() (*departureService, *mockRepos) {
	mocks := newMockRepos()
	svc := NewDepartureService(mocks.repository(), zap.NewNop()).(*departureService)
	svc.now = at(testDate, "16:00")
	return svc, mocks
}

func TestDeparture_CreateRequiresCheckIn(t *testing.T) {
	svc, mocks := setupTestDepartureService()

	if _, err := svc.Create(context.Background(), testStaff, &dto.CreateDepartureRequest{}); !errors.Is(err, ErrNoCheckInToday) {
		t.Errorf("期望 ErrNoCheckInToday，实际: %v", err)
	}

	c := seedCheckIn(mocks, "staff-1", testDate, "08:50", 5)
	c.Status = model.StatusRejected
	if _, err := svc.Create(context.Background(), testStaff, &dto.CreateDepartureRequest{}); !errors.Is(err, ErrNoCheckInToday) {
		t.Errorf("签到被驳回时期望 ErrNoCheckInToday，实际: %v", err)
	}
}

func TestDeparture_CreateOncePending(t *testing.T) {
	svc, mocks := setupTestDepartureService()
	seedCheckIn(mocks, "staff-1", testDate, "08:50", 5)

	result, err := svc.Create(context.Background(), testStaff, &dto.CreateDepartureRequest{Reason: "Arzttermin"})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if result.Status != model.StatusPending || result.ShiftType != model.ShiftEarly || result.Reason != "Arzttermin" {
		t.Errorf("离岗申请不符: %+v", result)
	}

	if _, err := svc.Create(context.Background(), testStaff, &dto.CreateDepartureRequest{}); !errors.Is(err, ErrDepartureAlreadyPending) {
		t.Errorf("期望 ErrDepartureAlreadyPending，实际: %v", err)
	}
}

func TestDeparture_ApproveClosesCheckIn(t *testing.T) {
	svc, mocks := setupTestDepartureService()
	c := seedCheckIn(mocks, "staff-1", testDate, "09:00", 5)
	d, err := svc.Create(context.Background(), testStaff, &dto.CreateDepartureRequest{})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	result, err := svc.Approve(context.Background(), testAdmin, d.ID)
	if err != nil {
		t.Fatalf("Approve 应成功: %v", err)
	}
	if result.Status != model.StatusApproved {
		t.Errorf("期望 approved，实际=%s", result.Status)
	}
	closed := mocks.checkIns.items[c.ID]
	if closed.CheckOutTime == nil || closed.WorkHours.Decimal.StringFixed(2) != "7.00" {
		t.Errorf("批准后应补记签退（7 小时），实际: %+v", closed)
	}
	if len(mocks.notices.items) != 1 || mocks.notices.items[0].Type != model.NotificationDepartureApproved {
		t.Errorf("应通知员工: %+v", mocks.notices.items)
	}

	if _, err := svc.Approve(context.Background(), testAdmin, d.ID); !errors.Is(err, ErrDepartureNotPending) {
		t.Errorf("重复审批期望 ErrDepartureNotPending，实际: %v", err)
	}
}

func TestDeparture_ApproveKeepsExistingCheckout(t *testing.T) {
	svc, mocks := setupTestDepartureService()
	c := seedCheckIn(mocks, "staff-1", testDate, "09:00", 5)
	d, _ := svc.Create(context.Background(), testStaff, &dto.CreateDepartureRequest{})

	earlier := at(testDate, "15:00")()
	c.CheckOutTime = &earlier

	if _, err := svc.Approve(context.Background(), testAdmin, d.ID); err != nil {
		t.Fatalf("已签退时审批仍应成功: %v", err)
	}
	if !mocks.checkIns.items[c.ID].CheckOutTime.Equal(earlier) {
		t.Error("已有签退时间不应被覆盖")
	}
}

func TestDeparture_RejectDefaultReason(t *testing.T) {
	svc, mocks := setupTestDepartureService()
	seedCheckIn(mocks, "staff-1", testDate, "09:00", 5)
	d, _ := svc.Create(context.Background(), testStaff, &dto.CreateDepartureRequest{})

	result, err := svc.Reject(context.Background(), testAdmin, d.ID, "")
	if err != nil {
		t.Fatalf("Reject 应成功: %v", err)
	}
	if result.RejectionReason != "Keine Angabe" {
		t.Errorf("期望默认原因 Keine Angabe，实际=%q", result.RejectionReason)
	}

	// 驳回后可再次申请
	if _, err := svc.Create(context.Background(), testStaff, &dto.CreateDepartureRequest{}); err != nil {
		t.Errorf("驳回后应允许重新申请: %v", err)
	}
}

func TestDeparture_NotFound(t *testing.T) {
	svc, _ := setupTestDepartureService()
	if _, err := svc.Reject(context.Background(), testAdmin, "missing", "x"); !errors.Is(err, ErrDepartureNotFound) {
		t.Errorf("期望 ErrDepartureNotFound，实际: %v", err)
	}
}
