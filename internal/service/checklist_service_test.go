package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"villasun/backend/internal/dto"
	"villasun/backend/internal/model"
)

func setupTestChecklistService() (*checklistService, *mockRepos) {
	mocks := newMockRepos()
	mocks.addProfile("admin-1", "Admin", model.RoleAdmin)
	mocks.addProfile("staff-1", "Anna", model.RoleStaff)
	mocks.addProfile("staff-2", "Ben", model.RoleStaff)

	svc := NewChecklistService(mocks.repository(), 20, zap.NewNop()).(*checklistService)
	svc.now = at(testDate, "07:00")
	svc.ledger.now = svc.now
	return svc, mocks
}

func TestChecklistDue(t *testing.T) {
	tests := []struct {
		name       string
		recurrence string
		start      string
		generated  string
		date       string
		want       bool
	}{
		{"每日", model.RecurrenceDaily, "2026-03-01", "", "2026-03-02", true},
		{"开始日之前", model.RecurrenceDaily, "2026-03-05", "", "2026-03-02", false},
		{"每周同一星期", model.RecurrenceWeekly, "2026-02-23", "", "2026-03-02", true},
		{"每周不同星期", model.RecurrenceWeekly, "2026-02-24", "", "2026-03-02", false},
		{"每月同日", model.RecurrenceMonthly, "2026-01-15", "", "2026-03-15", true},
		{"每月 31 日落在二月末", model.RecurrenceMonthly, "2026-01-31", "", "2026-02-28", true},
		{"每月 31 日不落在二月 27 日", model.RecurrenceMonthly, "2026-01-31", "", "2026-02-27", false},
		{"一次性未生成", model.RecurrenceOneTime, "2026-03-01", "", "2026-03-02", true},
		{"一次性已生成", model.RecurrenceOneTime, "2026-03-01", "2026-03-01", "2026-03-02", false},
		{"未知周期", "yearly", "2026-03-01", "", "2026-03-02", false},
	}

	for _, tt := range tests {
		c := &model.Checklist{
			Recurrence:        tt.recurrence,
			StartDate:         model.Date(tt.start),
			LastGeneratedDate: model.Date(tt.generated),
		}
		if got := checklistDue(c, tt.date); got != tt.want {
			t.Errorf("%s: checklistDue(%s) = %v, want %v", tt.name, tt.date, got, tt.want)
		}
	}
}

func TestGenerateChecklists_Idempotent(t *testing.T) {
	svc, mocks := setupTestChecklistService()
	ctx := context.Background()

	daily, err := svc.Create(ctx, testAdmin, &dto.CreateChecklistRequest{
		Title: "Pool morgens", Recurrence: model.RecurrenceDaily, PointsValue: 2,
		Items: []string{"Chlor messen", "Skimmer leeren"}, AssignedTo: "staff-1", StartDate: "2026-03-01",
	})
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	_, _ = svc.Create(ctx, testAdmin, &dto.CreateChecklistRequest{
		Title: "Wochenputz", Recurrence: model.RecurrenceWeekly, Items: []string{"Fenster"}, StartDate: "2026-02-24",
	})

	result, err := svc.Generate(ctx, "")
	if err != nil {
		t.Fatalf("Generate 应成功: %v", err)
	}
	if result.Date != testDate || result.Generated != 1 {
		t.Errorf("周一只应生成每日清单: %+v", result)
	}
	if got := mocks.checklists.items[daily.ID].LastGeneratedDate; got != model.Date(testDate) {
		t.Errorf("应记录最近生成日期，实际 %q", got)
	}

	again, err := svc.Generate(ctx, testDate)
	if err != nil {
		t.Fatalf("Generate 应成功: %v", err)
	}
	if again.Generated != 0 || len(mocks.instances.items) != 1 {
		t.Errorf("重复生成不应新增实例: %+v", again)
	}

	for _, inst := range mocks.instances.items {
		if inst.PointsValue != 2 || len(inst.Items) != 2 || inst.Items[0].IsCompleted {
			t.Errorf("实例应复制模板子项且未完成: %+v", inst)
		}
	}
}

func TestGenerateChecklists_SkipsInactive(t *testing.T) {
	svc, mocks := setupTestChecklistService()
	ctx := context.Background()
	c, _ := svc.Create(ctx, testAdmin, &dto.CreateChecklistRequest{
		Title: "Bar", Recurrence: model.RecurrenceDaily, Items: []string{"Gläser"},
	})
	if err := svc.Deactivate(ctx, testAdmin, c.ID); err != nil {
		t.Fatalf("Deactivate 应成功: %v", err)
	}

	result, err := svc.Generate(ctx, testDate)
	if err != nil {
		t.Fatalf("Generate 应成功: %v", err)
	}
	if result.Generated != 0 || len(mocks.instances.items) != 0 {
		t.Errorf("停用的模板不应生成实例: %+v", result)
	}
	if err := svc.Deactivate(ctx, testAdmin, "missing"); !errors.Is(err, ErrChecklistNotFound) {
		t.Errorf("期望 ErrChecklistNotFound，实际: %v", err)
	}
}

// seedInstance 生成一个分配给 staff-1 的当日实例
func seedInstance(t *testing.T, svc *checklistService, mocks *mockRepos, points int) *model.ChecklistInstance {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Create(ctx, testAdmin, &dto.CreateChecklistRequest{
		Title: "Lobby", Recurrence: model.RecurrenceDaily, PointsValue: points,
		Items: []string{"Sofa", "Blumen"}, AssignedTo: "staff-1",
	}); err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if _, err := svc.Generate(ctx, testDate); err != nil {
		t.Fatalf("Generate 应成功: %v", err)
	}
	for _, inst := range mocks.instances.items {
		return inst
	}
	t.Fatal("未生成实例")
	return nil
}

func completeInstance(t *testing.T, svc *checklistService, inst *model.ChecklistInstance) {
	t.Helper()
	ctx := context.Background()
	for _, it := range inst.Items {
		if _, err := svc.ToggleItem(ctx, testStaff, inst.ID, it.ID); err != nil {
			t.Fatalf("ToggleItem 应成功: %v", err)
		}
	}
	if _, err := svc.Submit(ctx, testStaff, inst.ID, &dto.SubmitChecklistRequest{}); err != nil {
		t.Fatalf("Submit 应成功: %v", err)
	}
}

func TestChecklistInstance_SubmitFlow(t *testing.T) {
	svc, mocks := setupTestChecklistService()
	ctx := context.Background()
	inst := seedInstance(t, svc, mocks, 3)

	if _, err := svc.Submit(ctx, testStaff, inst.ID, &dto.SubmitChecklistRequest{}); !errors.Is(err, ErrChecklistItemsIncomplete) {
		t.Errorf("子项未完成期望 ErrChecklistItemsIncomplete，实际: %v", err)
	}
	other := Actor{UserID: "staff-2", Role: model.RoleStaff}
	if _, err := svc.ToggleItem(ctx, other, inst.ID, inst.Items[0].ID); !errors.Is(err, ErrNoPermission) {
		t.Errorf("非本人实例期望 ErrNoPermission，实际: %v", err)
	}

	completeInstance(t, svc, inst)
	if inst.Status != model.ChecklistStatusCompleted || inst.CompletedBy == nil || *inst.CompletedBy != "staff-1" {
		t.Errorf("提交后应为 completed: %+v", inst)
	}
	if _, err := svc.ToggleItem(ctx, testStaff, inst.ID, inst.Items[0].ID); !errors.Is(err, ErrChecklistNotPending) {
		t.Errorf("已提交实例不可勾选，实际: %v", err)
	}

	review, err := svc.ListForReview(ctx)
	if err != nil || len(review) != 1 {
		t.Errorf("待审核列表应有 1 条: %v %+v", err, review)
	}
}

func TestChecklistReview_ApproveAwardsSubmitter(t *testing.T) {
	svc, mocks := setupTestChecklistService()
	inst := seedInstance(t, svc, mocks, 3)
	completeInstance(t, svc, inst)

	got, err := svc.Review(context.Background(), testAdmin, inst.ID, &dto.ReviewChecklistRequest{Approved: boolPtr(true)})
	if err != nil {
		t.Fatalf("Review 应成功: %v", err)
	}
	if got.Status != model.ChecklistStatusApproved || got.PointsAwarded != 3 {
		t.Errorf("审核结果不符: %+v", got)
	}
	if mocks.profiles.items["staff-1"].TotalPoints != 3 || len(mocks.points.items) != 1 {
		t.Errorf("提交者应获得 3 分: %+v", mocks.points.items)
	}
	if len(mocks.notices.items) != 1 || mocks.notices.items[0].Type != model.NotificationChecklistApproved {
		t.Errorf("应通知提交者: %+v", mocks.notices.items)
	}

	if _, err := svc.Review(context.Background(), testAdmin, inst.ID, &dto.ReviewChecklistRequest{Approved: boolPtr(true)}); !errors.Is(err, ErrChecklistNotSubmitted) {
		t.Errorf("重复审核期望 ErrChecklistNotSubmitted，实际: %v", err)
	}
}

func TestChecklistReview_RejectRequiresReason(t *testing.T) {
	svc, mocks := setupTestChecklistService()
	inst := seedInstance(t, svc, mocks, 3)
	completeInstance(t, svc, inst)
	ctx := context.Background()

	if _, err := svc.Review(ctx, testAdmin, inst.ID, &dto.ReviewChecklistRequest{Approved: boolPtr(false)}); !errors.Is(err, ErrRejectReasonRequired) {
		t.Errorf("驳回无原因期望 ErrRejectReasonRequired，实际: %v", err)
	}

	got, err := svc.Review(ctx, testAdmin, inst.ID, &dto.ReviewChecklistRequest{Approved: boolPtr(false), Reason: "Blumen welk"})
	if err != nil {
		t.Fatalf("Review 应成功: %v", err)
	}
	if got.Status != model.ChecklistStatusPending || got.RejectionReason != "Blumen welk" {
		t.Errorf("驳回后应退回 pending: %+v", got)
	}
	if len(mocks.points.items) != 0 {
		t.Error("驳回不应记分")
	}
	if len(mocks.notices.items) != 1 || mocks.notices.items[0].Type != model.NotificationChecklistRejected {
		t.Errorf("应通知提交者驳回: %+v", mocks.notices.items)
	}
	if _, err := svc.Submit(ctx, testStaff, inst.ID, &dto.SubmitChecklistRequest{}); err != nil {
		t.Errorf("驳回后可再次提交: %v", err)
	}
}

func TestArchiveApprovedChecklists(t *testing.T) {
	svc, mocks := setupTestChecklistService()
	mocks.instances.items["i-old"] = &model.ChecklistInstance{ID: "i-old", InstanceDate: "2026-03-01", Status: model.ChecklistStatusApproved}
	mocks.instances.items["i-today"] = &model.ChecklistInstance{ID: "i-today", InstanceDate: testDate, Status: model.ChecklistStatusApproved}
	mocks.instances.items["i-open"] = &model.ChecklistInstance{ID: "i-open", InstanceDate: "2026-03-01", Status: model.ChecklistStatusPending}

	n, err := svc.ArchiveApproved(context.Background(), testDate)
	if err != nil {
		t.Fatalf("ArchiveApproved 应成功: %v", err)
	}
	if n != 1 || mocks.instances.items["i-old"].Status != model.ChecklistStatusArchived {
		t.Errorf("应只归档之前已通过的实例，n=%d", n)
	}
	if mocks.instances.items["i-open"].Status != model.ChecklistStatusPending {
		t.Error("未审核实例不应归档")
	}
}
