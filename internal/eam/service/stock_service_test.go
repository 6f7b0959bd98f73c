package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-eam/internal/eam/entity"
	"github.com/bitfantasy/nimo-eam/internal/eam/repository"
	"github.com/bitfantasy/nimo-eam/internal/eam/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupStockTest(t *testing.T) (*gorm.DB, *StockService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return db, NewStockService(repos.Stock)
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", s, err)
	}
	return d
}

func TestReconcileRepairIssues(t *testing.T) {
	db, svc := setupStockTest(t)
	testutil.SeedStockItem(t, db, "item-a", "轴承", "100")
	testutil.SeedStockItem(t, db, "item-b", "密封圈", "50")
	testutil.SeedStockItem(t, db, "item-c", "润滑油", "30")

	repairID := "repair-001"

	// 首次保存：两个行项
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ReconcileRepairIssues(tx, repairID, "user-1", []MaterialLine{
			{ItemID: "item-a", Quantity: dec(t, "2")},
			{ItemID: "item-b", Quantity: dec(t, "3")},
		})
	})
	if err != nil {
		t.Fatalf("first reconcile failed: %v", err)
	}

	var pending []entity.StockIssue
	db.Where("repair_id = ? AND status = ?", repairID, entity.IssueStatusPending).Find(&pending)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending issues, got %d", len(pending))
	}

	// 二次保存：a 数量变化，b 移除，c 新增
	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.ReconcileRepairIssues(tx, repairID, "user-1", []MaterialLine{
			{ItemID: "item-a", Quantity: dec(t, "5")},
			{ItemID: "item-c", Quantity: dec(t, "1")},
		})
	})
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}

	var issues []entity.StockIssue
	db.Where("repair_id = ?", repairID).Find(&issues)
	byItem := map[string]entity.StockIssue{}
	for _, is := range issues {
		byItem[is.ItemID] = is
	}

	if got := byItem["item-a"]; got.Status != entity.IssueStatusPending || !got.Quantity.Equal(dec(t, "5")) {
		t.Errorf("item-a: status=%s qty=%s, want PENDING/5", got.Status, got.Quantity)
	}
	// 移除的行保留为 CANCELED，不物理删除
	if got := byItem["item-b"]; got.Status != entity.IssueStatusCanceled {
		t.Errorf("item-b: status=%s, want CANCELED", got.Status)
	}
	if got := byItem["item-b"]; got.CanceledAt == nil {
		t.Error("item-b: canceled_at should be set")
	}
	if got := byItem["item-c"]; got.Status != entity.IssueStatusPending || !got.Quantity.Equal(dec(t, "1")) {
		t.Errorf("item-c: status=%s qty=%s, want PENDING/1", got.Status, got.Quantity)
	}

	// 预占阶段不动库存
	var item entity.StockItem
	db.First(&item, "id = ?", "item-a")
	if !item.OnHand.Equal(dec(t, "100")) {
		t.Errorf("on_hand should be untouched during reconcile, got %s", item.OnHand)
	}
}

func TestReconcileMergesDuplicateLines(t *testing.T) {
	db, svc := setupStockTest(t)
	testutil.SeedStockItem(t, db, "item-a", "轴承", "100")

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ReconcileRepairIssues(tx, "repair-dup", "user-1", []MaterialLine{
			{ItemID: "item-a", Quantity: dec(t, "2")},
			{ItemID: "item-a", Quantity: dec(t, "3")},
		})
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	var issues []entity.StockIssue
	db.Where("repair_id = ? AND status = ?", "repair-dup", entity.IssueStatusPending).Find(&issues)
	if len(issues) != 1 {
		t.Fatalf("duplicate lines should merge into one issue, got %d", len(issues))
	}
	if !issues[0].Quantity.Equal(dec(t, "5")) {
		t.Errorf("merged quantity = %s, want 5", issues[0].Quantity)
	}
}

func TestFinalizeRepairIssuesDebitsStock(t *testing.T) {
	db, svc := setupStockTest(t)
	testutil.SeedStockItem(t, db, "item-a", "轴承", "10")
	testutil.SeedStockItem(t, db, "item-b", "密封圈", "10")

	repairID := "repair-fin"
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.ReconcileRepairIssues(tx, repairID, "user-1", []MaterialLine{
			{ItemID: "item-a", Quantity: dec(t, "4")},
			{ItemID: "item-b", Quantity: dec(t, "2.5")},
		})
	})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	// 预占时间在审批后保持不变
	reservedAt := make(map[string]time.Time)
	var pending []entity.StockIssue
	db.Where("repair_id = ?", repairID).Find(&pending)
	for _, is := range pending {
		reservedAt[is.ItemID] = is.OccurredAt
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.FinalizeRepairIssues(tx, repairID, "RO-TEST", "approver-1")
	})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	var itemA entity.StockItem
	db.First(&itemA, "id = ?", "item-a")
	if !itemA.OnHand.Equal(dec(t, "6")) {
		t.Errorf("item-a on_hand = %s, want 6", itemA.OnHand)
	}

	var issues []entity.StockIssue
	db.Where("repair_id = ?", repairID).Find(&issues)
	for _, is := range issues {
		if is.Status != entity.IssueStatusApproved {
			t.Errorf("issue %s status = %s, want APPROVED", is.ItemID, is.Status)
		}
		if is.ApprovedBy == nil || *is.ApprovedBy != "approver-1" {
			t.Errorf("issue %s should record the approver", is.ItemID)
		}
		if is.ApprovedAt == nil {
			t.Errorf("issue %s should record the approval time", is.ItemID)
		}
		if !is.OccurredAt.Equal(reservedAt[is.ItemID]) {
			t.Errorf("issue %s occurred_at changed on approval: %s -> %s",
				is.ItemID, reservedAt[is.ItemID], is.OccurredAt)
		}
	}

	// 每个耗材一条负数流水
	var txs []entity.StockTransaction
	db.Where("reference_id = ?", repairID).Find(&txs)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	for _, tr := range txs {
		if tr.Type != entity.TxTypeRepairOut {
			t.Errorf("transaction type = %s, want REPAIR_OUT", tr.Type)
		}
		if !tr.Quantity.IsNegative() {
			t.Errorf("outbound transaction quantity should be negative, got %s", tr.Quantity)
		}
		if tr.ReferenceCode != "RO-TEST" {
			t.Errorf("transaction should carry the repair code, got %s", tr.ReferenceCode)
		}
	}
}

func TestFinalizeRepairIssuesReportsAllShortfalls(t *testing.T) {
	db, svc := setupStockTest(t)
	testutil.SeedStockItem(t, db, "item-a", "轴承", "1")
	testutil.SeedStockItem(t, db, "item-b", "密封圈", "0.5")
	testutil.SeedStockItem(t, db, "item-c", "润滑油", "100")

	repairID := "repair-short"
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.ReconcileRepairIssues(tx, repairID, "user-1", []MaterialLine{
			{ItemID: "item-a", Quantity: dec(t, "3")},
			{ItemID: "item-b", Quantity: dec(t, "2")},
			{ItemID: "item-c", Quantity: dec(t, "1")},
		}); err != nil {
			return err
		}
		return svc.FinalizeRepairIssues(tx, repairID, "RO-TEST", "approver-1")
	})

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	// 一次性汇总全部缺口，而不是在第一条失败
	if len(stockErr.Shortfalls) != 2 {
		t.Fatalf("expected 2 shortfalls, got %d", len(stockErr.Shortfalls))
	}

	// 事务回滚：库存与出库单都不动
	var itemC entity.StockItem
	db.First(&itemC, "id = ?", "item-c")
	if !itemC.OnHand.Equal(dec(t, "100")) {
		t.Errorf("item-c on_hand = %s, want 100 (rollback)", itemC.OnHand)
	}
	var approved int64
	db.Model(&entity.StockIssue{}).Where("repair_id = ? AND status = ?", repairID, entity.IssueStatusApproved).Count(&approved)
	if approved != 0 {
		t.Errorf("no issue should be approved after rollback, got %d", approved)
	}
}

func TestIssueLifecycle(t *testing.T) {
	db, svc := setupStockTest(t)
	testutil.SeedStockItem(t, db, "item-a", "轴承", "10")
	ctx := context.Background()

	issue, err := svc.CreateIssue(ctx, "user-1", CreateIssueRequest{
		ItemID:   "item-a",
		Quantity: dec(t, "4"),
	})
	if err != nil {
		t.Fatalf("create issue failed: %v", err)
	}
	if issue.Status != entity.IssueStatusPending {
		t.Fatalf("new issue status = %s, want PENDING", issue.Status)
	}

	// PENDING 不扣库存
	var item entity.StockItem
	db.First(&item, "id = ?", "item-a")
	if !item.OnHand.Equal(dec(t, "10")) {
		t.Errorf("on_hand after create = %s, want 10", item.OnHand)
	}

	if err := svc.ApproveIssue(ctx, issue.ID, "approver-1"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	db.First(&item, "id = ?", "item-a")
	if !item.OnHand.Equal(dec(t, "6")) {
		t.Errorf("on_hand after approve = %s, want 6", item.OnHand)
	}

	// 取消已批准的出库单回补库存
	if err := svc.CancelIssue(ctx, issue.ID, "user-1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	db.First(&item, "id = ?", "item-a")
	if !item.OnHand.Equal(dec(t, "10")) {
		t.Errorf("on_hand after cancel = %s, want 10", item.OnHand)
	}

	var txCount int64
	db.Model(&entity.StockTransaction{}).Where("item_id = ?", "item-a").Count(&txCount)
	if txCount != 2 {
		t.Errorf("expected 2 transactions (out + cancel-in), got %d", txCount)
	}
}

func TestApproveIssueInsufficientStock(t *testing.T) {
	db, svc := setupStockTest(t)
	testutil.SeedStockItem(t, db, "item-a", "轴承", "2")
	ctx := context.Background()

	issue, err := svc.CreateIssue(ctx, "user-1", CreateIssueRequest{
		ItemID:   "item-a",
		Quantity: dec(t, "5"),
	})
	if err != nil {
		t.Fatalf("create issue failed: %v", err)
	}

	err = svc.ApproveIssue(ctx, issue.ID, "approver-1")
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	var item entity.StockItem
	db.First(&item, "id = ?", "item-a")
	if !item.OnHand.Equal(dec(t, "2")) {
		t.Errorf("on_hand must not change on failed approve, got %s", item.OnHand)
	}
}

func TestConcurrentApproveNeverGoesNegative(t *testing.T) {
	db, svc := setupStockTest(t)
	testutil.SeedStockItem(t, db, "item-a", "轴承", "5")
	ctx := context.Background()

	// 8个各领1件的出库单争抢5件库存
	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		issue, err := svc.CreateIssue(ctx, "user-1", CreateIssueRequest{
			ItemID:   "item-a",
			Quantity: dec(t, "1"),
		})
		if err != nil {
			t.Fatalf("create issue failed: %v", err)
		}
		ids = append(ids, issue.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = svc.ApproveIssue(ctx, id, "approver-1")
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var stockErr *InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Errorf("unexpected error type: %v", err)
		}
	}
	if succeeded != 5 {
		t.Errorf("exactly 5 approvals should succeed, got %d", succeeded)
	}

	var item entity.StockItem
	db.First(&item, "id = ?", "item-a")
	if item.OnHand.IsNegative() {
		t.Errorf("on_hand went negative: %s", item.OnHand)
	}
	if !item.OnHand.Equal(dec(t, "0")) {
		t.Errorf("on_hand = %s, want 0", item.OnHand)
	}
}

func TestQuantityRounding(t *testing.T) {
	db, svc := setupStockTest(t)
	testutil.SeedStockItem(t, db, "item-a", "润滑油", "1")
	ctx := context.Background()

	// 入库数量保留4位小数
	if err := svc.Receive(ctx, "user-1", ReceiveRequest{
		ItemID:   "item-a",
		Quantity: dec(t, "0.33333"),
	}); err != nil {
		t.Fatalf("receive failed: %v", err)
	}

	var item entity.StockItem
	db.First(&item, "id = ?", "item-a")
	if !item.OnHand.Equal(dec(t, "1.3333")) {
		t.Errorf("on_hand = %s, want 1.3333", item.OnHand)
	}
}

func TestCreateItemRejectsNegativeOpeningStock(t *testing.T) {
	_, svc := setupStockTest(t)
	_, err := svc.CreateItem(context.Background(), CreateItemRequest{
		Code:   "NEG-1",
		Name:   "负库存",
		OnHand: dec(t, "-1"),
	})
	var preErr *PreconditionError
	if !errors.As(err, &preErr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}
