package handler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/floradistro/websitev2-sub018/internal/testutil"
)

func (env *testEnv) reverse(t *testing.T, fn echo.HandlerFunc, orderID uint64, reason string) (*saleResponse, int) {
	t.Helper()
	c, rec := testutil.NewContext(t, env.Echo, "POST", fmt.Sprintf("/v1/sales/%d/reverse", orderID), map[string]interface{}{
		"reason": reason,
	})
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(orderID))
	if err := fn(c); err != nil {
		t.Fatalf("reversal handler returned error: %v", err)
	}
	var resp saleResponse
	testutil.Decode(t, rec, &resp)
	return &resp, rec.Code
}

func TestVoid_SameDay(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.openSession(t, 1, 10, 100)
	testutil.SeedInventory(t, env.DB, 501, 10, 20)

	_, created, code := env.sale(t, sessionID, 1, 10, 501, 2, 20.0, 2.50, "cash")
	if code != 201 {
		t.Fatalf("expected 201 committing sale, got %d", code)
	}
	before := testutil.Session(t, env.DB, sessionID)
	if before.TotalTransactions != 1 {
		t.Fatalf("precondition: expected one transaction, got %d", before.TotalTransactions)
	}

	resp, code := env.reverse(t, env.Reversals.Void, created.Order.ID, "customer changed mind")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Order.Status != "voided" {
		t.Errorf("expected voided order, got %q", resp.Order.Status)
	}

	if got := testutil.InventoryQuantity(t, env.DB, 501, 10); got != 20 {
		t.Errorf("expected stock restored to 20, got %d", got)
	}
	s := testutil.Session(t, env.DB, sessionID)
	if s.TotalSales != 0 || s.TotalTransactions != 0 || s.TotalCash != 0 {
		t.Errorf("expected counters back to zero, got sales=%v tx=%d cash=%v", s.TotalSales, s.TotalTransactions, s.TotalCash)
	}

	reversals, err := env.ReversalRepo.ListByOrder(context.Background(), created.Order.ID)
	if err != nil {
		t.Fatalf("ListByOrder failed: %v", err)
	}
	if len(reversals) != 1 || reversals[0].Mode != "void" || reversals[0].Reason != "customer changed mind" {
		t.Errorf("unexpected reversal records: %+v", reversals)
	}
}

func TestVoid_ReasonRequired(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.openSession(t, 1, 10, 100)
	testutil.SeedInventory(t, env.DB, 501, 10, 20)
	_, created, code := env.sale(t, sessionID, 1, 10, 501, 1, 10.0, 0, "cash")
	if code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}

	if _, code := env.reverse(t, env.Reversals.Void, created.Order.ID, "   "); code != 400 {
		t.Errorf("expected 400 for blank reason, got %d", code)
	}
	// The order must be untouched.
	if got := testutil.InventoryQuantity(t, env.DB, 501, 10); got != 19 {
		t.Errorf("expected inventory still at 19, got %d", got)
	}
}

func TestVoid_NextDayRejected(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.openSession(t, 1, 10, 100)
	testutil.SeedInventory(t, env.DB, 501, 10, 20)

	saleDay := time.Date(2026, 3, 14, 23, 50, 0, 0, time.UTC)
	env.Sales.Now = func() time.Time { return saleDay }
	_, created, code := env.sale(t, sessionID, 1, 10, 501, 1, 10.0, 0, "cash")
	if code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}

	// Twenty minutes later, but past midnight UTC.
	env.Reversals.Now = func() time.Time { return saleDay.Add(20 * time.Minute) }
	resp, code := env.reverse(t, env.Reversals.Void, created.Order.ID, "rang twice")
	if code != 422 {
		t.Fatalf("expected 422, got %d", code)
	}
	if resp.Suggestion != "refund" {
		t.Errorf("expected refund suggestion, got %q", resp.Suggestion)
	}
	if got := testutil.InventoryQuantity(t, env.DB, 501, 10); got != 19 {
		t.Errorf("expected inventory untouched at 19, got %d", got)
	}
	if s := testutil.Session(t, env.DB, sessionID); s.TotalTransactions != 1 {
		t.Errorf("expected session counters untouched, got tx=%d", s.TotalTransactions)
	}
}

func TestRefund_DaysLater(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.openSession(t, 1, 10, 100)
	testutil.SeedInventory(t, env.DB, 501, 10, 20)

	saleDay := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	env.Sales.Now = func() time.Time { return saleDay }
	_, created, code := env.sale(t, sessionID, 1, 10, 501, 3, 10.0, 0, "card")
	if code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}

	env.Reversals.Now = func() time.Time { return saleDay.AddDate(0, 0, 5) }
	resp, code := env.reverse(t, env.Reversals.Refund, created.Order.ID, "product defect")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if resp.Order.Status != "refunded" {
		t.Errorf("expected refunded order, got %q", resp.Order.Status)
	}
	if got := testutil.InventoryQuantity(t, env.DB, 501, 10); got != 20 {
		t.Errorf("expected stock restored to 20, got %d", got)
	}
	s := testutil.Session(t, env.DB, sessionID)
	if s.TotalSales != 0 || s.TotalCard != 0 || s.TotalTransactions != 0 {
		t.Errorf("expected counters reversed, got sales=%v card=%v tx=%d", s.TotalSales, s.TotalCard, s.TotalTransactions)
	}
}

func TestReverse_CompensatesNotRecomputes(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.openSession(t, 1, 10, 100)
	testutil.SeedInventory(t, env.DB, 501, 10, 50)
	testutil.SeedInventory(t, env.DB, 502, 10, 50)

	// Three sales; the middle one gets voided. The surviving sales'
	// contributions must be exactly preserved.
	_, _, code := env.sale(t, sessionID, 1, 10, 501, 1, 11.0, 0, "cash")
	if code != 201 {
		t.Fatalf("sale 1: expected 201, got %d", code)
	}
	_, victim, code := env.sale(t, sessionID, 1, 10, 502, 2, 7.0, 0, "card")
	if code != 201 {
		t.Fatalf("sale 2: expected 201, got %d", code)
	}
	_, _, code = env.sale(t, sessionID, 1, 10, 501, 1, 19.0, 0, "cash")
	if code != 201 {
		t.Fatalf("sale 3: expected 201, got %d", code)
	}

	if _, code := env.reverse(t, env.Reversals.Void, victim.Order.ID, "wrong item rung in"); code != 200 {
		t.Fatalf("void: expected 200, got %d", code)
	}

	s := testutil.Session(t, env.DB, sessionID)
	if s.TotalSales != 30.0 {
		t.Errorf("expected total_sales 30 (11+19), got %v", s.TotalSales)
	}
	if s.TotalTransactions != 2 {
		t.Errorf("expected 2 surviving transactions, got %d", s.TotalTransactions)
	}
	if s.TotalCash != 30.0 || s.TotalCard != 0 {
		t.Errorf("expected cash=30 card=0, got cash=%v card=%v", s.TotalCash, s.TotalCard)
	}
	if got := testutil.InventoryQuantity(t, env.DB, 502, 10); got != 50 {
		t.Errorf("expected product 502 restored to 50, got %d", got)
	}
	if got := testutil.InventoryQuantity(t, env.DB, 501, 10); got != 48 {
		t.Errorf("expected product 501 still at 48, got %d", got)
	}
}

func TestReverse_DoubleReversalRejected(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.openSession(t, 1, 10, 100)
	testutil.SeedInventory(t, env.DB, 501, 10, 20)
	_, created, code := env.sale(t, sessionID, 1, 10, 501, 2, 10.0, 0, "cash")
	if code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}

	if _, code := env.reverse(t, env.Reversals.Void, created.Order.ID, "first void"); code != 200 {
		t.Fatalf("first void: expected 200, got %d", code)
	}
	if _, code := env.reverse(t, env.Reversals.Void, created.Order.ID, "second void"); code != 409 {
		t.Errorf("second void: expected 409, got %d", code)
	}
	if _, code := env.reverse(t, env.Reversals.Refund, created.Order.ID, "refund after void"); code != 409 {
		t.Errorf("refund after void: expected 409, got %d", code)
	}
	// Stock restored once, not three times.
	if got := testutil.InventoryQuantity(t, env.DB, 501, 10); got != 20 {
		t.Errorf("expected inventory at 20, got %d", got)
	}
}

func TestReverse_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)
	if _, code := env.reverse(t, env.Reversals.Void, 424242, "no such order"); code != 404 {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestReverse_WalkInCounter(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedInventory(t, env.DB, 501, 10, 20)

	_, created, code := env.sale(t, 0, 1, 10, 501, 1, 16.20, 0, "card")
	if code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}
	if _, code := env.reverse(t, env.Reversals.Refund, created.Order.ID, "walk-in return"); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}

	counters, err := env.CounterRepo.Get(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("counter read failed: %v", err)
	}
	if counters.WalkInSales != 0 {
		t.Errorf("expected walk_in_sales back to 0, got %v", counters.WalkInSales)
	}
	if got := testutil.InventoryQuantity(t, env.DB, 501, 10); got != 20 {
		t.Errorf("expected stock restored to 20, got %d", got)
	}
}
