package handler

import (
	"testing"

	"github.com/floradistro/websitev2-sub018/internal/model"
	"github.com/floradistro/websitev2-sub018/internal/testutil"
)

func TestGetInventory(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedInventory(t, env.DB, 501, 10, 25)
	if _, err := env.DB.Exec(`UPDATE inventory SET reserved_quantity = 5 WHERE product_id = 501`); err != nil {
		t.Fatalf("failed to reserve stock: %v", err)
	}

	c, rec := testutil.NewContext(t, env.Echo, "GET", "/v1/inventory?productId=501&locationId=10", nil)
	if err := env.Inventory.Get(c); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Inventory model.InventoryRecord `json:"inventory"`
		Available int64                 `json:"available"`
	}
	testutil.Decode(t, rec, &resp)
	if resp.Inventory.Quantity != 25 {
		t.Errorf("expected quantity 25, got %d", resp.Inventory.Quantity)
	}
	if resp.Available != 20 {
		t.Errorf("expected available 20, got %d", resp.Available)
	}
}

func TestGetInventory_Missing(t *testing.T) {
	env := newTestEnv(t)
	c, rec := testutil.NewContext(t, env.Echo, "GET", "/v1/inventory?productId=999&locationId=10", nil)
	if err := env.Inventory.Get(c); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.Code != 404 {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetInventory_BadParams(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{"/v1/inventory?locationId=10", "/v1/inventory?productId=501", "/v1/inventory?productId=abc&locationId=10"} {
		c, rec := testutil.NewContext(t, env.Echo, "GET", target, nil)
		if err := env.Inventory.Get(c); err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if rec.Code != 400 {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}
