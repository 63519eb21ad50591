package handler

import (
	"database/sql"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/floradistro/websitev2-sub018/internal/lock"
	"github.com/floradistro/websitev2-sub018/internal/model"
	"github.com/floradistro/websitev2-sub018/internal/repository"
	"github.com/floradistro/websitev2-sub018/internal/testutil"
)

// Response envelopes the handlers emit, mirrored for decoding.
type sessionResponse struct {
	Session      model.Session `json:"session"`
	ExpectedCash float64       `json:"expectedCash"`
	CountedCash  float64       `json:"countedCash"`
	OverShort    float64       `json:"overShort"`
	Error        string        `json:"error"`
}

type saleResponse struct {
	Order       model.Order              `json:"order"`
	Transaction model.PaymentTransaction `json:"transaction"`
	Error       string                   `json:"error"`
	ProductID   uint64                   `json:"productId"`
	Suggestion  string                   `json:"suggestion"`
	Success     bool                     `json:"success"`
}

// testEnv wires every handler against one in-memory database and a
// local lock manager, the same graph main assembles in production.
type testEnv struct {
	DB          *sql.DB
	Echo        *echo.Echo
	Sessions    *SessionHandler
	Sales       *SaleHandler
	Reversals   *ReversalHandler
	Inventory   *InventoryHandler
	Maintenance *MaintenanceHandler

	SessionRepo   *repository.SessionRepo
	OrderRepo     *repository.OrderRepo
	PaymentRepo   *repository.PaymentRepo
	InventoryRepo *repository.InventoryRepo
	CounterRepo   *repository.LocationCounterRepo
	ReversalRepo  *repository.ReversalRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	sessionRepo := repository.NewSessionRepo(db)
	registerRepo := repository.NewRegisterRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	inventoryRepo := repository.NewInventoryRepo(db)
	counterRepo := repository.NewLocationCounterRepo(db)
	reversalRepo := repository.NewReversalRepo(db)

	locks := lock.NewLocalManager(lock.Options{
		WaitTimeout:   5 * time.Second,
		RetryInterval: 2 * time.Millisecond,
	})

	return &testEnv{
		DB:          db,
		Echo:        echo.New(),
		Sessions:    NewSessionHandler(sessionRepo, registerRepo, locks),
		Sales:       NewSaleHandler(sessionRepo, orderRepo, paymentRepo, inventoryRepo, counterRepo, locks, nil),
		Reversals:   NewReversalHandler(sessionRepo, orderRepo, paymentRepo, inventoryRepo, counterRepo, reversalRepo, locks, nil),
		Inventory:   NewInventoryHandler(inventoryRepo),
		Maintenance: NewMaintenanceHandler(sessionRepo, orderRepo, 4),

		SessionRepo:   sessionRepo,
		OrderRepo:     orderRepo,
		PaymentRepo:   paymentRepo,
		InventoryRepo: inventoryRepo,
		CounterRepo:   counterRepo,
		ReversalRepo:  reversalRepo,
	}
}

// openSession seeds a register and opens a session on it, returning
// the session ID.
func (env *testEnv) openSession(t *testing.T, vendorID, locationID uint64, openingCash float64) uint64 {
	t.Helper()
	registerID := testutil.SeedRegister(t, env.DB, vendorID, locationID, "Front Counter")
	c, rec := testutil.NewContext(t, env.Echo, "POST", "/v1/sessions/get-or-create", map[string]interface{}{
		"registerId":  registerID,
		"locationId":  locationID,
		"vendorId":    vendorID,
		"openingCash": openingCash,
	})
	if err := env.Sessions.GetOrCreate(c); err != nil {
		t.Fatalf("GetOrCreate returned error: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("expected 200 opening session, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	testutil.Decode(t, rec, &resp)
	return resp.Session.ID
}

// sale posts a single-item sale and returns the recorder. sessionID
// may be zero for a walk-in sale with no session.
func (env *testEnv) sale(t *testing.T, sessionID uint64, vendorID, locationID, productID uint64, qty uint32, unitPrice, tax float64, method string) (echo.Context, *saleResponse, int) {
	t.Helper()
	subtotal := float64(qty) * unitPrice
	total := subtotal + tax
	body := map[string]interface{}{
		"locationId":    locationID,
		"vendorId":      vendorID,
		"items":         []map[string]interface{}{{"productId": productID, "quantity": qty, "unitPrice": unitPrice}},
		"subtotal":      subtotal,
		"taxAmount":     tax,
		"total":         total,
		"paymentMethod": method,
	}
	switch method {
	case "cash":
		body["tender"] = map[string]float64{"cash": total}
	case "card":
		body["tender"] = map[string]float64{"card": total}
	default:
		body["tender"] = map[string]float64{"cash": total}
	}
	if sessionID != 0 {
		body["sessionId"] = sessionID
	}
	c, rec := testutil.NewContext(t, env.Echo, "POST", "/v1/sales", body)
	if err := env.Sales.Create(c); err != nil {
		t.Fatalf("Create sale returned error: %v", err)
	}
	var resp saleResponse
	if rec.Code == 201 {
		testutil.Decode(t, rec, &resp)
	}
	return c, &resp, rec.Code
}
