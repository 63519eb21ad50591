package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/floradistro/websitev2-sub018/internal/lock"
	"github.com/floradistro/websitev2-sub018/internal/model"
	"github.com/floradistro/websitev2-sub018/internal/queue"
	"github.com/floradistro/websitev2-sub018/internal/repository"
	queue_publisher "github.com/floradistro/websitev2-sub018/internal/service"
)

// SaleHandler validates and commits sales. A sale writes the order,
// its line items, the payment transaction, the inventory decrements
// and the session (or location) counter move as one database
// transaction: either everything lands or nothing does. Inventory
// and counter serialization comes from the lock manager, acquired
// before the transaction opens and released right after it ends.
type SaleHandler struct {
	SessionRepo   *repository.SessionRepo
	OrderRepo     *repository.OrderRepo
	PaymentRepo   *repository.PaymentRepo
	InventoryRepo *repository.InventoryRepo
	CounterRepo   *repository.LocationCounterRepo
	Locks         lock.Manager
	Events        *queue_publisher.Publisher

	Now func() time.Time
}

// NewSaleHandler constructs a SaleHandler. The event publisher may
// be nil; everything else must be non-nil.
func NewSaleHandler(sessionRepo *repository.SessionRepo, orderRepo *repository.OrderRepo, paymentRepo *repository.PaymentRepo, inventoryRepo *repository.InventoryRepo, counterRepo *repository.LocationCounterRepo, locks lock.Manager, events *queue_publisher.Publisher) *SaleHandler {
	if sessionRepo == nil || orderRepo == nil || paymentRepo == nil || inventoryRepo == nil || counterRepo == nil || locks == nil {
		panic("nil dependency passed to NewSaleHandler")
	}
	return &SaleHandler{
		SessionRepo:   sessionRepo,
		OrderRepo:     orderRepo,
		PaymentRepo:   paymentRepo,
		InventoryRepo: inventoryRepo,
		CounterRepo:   counterRepo,
		Locks:         locks,
		Events:        events,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

type saleItemRequest struct {
	ProductID uint64  `json:"productId"`
	Quantity  uint32  `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type createSaleRequest struct {
	LocationID    uint64            `json:"locationId"`
	VendorID      uint64            `json:"vendorId"`
	SessionID     *uint64           `json:"sessionId,omitempty"`
	OrderType     string            `json:"orderType,omitempty"`
	Items         []saleItemRequest `json:"items"`
	Subtotal      float64           `json:"subtotal"`
	TaxAmount     float64           `json:"taxAmount"`
	Total         float64           `json:"total"`
	PaymentMethod string            `json:"paymentMethod"`
	Tender        struct {
		Cash float64 `json:"cash"`
		Card float64 `json:"card"`
	} `json:"tender"`
}

// validate re-checks the arithmetic the upstream catalog/tax
// services produced. The caller's figures are trusted for content
// but must be internally consistent.
func (req *createSaleRequest) validate() error {
	if req.LocationID == 0 || req.VendorID == 0 {
		return errors.New("locationId and vendorId are required")
	}
	if len(req.Items) == 0 {
		return errors.New("items are required")
	}
	for i, it := range req.Items {
		if it.ProductID == 0 {
			return fmt.Errorf("items[%d]: productId is required", i)
		}
		if it.Quantity == 0 {
			return fmt.Errorf("items[%d]: quantity must be positive", i)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("items[%d]: unitPrice must not be negative", i)
		}
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return errors.New("paymentMethod is required")
	}
	if !amountsEqual(req.Subtotal+req.TaxAmount, req.Total) {
		return fmt.Errorf("subtotal %.2f + tax %.2f does not equal total %.2f", req.Subtotal, req.TaxAmount, req.Total)
	}
	if !amountsEqual(req.Tender.Cash+req.Tender.Card, req.Total) {
		return fmt.Errorf("tender %.2f does not cover total %.2f", req.Tender.Cash+req.Tender.Card, req.Total)
	}
	switch req.OrderType {
	case "", model.OrderTypeWalkIn, model.OrderTypePickup:
	default:
		return fmt.Errorf("unknown orderType %q", req.OrderType)
	}
	return nil
}

// Create handles POST /v1/sales.
func (h *SaleHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createSaleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := req.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	orderType := req.OrderType
	if orderType == "" {
		orderType = model.OrderTypeWalkIn
	}

	ctx := c.Request().Context()
	start := time.Now()

	// Locks first, transaction second. Walk-in sales take the
	// location lock because the first one at a location creates the
	// counter row; products are locked in sorted order so two sales
	// over the same basket cannot deadlock.
	releases := make([]func(), 0, len(req.Items)+1)
	defer func() { releaseAll(releases) }()

	if req.SessionID == nil {
		rel, err := h.Locks.Acquire(ctx, lock.ResourceLocation, fmt.Sprintf("%d:%d", req.VendorID, req.LocationID))
		if err != nil {
			return lockFailed(c, err)
		}
		releases = append(releases, rel)
	}
	productIDs := make([]uint64, 0, len(req.Items))
	for _, it := range req.Items {
		productIDs = append(productIDs, it.ProductID)
	}
	for _, pid := range sortedUnique(productIDs) {
		rel, err := h.Locks.Acquire(ctx, lock.ResourceInventory, fmt.Sprintf("%d:%d", pid, req.LocationID))
		if err != nil {
			return lockFailed(c, err)
		}
		releases = append(releases, rel)
	}

	tx, err := h.SessionRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Decrement stock per line item. Any shortfall aborts the whole
	// sale; the rollback discards decrements already applied.
	items := make([]model.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		invID, _, err := h.InventoryRepo.AdjustTx(ctx, tx, it.ProductID, req.LocationID, -int64(it.Quantity))
		if err != nil {
			if errors.Is(err, repository.ErrInsufficientInventory) {
				return c.JSON(http.StatusConflict, echo.Map{
					"error":     "insufficient inventory",
					"productId": it.ProductID,
				})
			}
			if errors.Is(err, repository.ErrInventoryNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{
					"error":     "no inventory record for product at location",
					"productId": it.ProductID,
				})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to adjust inventory"})
		}
		items = append(items, model.OrderItem{
			ProductID:   it.ProductID,
			InventoryID: invID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   float64(it.Quantity) * it.UnitPrice,
		})
	}

	now := h.Now()
	order := &model.Order{
		OrderNumber:   orderNumber(),
		VendorID:      req.VendorID,
		LocationID:    req.LocationID,
		SessionID:     req.SessionID,
		OrderType:     orderType,
		Subtotal:      req.Subtotal,
		TaxAmount:     req.TaxAmount,
		Total:         req.Total,
		PaymentMethod: req.PaymentMethod,
		Status:        model.OrderCompleted,
		CreatedAt:     now,
	}
	if err := h.OrderRepo.CreateTx(ctx, tx, order); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order"})
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if err := h.OrderRepo.CreateItemsBulkTx(ctx, tx, items); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create order items"})
	}

	payment := &model.PaymentTransaction{
		OrderID:       order.ID,
		Reference:     uuid.NewString(),
		PaymentMethod: req.PaymentMethod,
		CashAmount:    req.Tender.Cash,
		CardAmount:    req.Tender.Card,
		Total:         req.Total,
	}
	if err := h.PaymentRepo.CreateTx(ctx, tx, payment); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create payment transaction"})
	}

	// Counter move commits with the order or not at all.
	if req.SessionID != nil {
		if err := h.SessionRepo.ApplySaleTx(ctx, tx, *req.SessionID, req.Total, req.Tender.Cash, req.Tender.Card, now); err != nil {
			if errors.Is(err, repository.ErrSessionNotFound) {
				return c.JSON(http.StatusConflict, echo.Map{"error": "session is not open"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update session counters"})
		}
	} else {
		if err := h.CounterRepo.AddWalkInTx(ctx, tx, req.VendorID, req.LocationID, req.Total); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update walk-in counter"})
		}
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	order.Items = items

	_ = h.Events.PublishSaleEvent(ctx, queue.SaleEvent{
		EventID:     uuid.NewString(),
		Kind:        queue.KindSaleCompleted,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		VendorID:    order.VendorID,
		LocationID:  order.LocationID,
		SessionID:   order.SessionID,
		UserID:      userID,
		Total:       order.Total,
		CashAmount:  payment.CashAmount,
		CardAmount:  payment.CardAmount,
		ItemCount:   len(items),
		OccurredAt:  now.Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"order":       order,
		"transaction": payment,
		"durationMs":  time.Since(start).Milliseconds(),
	})
}

// Get handles GET /v1/sales/:id.
func (h *SaleHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	order, err := h.OrderRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"order": order})
}

// FulfillPickup handles POST /v1/sales/:id/fulfill-pickup. The
// pickup order is stamped fulfilled and the fulfilling session's
// counter moves in the same transaction.
func (h *SaleHandler) FulfillPickup(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var body struct {
		SessionID uint64 `json:"sessionId"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.SessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sessionId is required"})
	}
	ctx := c.Request().Context()

	tx, err := h.SessionRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := h.Now()
	if err := h.OrderRepo.MarkPickupFulfilledTx(ctx, tx, id, now); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "order is not an unfulfilled pickup order"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mark pickup fulfilled"})
	}
	if err := h.SessionRepo.IncrementPickupTx(ctx, tx, body.SessionID, now); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "session is not open"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update session counters"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	order, err := h.OrderRepo.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load order"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": order})
}

// orderNumber builds a short display identifier for a new order.
func orderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}
