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

// ReversalHandler undoes committed sales. A void is a same-day
// cancellation; a refund works on any day. Both restore each line
// item's quantity into the originating inventory record and subtract
// the original amounts from the owning session's counters —
// compensating subtraction, never a recompute, so sales interleaved
// on the session are unaffected. Everything commits as one unit; a
// failure at any step leaves the order in its prior state.
type ReversalHandler struct {
	SessionRepo   *repository.SessionRepo
	OrderRepo     *repository.OrderRepo
	PaymentRepo   *repository.PaymentRepo
	InventoryRepo *repository.InventoryRepo
	CounterRepo   *repository.LocationCounterRepo
	ReversalRepo  *repository.ReversalRepo
	Locks         lock.Manager
	Events        *queue_publisher.Publisher

	Now func() time.Time
}

// NewReversalHandler constructs a ReversalHandler. The event
// publisher may be nil; everything else must be non-nil.
func NewReversalHandler(sessionRepo *repository.SessionRepo, orderRepo *repository.OrderRepo, paymentRepo *repository.PaymentRepo, inventoryRepo *repository.InventoryRepo, counterRepo *repository.LocationCounterRepo, reversalRepo *repository.ReversalRepo, locks lock.Manager, events *queue_publisher.Publisher) *ReversalHandler {
	if sessionRepo == nil || orderRepo == nil || paymentRepo == nil || inventoryRepo == nil || counterRepo == nil || reversalRepo == nil || locks == nil {
		panic("nil dependency passed to NewReversalHandler")
	}
	return &ReversalHandler{
		SessionRepo:   sessionRepo,
		OrderRepo:     orderRepo,
		PaymentRepo:   paymentRepo,
		InventoryRepo: inventoryRepo,
		CounterRepo:   counterRepo,
		ReversalRepo:  reversalRepo,
		Locks:         locks,
		Events:        events,
		Now:           func() time.Time { return time.Now().UTC() },
	}
}

// Void handles POST /v1/sales/:id/void.
func (h *ReversalHandler) Void(c echo.Context) error {
	return h.reverse(c, model.ReversalVoid)
}

// Refund handles POST /v1/sales/:id/refund.
func (h *ReversalHandler) Refund(c echo.Context) error {
	return h.reverse(c, model.ReversalRefund)
}

func (h *ReversalHandler) reverse(c echo.Context, mode string) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reason is required"})
	}
	ctx := c.Request().Context()

	// The order lock serializes reversals of the same sale; the
	// status guard on the UPDATE backs it up at the store.
	releases := make([]func(), 0, 4)
	defer func() { releaseAll(releases) }()
	rel, err := h.Locks.Acquire(ctx, lock.ResourceOrder, strconv.FormatUint(orderID, 10))
	if err != nil {
		return lockFailed(c, err)
	}
	releases = append(releases, rel)

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

	order, err := h.OrderRepo.GetTx(ctx, tx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if order.Status != model.OrderCompleted {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":  "order already voided or refunded",
			"status": order.Status,
		})
	}
	now := h.Now()
	if mode == model.ReversalVoid && !sameCalendarDay(order.CreatedAt, now) {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":      "order is not eligible for void outside its sale day",
			"suggestion": "refund",
		})
	}

	items, err := h.OrderRepo.ItemsTx(ctx, tx, orderID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load order items"})
	}
	payment, err := h.PaymentRepo.GetByOrderTx(ctx, tx, orderID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load payment transaction"})
	}

	// Same lock order as the sale path: products sorted ascending.
	productIDs := make([]uint64, 0, len(items))
	for _, it := range items {
		productIDs = append(productIDs, it.ProductID)
	}
	for _, pid := range sortedUnique(productIDs) {
		rel, err := h.Locks.Acquire(ctx, lock.ResourceInventory, fmt.Sprintf("%d:%d", pid, order.LocationID))
		if err != nil {
			return lockFailed(c, err)
		}
		releases = append(releases, rel)
	}

	// Restore stock into the exact records the sale drew from.
	for _, it := range items {
		if _, err := h.InventoryRepo.AdjustByIDTx(ctx, tx, it.InventoryID, int64(it.Quantity)); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to restore inventory"})
		}
	}

	if order.SessionID != nil {
		if err := h.SessionRepo.ReverseSaleTx(ctx, tx, *order.SessionID, order.Total, payment.CashAmount, payment.CardAmount, now); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reverse session counters"})
		}
	} else {
		if err := h.CounterRepo.AddWalkInTx(ctx, tx, order.VendorID, order.LocationID, -order.Total); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to reverse walk-in counter"})
		}
	}

	newStatus := model.OrderVoided
	kind := queue.KindSaleVoided
	if mode == model.ReversalRefund {
		newStatus = model.OrderRefunded
		kind = queue.KindSaleRefunded
	}
	if err := h.OrderRepo.UpdateStatusTx(ctx, tx, orderID, model.OrderCompleted, newStatus); err != nil {
		if errors.Is(err, repository.ErrAlreadyReversed) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "order already voided or refunded"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update order status"})
	}
	if err := h.ReversalRepo.CreateTx(ctx, tx, &model.OrderReversal{
		OrderID: orderID,
		Mode:    mode,
		Reason:  reason,
		UserID:  userID,
		Total:   order.Total,
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record reversal"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	_ = h.Events.PublishSaleEvent(ctx, queue.SaleEvent{
		EventID:     uuid.NewString(),
		Kind:        kind,
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
		Reason:      reason,
		OccurredAt:  now.Format(time.RFC3339),
	})

	order.Status = newStatus
	order.Items = items
	return c.JSON(http.StatusOK, echo.Map{"success": true, "order": order})
}
