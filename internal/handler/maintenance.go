package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/floradistro/websitev2-sub018/internal/repository"
	"github.com/floradistro/websitev2-sub018/internal/taskgroup"
)

// MaintenanceHandler hosts operational endpoints that run outside
// the sale path. The counter audit recomputes every open session's
// totals from its committed orders and compares them against the
// session row. A divergence means a bug somewhere in the commit
// discipline; it is logged loudly and reported, never corrected in
// place, because silent correction would mask the bug.
type MaintenanceHandler struct {
	SessionRepo *repository.SessionRepo
	OrderRepo   *repository.OrderRepo

	// Concurrency bounds the audit fan-out.
	Concurrency int
}

// NewMaintenanceHandler constructs a MaintenanceHandler.
func NewMaintenanceHandler(sessionRepo *repository.SessionRepo, orderRepo *repository.OrderRepo, concurrency int) *MaintenanceHandler {
	if sessionRepo == nil || orderRepo == nil {
		panic("nil repository passed to NewMaintenanceHandler")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &MaintenanceHandler{SessionRepo: sessionRepo, OrderRepo: orderRepo, Concurrency: concurrency}
}

// AuditSessions handles POST /v1/maintenance/audit-sessions.
func (h *MaintenanceHandler) AuditSessions(c echo.Context) error {
	ctx := c.Request().Context()
	sessions, err := h.SessionRepo.ListOpen(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to list open sessions"})
	}

	tasks := make([]taskgroup.Task, 0, len(sessions))
	for _, s := range sessions {
		s := s
		tasks = append(tasks, taskgroup.Task{
			Name: fmt.Sprintf("session-%d", s.ID),
			Fn: func(ctx context.Context) error {
				return h.auditOne(ctx, s.ID)
			},
		})
	}
	summary := taskgroup.Run(ctx, h.Concurrency, tasks)

	violations := make([]string, 0, len(summary.Failures))
	for _, f := range summary.Failures {
		violations = append(violations, fmt.Sprintf("%s: %s", f.Name, f.Error()))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"checked":    summary.Total,
		"passed":     summary.Succeeded,
		"failed":     summary.Failed,
		"violations": violations,
	})
}

// auditOne compares one session's stored counters against the
// aggregates recomputed from its completed orders.
func (h *MaintenanceHandler) auditOne(ctx context.Context, sessionID uint64) error {
	s, err := h.SessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	totals, err := h.OrderRepo.TotalsBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !amountsEqual(s.TotalSales, totals.TotalSales) ||
		s.TotalTransactions != totals.TotalTransactions ||
		!amountsEqual(s.TotalCash, totals.TotalCash) ||
		!amountsEqual(s.TotalCard, totals.TotalCard) {
		err := fmt.Errorf("%w: session %d stored sales=%.2f tx=%d cash=%.2f card=%.2f, recomputed sales=%.2f tx=%d cash=%.2f card=%.2f",
			repository.ErrConsistency, sessionID,
			s.TotalSales, s.TotalTransactions, s.TotalCash, s.TotalCard,
			totals.TotalSales, totals.TotalTransactions, totals.TotalCash, totals.TotalCard)
		log.Printf("CONSISTENCY VIOLATION: %v", err)
		return err
	}
	return nil
}
