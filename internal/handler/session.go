package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/floradistro/websitev2-sub018/internal/lock"
	"github.com/floradistro/websitev2-sub018/internal/model"
	"github.com/floradistro/websitev2-sub018/internal/repository"
)

// SessionHandler owns the register→session mapping. Its central
// guarantee is that a register never ends up with two open sessions,
// no matter how many terminals ask for one at the same time: the
// check-or-insert sequence runs under an exclusive per-register lock
// held only for the duration of that sequence, never for the life of
// the session.
type SessionHandler struct {
	SessionRepo  *repository.SessionRepo
	RegisterRepo *repository.RegisterRepo
	Locks        lock.Manager

	// Now is the clock; tests substitute a fixed one.
	Now func() time.Time
}

// NewSessionHandler constructs a SessionHandler with the provided
// dependencies. All dependencies must be non-nil.
func NewSessionHandler(sessionRepo *repository.SessionRepo, registerRepo *repository.RegisterRepo, locks lock.Manager) *SessionHandler {
	if sessionRepo == nil || registerRepo == nil || locks == nil {
		panic("nil dependency passed to NewSessionHandler")
	}
	return &SessionHandler{
		SessionRepo:  sessionRepo,
		RegisterRepo: registerRepo,
		Locks:        locks,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// sessionLabel builds the human-readable display label. Uniqueness
// is not required beyond serving as a label.
func sessionLabel(t time.Time) string {
	return t.UTC().Format("S-20060102-150405")
}

// GetOrCreate handles POST /v1/sessions/get-or-create. If the
// register already has an open session it is returned unchanged;
// otherwise exactly one new session with zeroed counters is created,
// even under concurrent calls for the same register. The operator is
// taken from the JWT subject.
func (h *SessionHandler) GetOrCreate(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		RegisterID  uint64  `json:"registerId"`
		LocationID  uint64  `json:"locationId"`
		VendorID    uint64  `json:"vendorId"`
		OpeningCash float64 `json:"openingCash"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.RegisterID == 0 || body.LocationID == 0 || body.VendorID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "registerId, locationId and vendorId are required"})
	}
	if body.OpeningCash < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "openingCash must not be negative"})
	}
	ctx := c.Request().Context()
	if _, err := h.RegisterRepo.GetByID(ctx, body.RegisterID); err != nil {
		if errors.Is(err, repository.ErrRegisterNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "register not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	// Fast path: an open session is an idempotent read, no lock needed.
	if s, err := h.SessionRepo.GetOpenByRegister(ctx, body.RegisterID); err == nil {
		return c.JSON(http.StatusOK, echo.Map{"session": s})
	} else if !errors.Is(err, repository.ErrSessionNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	// No open session: serialize the check-or-insert per register.
	release, err := h.Locks.Acquire(ctx, lock.ResourceRegister, strconv.FormatUint(body.RegisterID, 10))
	if err != nil {
		return lockFailed(c, err)
	}
	defer release()

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

	// Re-check under the lock: a contending terminal may have won.
	s, err := h.SessionRepo.GetOpenByRegisterTx(ctx, tx, body.RegisterID)
	if err == nil {
		return c.JSON(http.StatusOK, echo.Map{"session": s})
	}
	if !errors.Is(err, repository.ErrSessionNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	now := h.Now()
	s = &model.Session{
		SessionLabel: sessionLabel(now),
		RegisterID:   body.RegisterID,
		LocationID:   body.LocationID,
		VendorID:     body.VendorID,
		UserID:       userID,
		OpeningCash:  body.OpeningCash,
		OpenedAt:     now,
	}
	if err := h.SessionRepo.CreateTx(ctx, tx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create session"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"session": s})
}

// GetByID handles GET /v1/sessions/:id.
func (h *SessionHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	s, err := h.SessionRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"session": s})
}

// GetByRegister handles GET /v1/registers/:id/session, returning the
// register's open session when one exists.
func (h *SessionHandler) GetByRegister(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid register id"})
	}
	s, err := h.SessionRepo.GetOpenByRegister(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no open session for register"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"session": s})
}

// Close handles POST /v1/sessions/:id/close. The drawer count is
// compared against opening cash plus accumulated cash tender and the
// over/short difference is reported alongside the closed session.
func (h *SessionHandler) Close(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body struct {
		CountedCash float64 `json:"countedCash"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.CountedCash < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "countedCash must not be negative"})
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

	if err := h.SessionRepo.CloseTx(ctx, tx, id, h.Now()); err != nil {
		if errors.Is(err, repository.ErrSessionClosed) {
			// Zero rows affected: missing or already closed.
			if _, lookupErr := h.SessionRepo.GetByIDTx(ctx, tx, id); errors.Is(lookupErr, repository.ErrSessionNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
			}
			return c.JSON(http.StatusConflict, echo.Map{"error": "session already closed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to close session"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	s, err := h.SessionRepo.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}
	expected := s.OpeningCash + s.TotalCash
	overShort := body.CountedCash - expected
	return c.JSON(http.StatusOK, echo.Map{
		"session":      s,
		"expectedCash": roundCents(expected),
		"countedCash":  body.CountedCash,
		"overShort":    roundCents(overShort),
	})
}

// roundCents normalizes a float amount to two decimal places for
// display, keeping drawer math readable.
func roundCents(v float64) float64 {
	s := fmt.Sprintf("%.2f", v)
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
