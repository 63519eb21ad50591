package handler

import (
	"strings"
	"testing"

	"github.com/floradistro/websitev2-sub018/internal/testutil"
)

type auditResponse struct {
	Checked    int      `json:"checked"`
	Passed     int      `json:"passed"`
	Failed     int      `json:"failed"`
	Violations []string `json:"violations"`
}

func TestAuditSessions_AllConsistent(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.openSession(t, 1, 10, 100)
	testutil.SeedInventory(t, env.DB, 501, 10, 20)
	if _, _, code := env.sale(t, sessionID, 1, 10, 501, 2, 10.0, 0, "cash"); code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}

	c, rec := testutil.NewContext(t, env.Echo, "POST", "/v1/maintenance/audit-sessions", nil)
	if err := env.Maintenance.AuditSessions(c); err != nil {
		t.Fatalf("AuditSessions returned error: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp auditResponse
	testutil.Decode(t, rec, &resp)
	if resp.Checked != 1 || resp.Passed != 1 || resp.Failed != 0 {
		t.Errorf("expected 1/1/0, got %+v", resp)
	}
}

func TestAuditSessions_DetectsDivergence(t *testing.T) {
	env := newTestEnv(t)
	goodID := env.openSession(t, 1, 10, 100)
	badID := env.openSession(t, 1, 20, 100)
	testutil.SeedInventory(t, env.DB, 501, 10, 20)
	testutil.SeedInventory(t, env.DB, 501, 20, 20)

	if _, _, code := env.sale(t, goodID, 1, 10, 501, 1, 10.0, 0, "cash"); code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}
	if _, _, code := env.sale(t, badID, 1, 20, 501, 1, 10.0, 0, "cash"); code != 201 {
		t.Fatalf("expected 201, got %d", code)
	}
	// Corrupt one session's stored counters behind the engine's back.
	if _, err := env.DB.Exec(`UPDATE pos_sessions SET total_sales = total_sales + 50 WHERE id = ?`, badID); err != nil {
		t.Fatalf("failed to corrupt counters: %v", err)
	}

	c, rec := testutil.NewContext(t, env.Echo, "POST", "/v1/maintenance/audit-sessions", nil)
	if err := env.Maintenance.AuditSessions(c); err != nil {
		t.Fatalf("AuditSessions returned error: %v", err)
	}
	var resp auditResponse
	testutil.Decode(t, rec, &resp)

	if resp.Checked != 2 || resp.Passed != 1 || resp.Failed != 1 {
		t.Fatalf("expected 2 checked, 1 passed, 1 failed, got %+v", resp)
	}
	if len(resp.Violations) != 1 || !strings.Contains(resp.Violations[0], "counters inconsistent") {
		t.Errorf("unexpected violations: %v", resp.Violations)
	}

	// The audit reports, it never repairs.
	s := testutil.Session(t, env.DB, badID)
	if s.TotalSales != 60.0 {
		t.Errorf("expected corrupted value left in place at 60, got %v", s.TotalSales)
	}
}
