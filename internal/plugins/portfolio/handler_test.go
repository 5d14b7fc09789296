package portfolio

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/tradingsim/tradingsim/internal/plugins/auth"
)

// stubOneTapWidget hands out fixed widget data for page renders.
type stubOneTapWidget struct {
	data auth.OneTapData
	ok   bool
}

func (s *stubOneTapWidget) Prepare(c echo.Context) (auth.OneTapData, bool) {
	return s.data, s.ok
}

func TestLanding_RendersOneTapWidget(t *testing.T) {
	e := echo.New()
	widget := &stubOneTapWidget{
		data: auth.OneTapData{ClientID: "client-123", Nonce: "hashed-nonce"},
		ok:   true,
	}
	h := NewHandler(NewPortfolioService(), widget)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Landing(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-client_id="client-123"`) {
		t.Error("expected the One Tap prompt container on the landing page")
	}
	if !strings.Contains(body, `data-nonce="hashed-nonce"`) {
		t.Error("expected the hashed nonce on the prompt container")
	}
	if !strings.Contains(body, "accounts.google.com/gsi/client") {
		t.Error("expected the GSI script tag in the document head")
	}
}

func TestLanding_NoWidgetWhenUnconfigured(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewPortfolioService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Landing(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if strings.Contains(body, "g_id_onload") {
		t.Error("prompt container rendered without a configured widget")
	}
	if strings.Contains(body, "accounts.google.com/gsi/client") {
		t.Error("GSI script rendered without a configured widget")
	}
}

func TestExportCSV_Download(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewPortfolioService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/transactions/export", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ExportCSV(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); cd != `attachment; filename="transactions.csv"` {
		t.Errorf("unexpected Content-Disposition: %s", cd)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("unexpected Content-Type: %s", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "Date,Stock,Action,Quantity,Price\n") {
		t.Errorf("unexpected body start: %q", rec.Body.String()[:40])
	}
}

func TestExportCSV_CarriesFilter(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewPortfolioService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/transactions/export?action=sell", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ExportCSV(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 SELL row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "RELIANCE,SELL") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}

func TestTransactionsPage_RendersQueriedRows(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewPortfolioService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/transactions?action=buy&q=tcs", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Transactions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "TCS") {
		t.Error("expected TCS rows in the page")
	}
	if strings.Contains(body, "RELIANCE") {
		t.Error("filtered stock leaked into the page")
	}
	// Export link must carry the current view.
	if !strings.Contains(body, "/transactions/export?action=buy") {
		t.Error("export link lost the active filter")
	}
}
