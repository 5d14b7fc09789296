package portfolio

import (
	"strings"
	"testing"
)

func TestTransactions_DefaultNewestFirst(t *testing.T) {
	svc := NewPortfolioService()

	rows := svc.Transactions(TransactionQuery{})
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Date < rows[i].Date {
			t.Errorf("rows out of order: %s before %s", rows[i-1].Date, rows[i].Date)
		}
	}
	if rows[0].Stock != "TCS" || rows[0].Date != "2025-08-12" {
		t.Errorf("expected the 2025-08-12 TCS trade first, got %+v", rows[0])
	}
}

func TestTransactions_FilterBuy(t *testing.T) {
	svc := NewPortfolioService()

	rows := svc.Transactions(TransactionQuery{Filter: "buy"})
	if len(rows) != 4 {
		t.Fatalf("expected 4 BUY rows, got %d", len(rows))
	}
	for _, tx := range rows {
		if tx.Action != "BUY" {
			t.Errorf("unexpected action %s", tx.Action)
		}
	}
}

func TestTransactions_FilterSell(t *testing.T) {
	svc := NewPortfolioService()

	rows := svc.Transactions(TransactionQuery{Filter: "sell"})
	if len(rows) != 1 {
		t.Fatalf("expected 1 SELL row, got %d", len(rows))
	}
	if rows[0].Stock != "RELIANCE" {
		t.Errorf("expected RELIANCE, got %s", rows[0].Stock)
	}
}

func TestTransactions_UnknownFilterMeansAll(t *testing.T) {
	svc := NewPortfolioService()

	if got := len(svc.Transactions(TransactionQuery{Filter: "bogus"})); got != 5 {
		t.Errorf("expected 5 rows for unknown filter, got %d", got)
	}
	if got := len(svc.Transactions(TransactionQuery{Filter: "all"})); got != 5 {
		t.Errorf("expected 5 rows for all, got %d", got)
	}
}

func TestTransactions_SearchCaseInsensitive(t *testing.T) {
	svc := NewPortfolioService()

	rows := svc.Transactions(TransactionQuery{Search: "tc"})
	if len(rows) != 2 {
		t.Fatalf("expected 2 TCS rows, got %d", len(rows))
	}
	for _, tx := range rows {
		if tx.Stock != "TCS" {
			t.Errorf("unexpected stock %s", tx.Stock)
		}
	}

	if got := len(svc.Transactions(TransactionQuery{Search: "RELIANCE"})); got != 1 {
		t.Errorf("expected 1 RELIANCE row, got %d", got)
	}
	if got := len(svc.Transactions(TransactionQuery{Search: "  tcs  "})); got != 2 {
		t.Errorf("expected trimmed search to match, got %d", got)
	}
	if got := len(svc.Transactions(TransactionQuery{Search: "zzz"})); got != 0 {
		t.Errorf("expected no rows, got %d", got)
	}
}

func TestTransactions_SortByPrice(t *testing.T) {
	svc := NewPortfolioService()

	rows := svc.Transactions(TransactionQuery{Sort: "price"})
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Price < rows[i].Price {
			t.Errorf("prices out of order: %.2f before %.2f", rows[i-1].Price, rows[i].Price)
		}
	}
	if rows[0].Price != 3500.00 {
		t.Errorf("expected highest price 3500.00 first, got %.2f", rows[0].Price)
	}
}

func TestTransactions_FilterAndSearchCompose(t *testing.T) {
	svc := NewPortfolioService()

	rows := svc.Transactions(TransactionQuery{Filter: "buy", Search: "tcs"})
	if len(rows) != 2 {
		t.Fatalf("expected 2 TCS BUY rows, got %d", len(rows))
	}
}

func TestTransactions_BookNotMutated(t *testing.T) {
	svc := NewPortfolioService()

	// A price sort of the result must not reorder the backing book.
	_ = svc.Transactions(TransactionQuery{Sort: "price"})
	if transactionBook[0].ID != 1 || transactionBook[4].ID != 5 {
		t.Error("backing dataset was reordered")
	}
}

func TestTransactionTotal(t *testing.T) {
	tx := Transaction{Quantity: 10, Price: 3500.00}
	if tx.Total() != 35000.00 {
		t.Errorf("expected 35000.00, got %.2f", tx.Total())
	}
}

func TestExportCSV_ShapeAndHeader(t *testing.T) {
	svc := NewPortfolioService()

	data, err := svc.ExportCSV(TransactionQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header + 5 rows, got %d lines", len(lines))
	}
	if lines[0] != "Date,Stock,Action,Quantity,Price" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if lines[1] != "2025-08-12,TCS,BUY,10,3500.00" {
		t.Errorf("unexpected first row: %s", lines[1])
	}
}

func TestExportCSV_RespectsQuery(t *testing.T) {
	svc := NewPortfolioService()

	data, err := svc.ExportCSV(TransactionQuery{Filter: "buy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 BUY rows, got %d lines", len(lines))
	}
	for _, line := range lines[1:] {
		if !strings.Contains(line, ",BUY,") {
			t.Errorf("expected only BUY rows, got: %s", line)
		}
	}
}

func TestInvestments(t *testing.T) {
	svc := NewPortfolioService()

	rows := svc.Investments()
	if len(rows) != 3 {
		t.Fatalf("expected 3 holdings, got %d", len(rows))
	}
	if rows[0].Stock != "TCS" || rows[0].PL != 1000.00 {
		t.Errorf("unexpected first holding: %+v", rows[0])
	}

	// Callers get a copy.
	rows[0].Stock = "MUTATED"
	if investmentBook[0].Stock != "TCS" {
		t.Error("backing dataset was mutated")
	}
}
