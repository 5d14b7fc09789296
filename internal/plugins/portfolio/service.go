package portfolio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// csvHeader is the export's first row, in display-column order.
var csvHeader = []string{"Date", "Stock", "Action", "Quantity", "Price"}

// PortfolioService exposes the read-only simulation datasets.
type PortfolioService interface {
	// Transactions returns the trade history shaped by the query.
	Transactions(query TransactionQuery) []Transaction

	// ExportCSV renders the queried trade history as CSV: a header row
	// plus one row per transaction, same rows the table shows.
	ExportCSV(query TransactionQuery) ([]byte, error)

	// Investments returns the holdings table.
	Investments() []Investment
}

type portfolioService struct{}

// NewPortfolioService creates the portfolio service.
func NewPortfolioService() PortfolioService {
	return &portfolioService{}
}

// Transactions filters, searches, and sorts a copy of the book. The
// backing dataset is never mutated or reordered.
func (s *portfolioService) Transactions(query TransactionQuery) []Transaction {
	filter := strings.ToLower(query.Filter)
	search := strings.ToLower(strings.TrimSpace(query.Search))

	result := make([]Transaction, 0, len(transactionBook))
	for _, tx := range transactionBook {
		if filter == "buy" || filter == "sell" {
			if strings.ToLower(tx.Action) != filter {
				continue
			}
		}
		if search != "" && !strings.Contains(strings.ToLower(tx.Stock), search) {
			continue
		}
		result = append(result, tx)
	}

	switch query.Sort {
	case "price":
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Price > result[j].Price
		})
	default:
		// ISO dates order lexicographically; newest first.
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Date > result[j].Date
		})
	}

	return result
}

// ExportCSV writes the header plus the queried rows. Prices carry two
// decimals, matching the on-page table.
func (s *portfolioService) ExportCSV(query TransactionQuery) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, tx := range s.Transactions(query) {
		row := []string{
			tx.Date,
			tx.Stock,
			tx.Action,
			strconv.Itoa(tx.Quantity),
			strconv.FormatFloat(tx.Price, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Investments returns a copy of the holdings table.
func (s *portfolioService) Investments() []Investment {
	out := make([]Investment, len(investmentBook))
	copy(out, investmentBook)
	return out
}
