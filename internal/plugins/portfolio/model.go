// Package portfolio serves the signed-in dashboard pages: the welcome
// dashboard, the holdings table, and the transaction history with
// filtering, sorting, search, and CSV export. The datasets are the fixed
// simulation book every account sees.
package portfolio

// Transaction is one row of the simulated trade history.
type Transaction struct {
	ID       int
	Date     string // ISO date, e.g. "2025-08-12"
	Stock    string
	Action   string // "BUY" or "SELL"
	Quantity int
	Price    float64
}

// Total is the row's notional value.
func (t Transaction) Total() float64 {
	return float64(t.Quantity) * t.Price
}

// Investment is one row of the simulated holdings table.
type Investment struct {
	Date         string
	Stock        string
	Quantity     int
	BuyPrice     float64
	CurrentPrice float64
	PL           float64
}

// transactionBook is the fixed simulated trade history, newest first.
var transactionBook = []Transaction{
	{ID: 1, Date: "2025-08-12", Stock: "TCS", Action: "BUY", Quantity: 10, Price: 3500.00},
	{ID: 2, Date: "2025-08-11", Stock: "RELIANCE", Action: "SELL", Quantity: 5, Price: 2900.50},
	{ID: 3, Date: "2025-08-10", Stock: "INFY", Action: "BUY", Quantity: 15, Price: 1550.75},
	{ID: 4, Date: "2025-08-09", Stock: "TCS", Action: "BUY", Quantity: 5, Price: 3450.00},
	{ID: 5, Date: "2025-08-08", Stock: "WIPRO", Action: "BUY", Quantity: 20, Price: 400.25},
}

// investmentBook is the fixed simulated holdings table.
var investmentBook = []Investment{
	{Date: "2025-08-12", Stock: "TCS", Quantity: 10, BuyPrice: 3500.00, CurrentPrice: 3600.00, PL: 1000.00},
	{Date: "2025-08-11", Stock: "RELIANCE", Quantity: 5, BuyPrice: 2800.50, CurrentPrice: 2900.50, PL: 500.00},
	{Date: "2025-08-10", Stock: "INFY", Quantity: 15, BuyPrice: 1500.75, CurrentPrice: 1550.75, PL: 750.00},
}

// TransactionQuery is the user's view over the trade history.
type TransactionQuery struct {
	// Filter is "all", "buy", or "sell". Anything else reads as "all".
	Filter string

	// Sort is "date" (newest first, the default) or "price" (highest first).
	Sort string

	// Search is a case-insensitive substring match on the stock symbol.
	Search string
}
