package portfolio

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/tradingsim/tradingsim/internal/plugins/auth"
	"github.com/tradingsim/tradingsim/internal/templates/layouts"
)

// LandingPage is the public marketing page. When One Tap is configured
// the Google prompt is armed for the anonymous visitor (no button -- the
// prompt surfaces on its own).
func LandingPage(oneTap auth.OneTapData, hasOneTap bool) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if hasOneTap {
			if _, err := fmt.Fprintf(w,
				"<div id=\"g_id_onload\" data-client_id=\"%s\" data-nonce=\"%s\" data-callback=\"handleGoogleCredential\" data-auto_prompt=\"true\"></div>",
				templ.EscapeString(oneTap.ClientID), templ.EscapeString(oneTap.Nonce)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w,
			"<main class=\"landing\">"+
				"<header class=\"landing-nav\"><span class=\"brand\">TradingSim</span>"+
				"<nav><a class=\"btn btn-ghost\" href=\"/login\">Sign in</a>"+
				"<a class=\"btn btn-primary\" href=\"/signup\">Get started</a></nav></header>"+
				"<section class=\"hero\">"+
				"<h1>Learn to trade without risking a rupee</h1>"+
				"<p>Practice buying and selling stocks with a simulated portfolio, "+
				"track your virtual profits, and build confidence before you invest for real.</p>"+
				"<div class=\"hero-actions\">"+
				"<a class=\"btn btn-primary\" href=\"/signup\">Create a free account</a>"+
				"<a class=\"btn btn-secondary\" href=\"/login\">Try the demo</a>"+
				"</div></section>"+
				"<section class=\"features\">"+
				"<div class=\"feature\"><h2>Simulated portfolio</h2><p>A realistic holdings book with live-style profit and loss.</p></div>"+
				"<div class=\"feature\"><h2>Trade history</h2><p>Filter, search, and export your transactions any time.</p></div>"+
				"<div class=\"feature\"><h2>Zero risk</h2><p>Every trade is virtual. Every lesson is real.</p></div>"+
				"</section></main>")
		return err
	})
	return layouts.Document(layouts.Page{Title: "Virtual trading practice", GoogleGSI: hasOneTap}, body)
}

// HomePage is the signed-in welcome dashboard.
func HomePage(name string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"<section class=\"welcome\">"+
				"<h1>Welcome, %s!</h1>"+
				"<p>Thanks for joining TradingSim. Your personalized investment dashboard "+
				"is under construction, but your simulated portfolio is already live.</p>"+
				"<div class=\"welcome-links\">"+
				"<a class=\"btn btn-primary\" href=\"/investments\">View my investments</a>"+
				"<a class=\"btn btn-secondary\" href=\"/transactions\">Transaction history</a>"+
				"</div></section>",
			templ.EscapeString(name))
		return err
	})
	return layouts.AppShell(layouts.Page{Title: "Home"}, content)
}

// InvestmentsPage renders the holdings table.
func InvestmentsPage(rows []Investment) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w,
			"<h1>My Investments</h1>"+
				"<table class=\"data-table\"><thead><tr>"+
				"<th>Date/Time</th><th>Stock</th><th>Quantity</th>"+
				"<th>Buy Price</th><th>Current Price</th><th>P/L</th>"+
				"</tr></thead><tbody>"); err != nil {
			return err
		}
		for _, inv := range rows {
			plClass := "gain"
			if inv.PL < 0 {
				plClass = "loss"
			}
			if _, err := fmt.Fprintf(w,
				"<tr><td>%s</td><td>%s</td><td>%d</td><td>%.2f</td><td>%.2f</td><td class=\"%s\">%.2f</td></tr>",
				templ.EscapeString(inv.Date), templ.EscapeString(inv.Stock),
				inv.Quantity, inv.BuyPrice, inv.CurrentPrice, plClass, inv.PL); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table>")
		return err
	})
	return layouts.AppShell(layouts.Page{Title: "Investments"}, content)
}

// TransactionsPage renders the trade history with its filter controls.
// The controls are a plain GET form so every view has a URL, and the
// export link carries the same query.
func TransactionsPage(query TransactionQuery, rows []Transaction) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		exportURL := fmt.Sprintf("/transactions/export?action=%s&sort=%s&q=%s",
			templ.EscapeString(query.Filter), templ.EscapeString(query.Sort), templ.EscapeString(query.Search))

		if _, err := fmt.Fprintf(w,
			"<div class=\"page-head\"><h1>Transaction History</h1>"+
				"<a class=\"btn btn-primary\" href=\"%s\" download>Export CSV</a></div>", exportURL); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w,
			"<form method=\"get\" action=\"/transactions\" class=\"filter-bar\">"+
				"<input type=\"text\" name=\"q\" value=\"%s\" placeholder=\"Search by stock...\">"+
				"<select name=\"action\">%s%s%s</select>"+
				"<select name=\"sort\">%s%s</select>"+
				"<button type=\"submit\" class=\"btn btn-secondary\">Apply</button>"+
				"</form>",
			templ.EscapeString(query.Search),
			option("all", "All Actions", query.Filter),
			option("buy", "Buy Only", query.Filter),
			option("sell", "Sell Only", query.Filter),
			option("date", "Sort by Date", query.Sort),
			option("price", "Sort by Price", query.Sort)); err != nil {
			return err
		}

		if _, err := io.WriteString(w,
			"<table class=\"data-table\"><thead><tr>"+
				"<th>Date</th><th>Stock</th><th>Action</th><th>Quantity</th><th>Price</th><th>Total</th>"+
				"</tr></thead><tbody>"); err != nil {
			return err
		}
		for _, tx := range rows {
			actionClass := "gain"
			if tx.Action == "SELL" {
				actionClass = "loss"
			}
			if _, err := fmt.Fprintf(w,
				"<tr><td>%s</td><td>%s</td><td class=\"%s\">%s</td><td>%d</td><td>%.2f</td><td>%.2f</td></tr>",
				templ.EscapeString(tx.Date), templ.EscapeString(tx.Stock),
				actionClass, templ.EscapeString(tx.Action),
				tx.Quantity, tx.Price, tx.Total()); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table>")
		return err
	})
	return layouts.AppShell(layouts.Page{Title: "Transactions"}, content)
}

// option renders a select option, marking it selected when it matches the
// current value.
func option(value, label, current string) string {
	selected := ""
	if value == current || (current == "" && (value == "all" || value == "date")) {
		selected = " selected"
	}
	return fmt.Sprintf("<option value=\"%s\"%s>%s</option>", value, selected, label)
}
