package layouts

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Page holds document-level options shared by every layout.
type Page struct {
	// Title is the browser tab title; "TradingSim" is appended.
	Title string

	// MetaRefresh, when non-empty, adds a meta refresh tag. The value is
	// the raw content attribute, e.g. "3;url=/forgot-password".
	MetaRefresh string

	// GoogleGSI includes the Google Identity Services script for pages
	// that render the sign-in widget.
	GoogleGSI bool
}

// navLink is one entry in the dashboard navigation bar.
type navLink struct {
	Path  string
	Label string
}

var dashboardNav = []navLink{
	{Path: "/home", Label: "Home"},
	{Path: "/investments", Label: "Investments"},
	{Path: "/transactions", Label: "Transactions"},
	{Path: "/profile", Label: "Profile"},
}

// Document renders the full HTML document around a body component.
func Document(p Page, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := "TradingSim"
		if p.Title != "" {
			title = templ.EscapeString(p.Title) + " · TradingSim"
		}

		if _, err := io.WriteString(w, "<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">"); err != nil {
			return err
		}
		if p.MetaRefresh != "" {
			if _, err := fmt.Fprintf(w, "<meta http-equiv=\"refresh\" content=\"%s\">", templ.EscapeString(p.MetaRefresh)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "<title>%s</title><link rel=\"stylesheet\" href=\"/static/css/app.css\"><link rel=\"icon\" href=\"/favicon.ico\">", title); err != nil {
			return err
		}
		if p.GoogleGSI {
			if _, err := io.WriteString(w, "<script src=\"https://accounts.google.com/gsi/client\" async defer></script>"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "<script src=\"/static/js/app.js\" defer></script></head><body>"); err != nil {
			return err
		}

		if body != nil {
			if err := body.Render(ctx, w); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

// AuthShell wraps content in the centered single-card layout used by the
// login, signup, and password pages.
func AuthShell(p Page, content templ.Component) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<main class=\"auth-shell\"><div class=\"auth-card\"><a class=\"auth-brand\" href=\"/\">TradingSim</a>"); err != nil {
			return err
		}
		if err := Flash().Render(ctx, w); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</div></main>")
		return err
	})
	return Document(p, body)
}

// AppShell wraps content in the dashboard layout: top navigation with the
// section links, the signed-in user's name, and a logout button.
func AppShell(p Page, content templ.Component) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		active := GetActivePath(ctx)

		if _, err := io.WriteString(w, "<header class=\"topnav\"><a class=\"brand\" href=\"/home\">TradingSim</a><nav>"); err != nil {
			return err
		}
		for _, link := range dashboardNav {
			class := "nav-link"
			if link.Path == active {
				class = "nav-link active"
			}
			if _, err := fmt.Fprintf(w, "<a class=\"%s\" href=\"%s\">%s</a>", class, link.Path, link.Label); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w,
			"</nav><div class=\"nav-user\"><span class=\"nav-name\">%s</span><form method=\"post\" action=\"/logout\"><input type=\"hidden\" name=\"csrf_token\" value=\"%s\"><button type=\"submit\" class=\"btn btn-ghost\">Sign out</button></form></div></header>",
			templ.EscapeString(GetUserName(ctx)), templ.EscapeString(GetCSRFToken(ctx))); err != nil {
			return err
		}

		if _, err := io.WriteString(w, "<main class=\"page\">"); err != nil {
			return err
		}
		if err := Flash().Render(ctx, w); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</main>")
		return err
	})
	return Document(p, body)
}

// Flash renders the per-request flash messages, if any were set.
func Flash() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if msg := GetFlashSuccess(ctx); msg != "" {
			if _, err := fmt.Fprintf(w, "<div class=\"flash flash-success\" role=\"status\">%s</div>", templ.EscapeString(msg)); err != nil {
				return err
			}
		}
		if msg := GetFlashError(ctx); msg != "" {
			if _, err := fmt.Fprintf(w, "<div class=\"flash flash-error\" role=\"alert\">%s</div>", templ.EscapeString(msg)); err != nil {
				return err
			}
		}
		return nil
	})
}
