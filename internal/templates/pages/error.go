// Package pages holds the shared top-level page components that don't
// belong to any single plugin.
package pages

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/tradingsim/tradingsim/internal/templates/layouts"
)

// ErrorPage renders the shared error page for the given status code and
// user-safe message. Rendered by the global error handler.
func ErrorPage(code int, message string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		home := "/"
		label := "Back to start"
		if layouts.IsAuthenticated(ctx) {
			home = "/home"
			label = "Back to dashboard"
		}
		_, err := fmt.Fprintf(w,
			"<div class=\"error-box\"><h1>%d</h1><p>%s</p><a class=\"btn btn-primary\" href=\"%s\">%s</a></div>",
			code, templ.EscapeString(message), home, label)
		return err
	})
	return layouts.AuthShell(layouts.Page{Title: fmt.Sprintf("Error %d", code)}, content)
}
