package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders returns middleware that sets security-related HTTP headers
// on every response. These headers protect against common web attacks even
// if application-level vulnerabilities exist.
//
// TradingSim is expected to run behind a TLS-terminating reverse proxy.
// These headers provide defense-in-depth at the application layer.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			// Content-Security-Policy: restrict what resources the browser can load.
			// 'self' allows resources from the same origin only.
			// 'unsafe-inline' is needed for the small inline scripts on auth pages.
			// accounts.google.com is allowed for the GSI One Tap widget (script,
			// iframe, and credential exchange).
			h.Set("Content-Security-Policy",
				"default-src 'self'; "+
					"script-src 'self' 'unsafe-inline' https://accounts.google.com; "+
					"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; "+
					"img-src 'self' data:; "+
					"font-src 'self' https://fonts.gstatic.com; "+
					"connect-src 'self' https://accounts.google.com; "+
					"frame-src https://accounts.google.com; "+
					"frame-ancestors 'none'; "+
					"base-uri 'self'; "+
					"form-action 'self'",
			)

			// Strict-Transport-Security: enforce HTTPS for 1 year including
			// subdomains. TLS terminates at the proxy; this header tells
			// browsers to always use HTTPS for subsequent requests.
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

			// X-Content-Type-Options: prevent MIME type sniffing.
			h.Set("X-Content-Type-Options", "nosniff")

			// X-Frame-Options: prevent clickjacking (redundant with CSP frame-ancestors
			// but some older browsers only support this header).
			h.Set("X-Frame-Options", "DENY")

			// Referrer-Policy: limit referrer information leaked to external sites.
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Permissions-Policy: disable browser features we don't use.
			h.Set("Permissions-Policy",
				"camera=(), microphone=(), geolocation=(), payment=()",
			)

			return next(c)
		}
	}
}
