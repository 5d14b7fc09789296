package auth

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/tradingsim/tradingsim/internal/templates/layouts"
)

// LoginPageData carries everything the login page renders.
type LoginPageData struct {
	CSRFToken string
	Email     string // Preserved form value after a failed attempt.
	Error     string
	Success   string
	OneTap    OneTapData
	HasOneTap bool
}

// SignupPageData carries everything the signup page renders.
type SignupPageData struct {
	CSRFToken string
	Form      *SignupRequest // Preserved values after a failed attempt.
	Error     string
	OneTap    OneTapData
	HasOneTap bool
}

// LoginPage renders the sign-in page: the email/password form, the
// one-click demo login, and the Google widget when configured.
func LoginPage(d LoginPageData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<h1>Sign in</h1>"); err != nil {
			return err
		}
		if err := writeBanner(w, d.Error, d.Success); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w,
			"<form method=\"post\" action=\"/login\" class=\"auth-form\">"+
				"<input type=\"hidden\" name=\"csrf_token\" value=\"%s\">"+
				"<label>Email<input type=\"email\" name=\"email\" value=\"%s\" required autofocus></label>"+
				"<label>Password<input type=\"password\" name=\"password\" required></label>"+
				"<button type=\"submit\" class=\"btn btn-primary\">Sign in</button>"+
				"</form>",
			templ.EscapeString(d.CSRFToken), templ.EscapeString(d.Email)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w,
			"<form method=\"post\" action=\"/login/demo\" class=\"demo-form\">"+
				"<input type=\"hidden\" name=\"csrf_token\" value=\"%s\">"+
				"<button type=\"submit\" class=\"btn btn-secondary\">Try the demo account</button>"+
				"</form>",
			templ.EscapeString(d.CSRFToken)); err != nil {
			return err
		}
		if d.HasOneTap {
			if err := writeGoogleWidget(w, d.OneTap); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w,
			"<p class=\"auth-links\"><a href=\"/forgot-password\">Forgot your password?</a></p>"+
				"<p class=\"auth-links\">New here? <a href=\"/signup\">Create an account</a></p>")
		return err
	})
	return layouts.AuthShell(layouts.Page{Title: "Sign in", GoogleGSI: d.HasOneTap}, content)
}

// SignupPage renders the account creation form with the live strength
// meter hook and the terms checkbox.
func SignupPage(d SignupPageData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var email, fullName string
		if d.Form != nil {
			email = d.Form.Email
			fullName = d.Form.FullName
		}

		if _, err := io.WriteString(w, "<h1>Create your account</h1>"); err != nil {
			return err
		}
		if err := writeBanner(w, d.Error, ""); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w,
			"<form method=\"post\" action=\"/signup\" class=\"auth-form\" data-strength-form>"+
				"<input type=\"hidden\" name=\"csrf_token\" value=\"%s\">"+
				"<label>Full name<input type=\"text\" name=\"full_name\" value=\"%s\" required autofocus></label>"+
				"<label>Email<input type=\"email\" name=\"email\" value=\"%s\" required></label>"+
				"<label>Password<input type=\"password\" name=\"password\" data-strength-input required></label>"+
				"<div class=\"strength-meter\" data-strength-meter aria-hidden=\"true\"></div>"+
				"<label>Confirm password<input type=\"password\" name=\"confirm\" required></label>"+
				"<label class=\"checkbox\"><input type=\"checkbox\" name=\"terms\"> I agree to the terms of service</label>"+
				"<button type=\"submit\" class=\"btn btn-primary\">Create account</button>"+
				"</form>",
			templ.EscapeString(d.CSRFToken), templ.EscapeString(fullName), templ.EscapeString(email)); err != nil {
			return err
		}
		if d.HasOneTap {
			if err := writeGoogleWidget(w, d.OneTap); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "<p class=\"auth-links\">Already registered? <a href=\"/login\">Sign in</a></p>")
		return err
	})
	return layouts.AuthShell(layouts.Page{Title: "Sign up", GoogleGSI: d.HasOneTap}, content)
}

// SignupSentPage tells a new user to check their inbox for the
// confirmation link.
func SignupSentPage(email string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"<h1>Check your inbox</h1>"+
				"<p>We sent a confirmation link to <strong>%s</strong>. "+
				"Open it to activate your account.</p>"+
				"<p class=\"auth-links\"><a href=\"/login\">Back to sign in</a></p>",
			templ.EscapeString(email))
		return err
	})
	return layouts.AuthShell(layouts.Page{Title: "Check your inbox"}, content)
}

// ForgotPasswordPage renders the reset request form.
func ForgotPasswordPage(csrfToken, email, errMsg string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<h1>Reset your password</h1><p>Enter your email and we'll send you a reset link.</p>"); err != nil {
			return err
		}
		if err := writeBanner(w, errMsg, ""); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w,
			"<form method=\"post\" action=\"/forgot-password\" class=\"auth-form\">"+
				"<input type=\"hidden\" name=\"csrf_token\" value=\"%s\">"+
				"<label>Email<input type=\"email\" name=\"email\" value=\"%s\" required autofocus></label>"+
				"<button type=\"submit\" class=\"btn btn-primary\">Send reset link</button>"+
				"</form>"+
				"<p class=\"auth-links\"><a href=\"/login\">Back to sign in</a></p>",
			templ.EscapeString(csrfToken), templ.EscapeString(email))
		return err
	})
	return layouts.AuthShell(layouts.Page{Title: "Forgot password"}, content)
}

// ForgotPasswordSentPage confirms the request without revealing whether
// the address is registered.
func ForgotPasswordSentPage(email string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"<h1>Check your inbox</h1>"+
				"<p>If <strong>%s</strong> is registered, a reset link is on its way. "+
				"The link expires in one hour.</p>"+
				"<p class=\"auth-links\"><a href=\"/forgot-password\">Try another address</a> · <a href=\"/login\">Back to sign in</a></p>",
			templ.EscapeString(email))
		return err
	})
	return layouts.AuthShell(layouts.Page{Title: "Check your inbox"}, content)
}

// ResetPasswordPage renders the new-password form for a recovery session.
func ResetPasswordPage(csrfToken, email, errMsg string) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<h1>Choose a new password</h1><p>Setting a new password for <strong>%s</strong>.</p>", templ.EscapeString(email)); err != nil {
			return err
		}
		if err := writeBanner(w, errMsg, ""); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w,
			"<form method=\"post\" action=\"/reset-password\" class=\"auth-form\" data-strength-form>"+
				"<input type=\"hidden\" name=\"csrf_token\" value=\"%s\">"+
				"<label>New password<input type=\"password\" name=\"password\" data-strength-input required autofocus></label>"+
				"<div class=\"strength-meter\" data-strength-meter aria-hidden=\"true\"></div>"+
				"<label>Confirm password<input type=\"password\" name=\"confirm\" required></label>"+
				"<button type=\"submit\" class=\"btn btn-primary\">Update password</button>"+
				"</form>",
			templ.EscapeString(csrfToken))
		return err
	})
	return layouts.AuthShell(layouts.Page{Title: "New password"}, content)
}

// DelayedRedirectPage shows a short explanation and then navigates to
// target after the given number of seconds via a meta refresh. Used where
// the user should read the message before moving on (expired links,
// password updated).
func DelayedRedirectPage(title, message, target string, seconds int) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			"<h1>%s</h1><p>%s</p><p class=\"auth-links\"><a href=\"%s\">Continue now</a></p>",
			templ.EscapeString(title), templ.EscapeString(message), templ.EscapeString(target))
		return err
	})
	return layouts.AuthShell(layouts.Page{
		Title:       title,
		MetaRefresh: fmt.Sprintf("%d;url=%s", seconds, target),
	}, content)
}

// writeBanner renders the inline error/success banners shared by the auth
// forms. Either message may be empty.
func writeBanner(w io.Writer, errMsg, successMsg string) error {
	if errMsg != "" {
		if _, err := fmt.Fprintf(w, "<div class=\"flash flash-error\" role=\"alert\">%s</div>", templ.EscapeString(errMsg)); err != nil {
			return err
		}
	}
	if successMsg != "" {
		if _, err := fmt.Fprintf(w, "<div class=\"flash flash-success\" role=\"status\">%s</div>", templ.EscapeString(successMsg)); err != nil {
			return err
		}
	}
	return nil
}

// writeGoogleWidget renders the Google Identity Services sign-in button.
// The credential lands in the page script's handleGoogleCredential, which
// posts it to /auth/google with the CSRF header.
func writeGoogleWidget(w io.Writer, d OneTapData) error {
	_, err := fmt.Fprintf(w,
		"<div class=\"google-signin\">"+
			"<div id=\"g_id_onload\" data-client_id=\"%s\" data-nonce=\"%s\" data-callback=\"handleGoogleCredential\" data-auto_prompt=\"true\"></div>"+
			"<div class=\"g_id_signin\" data-type=\"standard\" data-theme=\"outline\" data-text=\"continue_with\" data-shape=\"rectangular\"></div>"+
			"</div>",
		templ.EscapeString(d.ClientID), templ.EscapeString(d.Nonce))
	return err
}
