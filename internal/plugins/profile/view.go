package profile

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/tradingsim/tradingsim/internal/plugins/auth"
	"github.com/tradingsim/tradingsim/internal/templates/layouts"
)

// ProfilePageData feeds the settings page.
type ProfilePageData struct {
	CSRFToken string
	User      *auth.User
	Profile   *Profile
	Success   bool
	Error     string
}

// ProfilePage renders the account settings form.
func ProfilePage(data ProfilePageData) templ.Component {
	content := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<h1>Profile</h1>"); err != nil {
			return err
		}
		if data.Success {
			if _, err := io.WriteString(w, "<div class=\"flash flash-success\">Your changes have been saved.</div>"); err != nil {
				return err
			}
		}
		if data.Error != "" {
			if _, err := fmt.Fprintf(w, "<div class=\"flash flash-error\">%s</div>", templ.EscapeString(data.Error)); err != nil {
				return err
			}
		}

		// Avatar block with its own upload form.
		if _, err := io.WriteString(w, "<section class=\"profile-avatar\">"); err != nil {
			return err
		}
		if data.User.AvatarPath != nil && *data.User.AvatarPath != "" {
			if _, err := fmt.Fprintf(w, "<img class=\"avatar\" src=\"/media/%s\" alt=\"avatar\">",
				templ.EscapeString(*data.User.AvatarPath)); err != nil {
				return err
			}
		} else {
			if _, err := io.WriteString(w, "<div class=\"avatar avatar-placeholder\"></div>"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w,
			"<form class=\"avatar-form\" method=\"post\" action=\"/profile/avatar\" enctype=\"multipart/form-data\">"+
				"<input type=\"hidden\" name=\"csrf_token\" value=\"%s\">"+
				"<input type=\"file\" name=\"avatar\" accept=\"image/jpeg,image/png,image/gif,image/webp\" required>"+
				"<button class=\"btn btn-secondary\" type=\"submit\">Upload avatar</button>"+
				"</form></section>",
			templ.EscapeString(data.CSRFToken)); err != nil {
			return err
		}

		_, err := fmt.Fprintf(w,
			"<form class=\"profile-form\" method=\"post\" action=\"/profile\">"+
				"<input type=\"hidden\" name=\"csrf_token\" value=\"%s\">"+
				"<label>Full name<input type=\"text\" name=\"full_name\" value=\"%s\" maxlength=\"100\" required></label>"+
				"<label>Email<input type=\"email\" value=\"%s\" disabled></label>"+
				"<label>Theme<select name=\"theme\">%s%s</select></label>"+
				"<label class=\"checkbox\"><input type=\"checkbox\" name=\"notifications\"%s> Email me about account activity</label>"+
				"<button class=\"btn btn-primary\" type=\"submit\">Save changes</button>"+
				"</form>",
			templ.EscapeString(data.CSRFToken),
			templ.EscapeString(data.User.FullName),
			templ.EscapeString(data.User.Email),
			themeOption(ThemeLight, "Light", data.Profile.Theme),
			themeOption(ThemeDark, "Dark", data.Profile.Theme),
			checked(data.Profile.Notifications))
		return err
	})
	return layouts.AppShell(layouts.Page{Title: "Profile"}, content)
}

func themeOption(value, label, current string) string {
	selected := ""
	if value == current {
		selected = " selected"
	}
	return fmt.Sprintf("<option value=\"%s\"%s>%s</option>", value, selected, label)
}

func checked(v bool) string {
	if v {
		return " checked"
	}
	return ""
}
