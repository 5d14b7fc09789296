// Package profile lets a signed-in user manage their account: display
// name, preferences (theme, email notifications), and the avatar image.
package profile

import "time"

// Theme values stored in the profiles table.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Profile holds a user's preferences. A user who never saved the form has
// no row; Get returns the defaults.
type Profile struct {
	UserID        string    `json:"user_id"`
	Notifications bool      `json:"notifications"`
	Theme         string    `json:"theme"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// defaultProfile mirrors the column defaults in the profiles table.
func defaultProfile(userID string) *Profile {
	return &Profile{
		UserID:        userID,
		Notifications: true,
		Theme:         ThemeDark,
	}
}

// UpdateRequest is the settings form submission. Notifications carries
// the checkbox value ("on" when ticked).
type UpdateRequest struct {
	FullName      string `form:"full_name"`
	Theme         string `form:"theme"`
	Notifications string `form:"notifications"`
}

// UpdateInput is the validated input for saving settings.
type UpdateInput struct {
	FullName      string
	Theme         string
	Notifications bool
}
