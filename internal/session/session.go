// Package session carries per-user state explicitly through request handling.
package session

// Default theme for users who never stored one.
const DefaultTheme = "light"

// Theme values accepted by the preference store.
var Themes = []string{"light", "dark"}

// Session identifies the acting user and the entitlements that affect
// booking. It is built once per request and passed by value.
type Session struct {
	UserID  string
	Premium bool
}

// Preferences are the stored per-user settings.
type Preferences struct {
	Theme   string `json:"theme"`
	Premium bool   `json:"premium"`
}

// Session converts stored preferences into a Session for userID.
func (p Preferences) Session(userID string) Session {
	return Session{UserID: userID, Premium: p.Premium}
}

// ValidTheme reports whether theme is accepted.
func ValidTheme(theme string) bool {
	for _, t := range Themes {
		if t == theme {
			return true
		}
	}
	return false
}
