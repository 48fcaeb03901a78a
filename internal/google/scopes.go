package google

// DefaultOAuthScopes are the scopes requested during the consent flow.
//
// The scopes provide access to:
//   - Google Tasks: full access
//   - Google Calendar: read/write of events (calendar list is readable through it)
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/tasks",
	"https://www.googleapis.com/auth/calendar.events",
}
