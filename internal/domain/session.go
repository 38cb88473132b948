package domain

// Session is the authentication state of one browser.
type Session struct {
	Authenticated bool
	Username      string
}

// Anonymous is the unauthenticated session.
var Anonymous = Session{}
