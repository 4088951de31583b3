package cleaner

// Session is one authenticated-or-not POP3 session. The deletion model is
// mark-then-commit: Delete only flags a message, and the flags become
// permanent on a clean Quit.
type Session interface {
	Login(user, password string) error
	Count() (int, error)
	Delete(msg int) error
	Quit() error
}

// DialFunc opens a session to host:port. The runner owns the returned
// session and guarantees Quit is attempted before the next account.
type DialFunc func(host string, port int) (Session, error)
