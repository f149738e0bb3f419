package core

// Logger is the logging service used across the app.
// args may hold errors, extra data maps and the operator performing the request (Operator).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Operator is the authenticated API user.
type Operator struct {
	Username string
}
