package core

// Logger reports application events.
// args may hold an error, a map[string]interface{} of extra fields and the account.Account the event relates to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person is implemented by log args identifying who an event relates to.
type Person interface {
	LogPerson() (id, name, email string)
}
