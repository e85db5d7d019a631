package recording

// Logger is the subset of logging behavior this package needs from the
// host application, kept as a small interface so this package never has to
// import package main.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}
