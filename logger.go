package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger is a small timestamped wrapper around the standard log package.
// Debugf is gated by the configured level instead of being a permanent
// no-op, so LOG_LEVEL=debug surfaces the per-frame chatter the relay and
// recording packages emit at Debugf.
type Logger struct {
	debug bool
	mu    sync.Mutex
	log   *log.Logger
}

// NewLogger constructs a Logger. level is case-insensitive; any value other
// than "debug" keeps Debugf silent.
func NewLogger(level string) *Logger {
	return &Logger{
		debug: strings.EqualFold(level, "debug"),
		log:   log.New(os.Stdout, "", 0),
	}
}

func (l *Logger) Printf(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.Println(l.stamp(fmt.Sprintf(format, v...)))
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if !l.debug {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.Println(l.stamp("[DEBUG] " + fmt.Sprintf(format, v...)))
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.Printf("[FATAL] "+format, v...)
	os.Exit(1)
}

func (l *Logger) stamp(msg string) string {
	return fmt.Sprintf("[%s] %s", time.Now().Format("2006-01-02 15:04:05"), msg)
}
