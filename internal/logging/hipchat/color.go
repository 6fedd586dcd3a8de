package hipchat

import (
	"fmt"

	"github.com/Chichichkin/HipChatSink/internal/logging"
)

type Color string

const (
	Gray   Color = "gray"
	Green  Color = "green"
	Yellow Color = "yellow"
	Red    Color = "red"
)

// ColorFor maps a level to the notification color. It panics on a level
// outside the logging package's enumeration.
func ColorFor(level logging.Level) Color {
	switch level {
	case logging.Verbose, logging.Debug:
		return Gray
	case logging.Information:
		return Green
	case logging.Warning:
		return Yellow
	case logging.Error, logging.Fatal:
		return Red
	}
	panic(fmt.Sprintf("hipchat: no color mapped for %s", level))
}

// ShouldNotify reports whether room members get alerted for the level.
func ShouldNotify(level logging.Level) bool {
	return level >= logging.Warning
}
