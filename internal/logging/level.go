package logging

import (
	"fmt"
	"strings"
)

// Level is the severity of a log event. Values are ordered.
type Level int

const (
	Verbose Level = iota
	Debug
	Information
	Warning
	Error
	Fatal
)

// Minimum is the lowest level; a sink restricted to it accepts every event.
const Minimum = Verbose

func Levels() []Level {
	return []Level{Verbose, Debug, Information, Warning, Error, Fatal}
}

func (l Level) String() string {
	switch l {
	case Verbose:
		return "Verbose"
	case Debug:
		return "Debug"
	case Information:
		return "Information"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	case Fatal:
		return "Fatal"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= Verbose && l <= Fatal
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verbose", "trace", "vrb":
		return Verbose, nil
	case "debug", "dbg":
		return Debug, nil
	case "information", "info", "inf":
		return Information, nil
	case "warning", "warn", "wrn":
		return Warning, nil
	case "error", "err", "eror":
		return Error, nil
	case "fatal", "ftl":
		return Fatal, nil
	}
	return Minimum, fmt.Errorf("unknown level %q", s)
}
