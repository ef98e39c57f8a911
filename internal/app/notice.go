package service

import "fmt"

// Level grades a notice for display.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Notice is a user-facing message. Code is stable for programmatic use.
type Notice struct {
	Level   Level
	Code    string
	Message string
}

func (n Notice) String() string { return n.Level.String() + ": " + n.Message }

func info(code, msg string) Notice    { return Notice{LevelInfo, code, msg} }
func success(code, msg string) Notice { return Notice{LevelSuccess, code, msg} }
func warning(code, msg string) Notice { return Notice{LevelWarning, code, msg} }
func failure(code, msg string) Notice { return Notice{LevelError, code, msg} }
