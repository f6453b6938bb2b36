package lib

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether file is a terminal (for progress/log path display).
func IsTTY(file *os.File) bool {
	if file == nil {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
