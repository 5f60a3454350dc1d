package logging

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether w is a terminal. Writers without a file
// descriptor never are.
func IsTTY(w io.Writer) bool {
	fd, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(fd.Fd()))
}

// SupportsColor reports whether output to w should be coloured.
// NO_COLOR and TERM=dumb turn colour off; a non-zero CLICOLOR_FORCE turns
// it on for pagers and CI logs.
func SupportsColor(w io.Writer) bool {
	return supportsColor(IsTTY(w))
}

func supportsColor(isTTY bool) bool {
	_, noColor := os.LookupEnv("NO_COLOR")
	switch force := os.Getenv("CLICOLOR_FORCE"); {
	case noColor, os.Getenv("TERM") == "dumb":
		return false
	case force != "" && force != "0":
		return true
	default:
		return isTTY
	}
}
