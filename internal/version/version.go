package version

import (
	"fmt"
	"io"
	"runtime"
)

const (
	Version = "2.5.0"
	Name    = "Svět Seriálů CZ STEALTH"
)

// HasVersionArg reports whether args asks for the version
func HasVersionArg(args []string) bool {
	if len(args) > 1 {
		arg := args[1]
		return arg == "--version" || arg == "-version" || arg == "-v" || arg == "--v" || arg == "version"
	}
	return false
}

func ShowVersion(w io.Writer) {
	fmt.Fprintf(w, "svetserialu v%s (%s %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
