// Package utils holds small formatting helpers shared across the panel and
// daemon binaries — the general-purpose remainder of what was once a much
// larger TUI-support package.
package utils

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

// ColoredString takes a string and a colour attribute and returns a colored
// string with that attribute. Used to wrap stderr lines red in the agent's
// combined log stream. The colour is applied even when stdout is not a
// terminal.
func ColoredString(str string, colorAttribute color.Attribute) string {
	if colorAttribute == color.FgWhite {
		return str
	}
	colour := color.New(colorAttribute)
	colour.EnableColor()
	return ColoredStringDirect(str, colour)
}

// MultiColoredString applies several color attributes at once.
func MultiColoredString(str string, colorAttribute ...color.Attribute) string {
	colour := color.New(colorAttribute...)
	return ColoredStringDirect(str, colour)
}

// ColoredStringDirect applies a pre-built *color.Color.
func ColoredStringDirect(str string, colour *color.Color) string {
	return colour.SprintFunc()(fmt.Sprint(str))
}

var ansiRegex = regexp.MustCompile(`\x1B\[([0-9]{1,2}(;[0-9]{1,2})?)?[mK]`)

// Decolorise strips a string of ANSI color escapes.
func Decolorise(str string) string {
	return ansiRegex.ReplaceAllString(str, "")
}

// NormalizeLinefeeds removes Windows and Mac style line feeds, used when
// splitting container log output into lines.
func NormalizeLinefeeds(str string) string {
	str = strings.ReplaceAll(str, "\r\n", "\n")
	str = strings.ReplaceAll(str, "\r", "")
	return str
}

type multiErr []error

func (m multiErr) Error() string {
	var b bytes.Buffer
	b.WriteString("encountered multiple errors:")
	for _, err := range m {
		b.WriteString("\n\t... " + err.Error())
	}
	return b.String()
}

// CloseMany closes every closer, collecting all errors encountered rather
// than stopping at the first one. Used during graceful shutdown, where every
// subsystem (engine connection, credential store, state file) owns its own
// cleanup and none should be skipped because an earlier one failed.
func CloseMany(closers []io.Closer) error {
	errs := make([]error, 0, len(closers))
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return multiErr(errs)
	}
	return nil
}
