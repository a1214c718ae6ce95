package output

import (
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
)

// Formatter renders finished runs. Formatters that build one document
// write it on Flush.
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
	Flush() error
}

var (
	_ Formatter = (*ConsoleReporter)(nil)
	_ Formatter = (*JSONReporter)(nil)
	_ Formatter = (*JUnitReporter)(nil)
	_ Formatter = (*TAPReporter)(nil)
)

// Names lists the formats NewFormatter accepts.
var Names = []string{"console", "json", "junit", "tap"}

// NewFormatter returns the named formatter writing to w. Console options
// are ignored by the other formats.
func NewFormatter(name string, w io.Writer, opts ...ConsoleOption) (Formatter, error) {
	switch name {
	case "", "console":
		return NewConsoleReporter(append([]ConsoleOption{WithWriter(w)}, opts...)...), nil
	case "json":
		return NewJSONReporter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitReporter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPReporter(TAPWithWriter(w)), nil
	}
	return nil, fmt.Errorf("unknown output format %q", name)
}
