package swapplanner

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Dump writes v to w prefixed with the caller's file and line. Map keys are
// sorted so city breakdowns print in a stable order.
func Dump(w io.Writer, v ...any) {
	_, file, line, _ := runtime.Caller(1)
	fmt.Fprintf(w, "%s:%d:\n", filepath.Base(file), line)
	dumpConfig.Fdump(w, v...)
}
