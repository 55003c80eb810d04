package swapplanner

import "fmt"

// OracleError reports oracle output that could not be parsed into the
// expected structure. Raw holds the offending text.
type OracleError struct {
	Op  string
	Raw string
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s: malformed output: %v", e.Op, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }
