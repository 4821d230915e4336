package drive

import "log"

// Logf receives the advisory per-cycle diagnostics (gear state and commanded
// power). It is not part of the control contract.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil mutes the diagnostics.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
