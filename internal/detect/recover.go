package detect

import "fmt"

// recoveredAsError normalizes a recover() value into an error. Detectors are
// allowed to fail with a panic as well as a returned error (spec.md §4.3:
// "detectors are also allowed to fail with an exception during
// contribution; such failures must be logged and swallowed").
func recoveredAsError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("detector panicked: %v", r)
}
