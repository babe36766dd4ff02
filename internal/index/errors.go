package index

import "fmt"

// BuildError wraps a failure to enumerate the source library during a full
// build. The prior store contents stay intact; the build is retried on the
// next scheduler pass or explicit trigger.
type BuildError struct {
	Err error
}

func (e *BuildError) Error() string { return fmt.Sprintf("full build: %v", e.Err) }

func (e *BuildError) Unwrap() error { return e.Err }

// PersistenceError wraps a failure to read or write the persisted payload.
// Read failures degrade to an empty index; write failures are retried on the
// next mutation. Neither is ever surfaced as a process failure.
type PersistenceError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("payload %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
