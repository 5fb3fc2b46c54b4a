package util

import "fmt"

// Probe is one strategy in an ordered cascade. It reports whether it
// matched; errors count as "not found" so the next probe is tried.
type Probe func() (bool, error)

// FirstMatch runs probes in order and stops at the first success.
// It returns the index of the winning probe or -1.
func FirstMatch(probes ...Probe) int {
	for i, p := range probes {
		ok, err := p()
		if err != nil {
			Debug("cascade probe failed", "index", i, "error", err)
			continue
		}
		if ok {
			return i
		}
	}
	return -1
}

// FirstMatchOf builds one probe per candidate and runs them as a cascade.
// The matching candidate is returned along with a found flag.
func FirstMatchOf[T any](candidates []T, probe func(T) (bool, error)) (T, bool) {
	probes := make([]Probe, len(candidates))
	for i, c := range candidates {
		c := c
		probes[i] = func() (bool, error) { return probe(c) }
	}
	idx := FirstMatch(probes...)
	if idx < 0 {
		var zero T
		return zero, false
	}
	return candidates[idx], true
}

// Isolate runs fn inside a failure boundary. A panic is converted into
// an error so one bad item cannot abort the loop that called it.
func Isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}

// PanicError wraps a recovered panic value
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("recovered panic: %v", e.Value)
}
