package domain

import "time"

// Clock is the injected time source. Every operation that compares against
// lock or settlement times reads the clock at execution time rather than
// trusting a caller's earlier read.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by the wall clock in UTC.
func SystemClock() Clock { return systemClock{} }
