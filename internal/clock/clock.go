// Package clock abstracts time for tenure and audit calculations.
package clock

import "time"

// Clock supplies the current time. Services take a Clock instead of
// calling time.Now so tenure-derived status stays testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Fixed returns a Clock pinned to one instant, for tests.
func Fixed(t time.Time) Clock { return fixedClock{t: t} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }
