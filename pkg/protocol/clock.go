package protocol

import "time"

// Clock abstracts time for the executor and scheduler so delay and resume
// behavior is verifiable with a fake clock in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
