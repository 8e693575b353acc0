package clock

import "time"

// Clock is the only time source used by period resolution and top-up stamping.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
