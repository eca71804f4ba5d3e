package engine

import "time"

// timeLayout is fixed-width so stored timestamps sort lexicographically.
// time.RFC3339Nano trims trailing zeros, which breaks that ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timeNow allows tests to control time.
var timeNow = time.Now

func now() string {
	return timeNow().UTC().Format(timeLayout)
}
