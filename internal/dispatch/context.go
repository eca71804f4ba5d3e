package dispatch

import "reflect"

// matchContext reports whether every required key is present in current
// with an exactly-equal value. A missing key is a non-match; there is no
// partial credit. Notifications without requirements always match.
func matchContext(required, current map[string]any) bool {
	for key, want := range required {
		got, ok := current[key]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
