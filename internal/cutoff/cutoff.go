// Package cutoff turns the operator's "HH:MM" input into a same-day
// cutoff timestamp.
package cutoff

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTime is wrapped by every Parse failure.
var ErrInvalidTime = errors.New("invalid time")

var pattern = regexp.MustCompile(`^[0-2][0-9]:[0-5][0-9]$`)

// Parse validates s as a 24-hour "HH:MM" time and returns that time on
// day's date in day's location. Both digits of the hour are required and
// hours past 23 are rejected.
func Parse(s string, day time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !pattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w %q: want HH:MM, e.g. 13:45", ErrInvalidTime, s)
	}

	hour, _ := strconv.Atoi(s[:2])
	minute, _ := strconv.Atoi(s[3:])
	if hour > 23 {
		return time.Time{}, fmt.Errorf("%w %q: hour must be 00-23", ErrInvalidTime, s)
	}

	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location()), nil
}
