/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package attr

import (
	"reflect"
	"time"
)

// isoLayout matches Python-style isoformat output for UTC instants.
const isoLayout = "2006-01-02T15:04:05.999999-07:00"

// Portable converts a native value into a form any JSON encoder accepts:
// sets become sorted slices and timestamps ISO-8601 text in UTC.
func Portable(v any) any {
	switch tv := v.(type) {
	case Set[string]:
		return tv.Sorted()
	case Set[float64]:
		return tv.Sorted()
	case time.Time:
		return tv.UTC().Format(isoLayout)
	}
	return v
}

// Equal compares two native values. Sets compare without regard to order
// and timestamps by instant.
func Equal(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	// integers of different widths
	ia, errA := toInt(a)
	ib, errB := toInt(b)
	_, aStr := a.(string)
	_, bStr := b.(string)
	return errA == nil && errB == nil && !aStr && !bStr && ia == ib
}
