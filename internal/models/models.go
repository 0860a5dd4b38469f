package models

import (
	"fmt"
	"time"
)

// TimeRange is an open interval reported by the availability endpoint.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Slot is a fixed-length bookable window derived from a TimeRange.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (s Slot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

func (s Slot) Valid() bool {
	return !s.Start.IsZero() && s.End.After(s.Start)
}

// Label renders the slot as HH:MM-HH:MM in loc.
func (s Slot) Label(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%s-%s", s.Start.In(loc).Format("15:04"), s.End.In(loc).Format("15:04"))
}
