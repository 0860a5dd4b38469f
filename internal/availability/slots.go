package availability

import (
	"time"

	"taxbook/internal/models"
)

// GenerateSlots chunks ranges into consecutive slots of models.DefaultSlotLength.
func GenerateSlots(ranges []models.TimeRange) []models.Slot {
	return GenerateSlotsWithLength(ranges, models.DefaultSlotLength)
}

// GenerateSlotsWithLength emits [t, t+length) for every t < end of each range,
// in input order. The last slot of a range is not clipped to its end, and
// overlapping ranges are not merged. length <= 0 means the default.
func GenerateSlotsWithLength(ranges []models.TimeRange, length time.Duration) []models.Slot {
	if length <= 0 {
		length = models.DefaultSlotLength
	}

	slots := make([]models.Slot, 0, len(ranges))
	for _, r := range ranges {
		for t := r.Start; t.Before(r.End); t = t.Add(length) {
			slots = append(slots, models.Slot{Start: t, End: t.Add(length)})
		}
	}
	return slots
}

// Bookable drops slots that start before now+minAdvance.
func Bookable(slots []models.Slot, now time.Time, minAdvance time.Duration) []models.Slot {
	cutoff := now.Add(minAdvance)
	out := make([]models.Slot, 0, len(slots))
	for _, s := range slots {
		if s.Start.Before(cutoff) {
			continue
		}
		out = append(out, s)
	}
	return out
}
