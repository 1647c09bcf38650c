package domain

import (
	"fmt"
	"strings"
)

// Slot is one of the two daily sessions.
type Slot string

const (
	SlotMorning Slot = "morning"
	SlotEvening Slot = "evening"
)

// PeriodKey identifies one scored session: a calendar date and a slot.
type PeriodKey struct {
	Date Date
	Slot Slot
}

// String renders the key as "2024-01-01_morning".
func (k PeriodKey) String() string {
	return k.Date.String() + "_" + string(k.Slot)
}

// ParsePeriodKey is the inverse of PeriodKey.String.
func ParsePeriodKey(s string) (PeriodKey, error) {
	datePart, slotPart, ok := strings.Cut(s, "_")
	if !ok {
		return PeriodKey{}, fmt.Errorf("invalid period key %q", s)
	}
	d, err := ParseDate(datePart)
	if err != nil {
		return PeriodKey{}, err
	}
	slot := Slot(slotPart)
	if slot != SlotMorning && slot != SlotEvening {
		return PeriodKey{}, fmt.Errorf("invalid slot %q in period key", slotPart)
	}
	return PeriodKey{Date: d, Slot: slot}, nil
}
