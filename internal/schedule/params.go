package schedule

import (
	"fmt"
	"time"

	"github.com/conorfennell/dailyquiz/internal/domain"
)

// TimeOfDay is a wall-clock time within a day, to the minute.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Params holds the scheduling policy.
type Params struct {
	SessionSize  int // questions drawn per period
	CooldownDays int // whole days a wrong question sits out
	MorningStart TimeOfDay
	EveningStart TimeOfDay
	// WrapOvernight lets a slot run past midnight until the other slot
	// starts. When false the hours between midnight and the next slot
	// start have no active slot.
	WrapOvernight bool
	Location      *time.Location
}

// DefaultParams is the classic morning/evening quiz: ten questions at
// 08:00 and 20:00, with a two day cooldown for misses.
func DefaultParams() *Params {
	return &Params{
		SessionSize:   10,
		CooldownDays:  2,
		MorningStart:  TimeOfDay{Hour: 8},
		EveningStart:  TimeOfDay{Hour: 20},
		WrapOvernight: true,
		Location:      time.UTC,
	}
}

func (p *Params) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Today returns the calendar date of now in the configured zone.
func (p *Params) Today(now time.Time) domain.Date {
	return domain.DateOf(now.In(p.location()))
}

// ResolvePeriod maps a wall-clock instant to the period it belongs to.
//
// A period is dated by the day its slot started, so with the default
// boundaries 01:30 on the 2nd is the evening of the 1st. Equal boundaries
// leave the day permanently in the morning slot.
func (p *Params) ResolvePeriod(now time.Time) (domain.PeriodKey, error) {
	local := now.In(p.location())
	today := domain.DateOf(local)
	m := local.Hour()*60 + local.Minute()
	ms, es := p.MorningStart.minutes(), p.EveningStart.minutes()

	if ms == es {
		return domain.PeriodKey{Date: today, Slot: domain.SlotMorning}, nil
	}

	slot, start := domain.SlotEvening, es
	if inRange(m, ms, es) {
		slot, start = domain.SlotMorning, ms
	} else if !inRange(m, es, ms) {
		return domain.PeriodKey{}, ErrNoActiveSlot
	}

	if m >= start {
		return domain.PeriodKey{Date: today, Slot: slot}, nil
	}
	// Slot started yesterday and has run past midnight.
	if !p.WrapOvernight {
		return domain.PeriodKey{}, ErrNoActiveSlot
	}
	return domain.PeriodKey{Date: today.AddDays(-1), Slot: slot}, nil
}

// inRange reports whether m lies in [from, to), wrapping past midnight when
// to < from.
func inRange(m, from, to int) bool {
	if from <= to {
		return m >= from && m < to
	}
	return m >= from || m < to
}
