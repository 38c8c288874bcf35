// Package schedule turns a doctor's working-hours configuration into the
// list of bookable start times for a calendar date.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/medbook/medbook-api/internal/model"
)

// Reason explains an empty slot listing.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonPastDate      Reason = "past-date"
	ReasonNonWorkingDay Reason = "non-working-day"
)

// Listing is the discriminated result of ComputeSlots. An empty Slots with
// ReasonNone simply means the whole window lies in the past today.
type Listing struct {
	Slots           []string
	Reason          Reason
	WorkingDayNames []string
}

var dayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DayNames maps weekday integers (Sunday=0) to their English names,
// skipping out-of-range values.
func DayNames(days []int) []string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(dayNames) {
			names = append(names, dayNames[d])
		}
	}
	return names
}

// ComputeSlots enumerates candidate start times for target given the
// doctor's configuration, using now to exclude times already gone today.
//
// The enumeration reproduces the booking UI generator this service
// replaced, quirks included: minutes on the configured start/end times are
// ignored (only the hour counts), a 30-minute duration emits :00 and :30
// each hour, a 60-minute duration emits :00 only, and any other duration
// restarts its minute cursor at the top of each hour and suppresses every
// slot of the final hour except :00. A 45-minute duration over 09:00-17:00
// therefore yields hh:00/hh:45 pairs up to 15:45 plus a lone 16:00, not a
// continuous 45-minute fill. Do not "fix" this without migrating existing
// booked slots.
func ComputeSlots(cfg model.WorkingHours, target model.Date, now time.Time) Listing {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, target.Location())
	if target.Before(today) {
		return Listing{Reason: ReasonPastDate}
	}

	workingDays := cfg.WorkingDays
	if workingDays == nil {
		workingDays = model.DefaultWorkingDays()
	}
	weekday := int(target.Weekday())
	if !containsDay(workingDays, weekday) {
		return Listing{
			Reason:          ReasonNonWorkingDay,
			WorkingDayNames: DayNames(workingDays),
		}
	}

	startHour := parseHour(cfg.StartTime, 9)
	endHour := parseHour(cfg.EndTime, 17)
	duration := cfg.SlotDuration
	if duration <= 0 {
		duration = model.DefaultSlotDuration
	}

	isToday := target.Year() == now.Year() && target.Month() == now.Month() && target.Day() == now.Day()
	curHour, curMin := now.Hour(), now.Minute()

	var slots []string
	for hour := startHour; hour < endHour; hour++ {
		switch duration {
		case 30:
			// At the current hour the :00 branch can never pass; the slot
			// exactly on the hour is always excluded today.
			if !isToday || hour > curHour || (hour == curHour && 0 > curMin) {
				slots = append(slots, formatSlot(hour, 0))
			}
			if !isToday || hour > curHour || (hour == curHour && 30 > curMin) {
				slots = append(slots, formatSlot(hour, 30))
			}
		case 60:
			if !isToday || hour > curHour {
				slots = append(slots, formatSlot(hour, 0))
			}
		default:
			for minutes := 0; minutes < 60 && (hour < endHour-1 || (hour == endHour-1 && minutes == 0)); minutes += duration {
				if !isToday || hour > curHour || (hour == curHour && minutes > curMin) {
					slots = append(slots, formatSlot(hour, minutes))
				}
			}
		}
	}

	return Listing{Slots: slots}
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// parseHour takes the hour component of an "HH:MM" string; the minute
// component is deliberately dropped.
func parseHour(hhmm string, fallback int) int {
	if hhmm == "" {
		return fallback
	}
	parts := strings.SplitN(hhmm, ":", 2)
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return fallback
	}
	return h
}

func formatSlot(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
