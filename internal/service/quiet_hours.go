package service

import (
	"time"

	"github.com/renewalwatch/backend/internal/model"
	"github.com/renewalwatch/backend/pkg/datetime"
)

// quietWindow returns the parsed quiet-hours bounds. ok is false when either
// bound is unset or unparseable, which disables quiet hours.
func quietWindow(settings *model.AlertSettings) (start, end datetime.Clock, ok bool) {
	if settings == nil || settings.QuietHoursStart == nil || settings.QuietHoursEnd == nil {
		return 0, 0, false
	}
	start, err := datetime.ParseClock(*settings.QuietHoursStart)
	if err != nil {
		return 0, 0, false
	}
	end, err = datetime.ParseClock(*settings.QuietHoursEnd)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// InQuietHours reports whether now, read in the tenant's timezone, falls
// inside quiet hours. The start minute is quiet, the end minute is not. A
// window whose start is after its end spans midnight. Equal bounds quiet
// exactly that one minute.
func InQuietHours(settings *model.AlertSettings, now time.Time) bool {
	start, end, ok := quietWindow(settings)
	if !ok {
		return false
	}
	t := datetime.ClockOf(now, settings.Location())
	if start == end {
		return t == start
	}
	if start < end {
		return start <= t && t < end
	}
	return t >= start || t < end
}

// QuietHoursResume returns when quiet hours end, provided now is quiet and
// the end falls later on the same tenant-local day.
func QuietHoursResume(settings *model.AlertSettings, now time.Time) (time.Time, bool) {
	if !InQuietHours(settings, now) {
		return time.Time{}, false
	}
	start, end, _ := quietWindow(settings)
	if start == end {
		end++
		if end >= 24*60 {
			return time.Time{}, false
		}
	}
	resume := end.On(now, settings.Location())
	if !resume.After(now) {
		return time.Time{}, false
	}
	return resume, true
}
