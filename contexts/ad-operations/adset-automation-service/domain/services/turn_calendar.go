package services

import (
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
)

// DecimalHour returns the hour of day of t as a fraction (10:30 -> 10.5).
func DecimalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// IsInSession reports whether now falls inside the shift window, evaluated in
// loc. A window with EndHour <= StartHour runs from StartHour on an active day
// into the next day until EndHour.
func IsInSession(turn entities.TurnConfig, now time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	day := local.Weekday()
	hour := DecimalHour(local)

	if !turn.WrapsMidnight() {
		return turn.ActiveDays.Has(day) && hour >= turn.StartHour && hour < turn.EndHour
	}
	previous := (day + 6) % 7
	return (turn.ActiveDays.Has(day) && hour >= turn.StartHour) ||
		(turn.ActiveDays.Has(previous) && hour < turn.EndHour)
}

// AnyInSession is the verdict for an ad set: no assigned turns means time
// does not constrain it; otherwise any assigned turn in session is enough.
// Names with no configuration never match.
func AnyInSession(assigned []string, turns map[string]entities.TurnConfig, now time.Time, loc *time.Location) bool {
	if len(assigned) == 0 {
		return true
	}
	for _, name := range assigned {
		turn, ok := turns[entities.NormalizeTurnName(name)]
		if !ok {
			continue
		}
		if IsInSession(turn, now, loc) {
			return true
		}
	}
	return false
}

// IndexTurns keys shift configs by normalized name.
func IndexTurns(turns []entities.TurnConfig) map[string]entities.TurnConfig {
	out := make(map[string]entities.TurnConfig, len(turns))
	for _, turn := range turns {
		out[entities.NormalizeTurnName(turn.Name)] = turn
	}
	return out
}
