package entities

import (
	"math"
	"sort"
	"strings"
	"time"

	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"

	"golang.org/x/text/cases"
)

var nameFolder = cases.Fold()

// NormalizeTurnName returns the case-insensitive key of a shift name.
func NormalizeTurnName(name string) string {
	return nameFolder.String(strings.TrimSpace(name))
}

// TurnConfig is a named recurring shift window. Hours are decimal hours of
// day in half-hour steps; EndHour <= StartHour wraps past midnight.
type TurnConfig struct {
	Name       string
	StartHour  float64
	EndHour    float64
	ActiveDays WeekdaySet
	UpdatedAt  time.Time
}

func NewTurnConfig(name string, startHour float64, endHour float64, days WeekdaySet) (TurnConfig, error) {
	key := NormalizeTurnName(name)
	if key == "" {
		return TurnConfig{}, domainerrors.NewValidationError("name", name, domainerrors.ErrInvalidTurn)
	}
	if !validHalfHour(startHour) {
		return TurnConfig{}, domainerrors.NewValidationError("start", startHour, domainerrors.ErrInvalidTurn)
	}
	if !validHalfHour(endHour) {
		return TurnConfig{}, domainerrors.NewValidationError("end", endHour, domainerrors.ErrInvalidTurn)
	}
	if days.Empty() {
		return TurnConfig{}, domainerrors.NewValidationError("days", days.String(), domainerrors.ErrInvalidTurn)
	}
	return TurnConfig{
		Name:       key,
		StartHour:  startHour,
		EndHour:    endHour,
		ActiveDays: days,
	}, nil
}

func (t TurnConfig) WrapsMidnight() bool {
	return t.EndHour <= t.StartHour
}

func validHalfHour(value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value >= 24 {
		return false
	}
	doubled := value * 2
	return doubled == math.Trunc(doubled)
}

// WeekdaySet is a bitmask indexed by time.Weekday.
type WeekdaySet uint8

const AllWeekdays WeekdaySet = 0x7f

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var set WeekdaySet
	for _, day := range days {
		set = set.With(day)
	}
	return set
}

func (s WeekdaySet) With(day time.Weekday) WeekdaySet {
	return s | 1<<uint(day)
}

func (s WeekdaySet) Has(day time.Weekday) bool {
	return s&(1<<uint(day)) != 0
}

func (s WeekdaySet) Empty() bool {
	return s&AllWeekdays == 0
}

// Days lists members starting from Monday.
func (s WeekdaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for i := 0; i < 7; i++ {
		day := time.Weekday((i + 1) % 7)
		if s.Has(day) {
			out = append(out, day)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	days := s.Days()
	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, day.String()[:3])
	}
	return strings.Join(parts, ",")
}

var weekdayTokens = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday, "l": time.Monday, "lun": time.Monday, "lunes": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday, "m": time.Tuesday, "mar": time.Tuesday, "martes": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday, "x": time.Wednesday, "mie": time.Wednesday, "mié": time.Wednesday, "miercoles": time.Wednesday, "miércoles": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday, "j": time.Thursday, "jue": time.Thursday, "jueves": time.Thursday,
	"fri": time.Friday, "friday": time.Friday, "v": time.Friday, "vie": time.Friday, "viernes": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday, "s": time.Saturday, "sab": time.Saturday, "sáb": time.Saturday, "sabado": time.Saturday, "sábado": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday, "d": time.Sunday, "dom": time.Sunday, "domingo": time.Sunday,
}

// ParseWeekdays accepts explicit lists ("Mon,Wed,Fri"), contiguous ranges
// ("Mon-Fri", "Fri-Mon") and the single-letter Spanish tokens of the legacy
// dashboard ("L-V", "L,M,X").
func ParseWeekdays(raw string) (WeekdaySet, error) {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "":
		return 0, domainerrors.NewValidationError("days", raw, domainerrors.ErrInvalidTurn)
	case "all", "daily", "*":
		return AllWeekdays, nil
	}

	var set WeekdaySet
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' || r == ';' }) {
		if from, to, isRange := strings.Cut(part, "-"); isRange {
			start, ok := lookupWeekday(from)
			if !ok {
				return 0, domainerrors.NewValidationError("days", raw, domainerrors.ErrInvalidTurn)
			}
			end, ok := lookupWeekday(to)
			if !ok {
				return 0, domainerrors.NewValidationError("days", raw, domainerrors.ErrInvalidTurn)
			}
			for day := start; ; day = (day + 1) % 7 {
				set = set.With(day)
				if day == end {
					break
				}
			}
			continue
		}
		day, ok := lookupWeekday(part)
		if !ok {
			return 0, domainerrors.NewValidationError("days", raw, domainerrors.ErrInvalidTurn)
		}
		set = set.With(day)
	}
	if set.Empty() {
		return 0, domainerrors.NewValidationError("days", raw, domainerrors.ErrInvalidTurn)
	}
	return set, nil
}

func lookupWeekday(token string) (time.Weekday, bool) {
	day, ok := weekdayTokens[strings.ToLower(strings.TrimSpace(token))]
	return day, ok
}

// SortTurns orders shifts by name for stable snapshots.
func SortTurns(turns []TurnConfig) {
	sort.Slice(turns, func(i, j int) bool { return turns[i].Name < turns[j].Name })
}
