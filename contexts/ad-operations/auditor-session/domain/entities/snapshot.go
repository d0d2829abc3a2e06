package entities

import "time"

// AdSetView is one ad set as an operator session sees it.
type AdSetView struct {
	AdSetID          string
	Name             string
	Turns            []string
	StopLossPercent  float64
	IsFrozen         bool
	RunState         string
	Spend            float64
	DailyBudgetMinor int64
	SpendPercent     float64
	AutomationState  string

	TurnsUpdatedAt    time.Time
	StopLossUpdatedAt time.Time
	FrozenUpdatedAt   time.Time
	ObservedAt        time.Time
}

func (v AdSetView) Clone() AdSetView {
	out := v
	out.Turns = append([]string(nil), v.Turns...)
	return out
}

// Timestamp is the server-side write time of one field.
func (v AdSetView) Timestamp(field Field) time.Time {
	switch field {
	case FieldTurns:
		return v.TurnsUpdatedAt
	case FieldStopLossPercent:
		return v.StopLossUpdatedAt
	case FieldIsFrozen:
		return v.FrozenUpdatedAt
	default:
		return time.Time{}
	}
}

func (v AdSetView) Value(field Field) FieldValue {
	switch field {
	case FieldTurns:
		return FieldValue{Field: field, Turns: append([]string(nil), v.Turns...)}
	case FieldStopLossPercent:
		return FieldValue{Field: field, StopLossPercent: v.StopLossPercent}
	case FieldIsFrozen:
		return FieldValue{Field: field, IsFrozen: v.IsFrozen}
	default:
		return FieldValue{Field: field}
	}
}

// With returns a copy carrying value in its field.
func (v AdSetView) With(value FieldValue) AdSetView {
	out := v.Clone()
	switch value.Field {
	case FieldTurns:
		out.Turns = append([]string(nil), value.Turns...)
	case FieldStopLossPercent:
		out.StopLossPercent = value.StopLossPercent
	case FieldIsFrozen:
		out.IsFrozen = value.IsFrozen
	}
	return out
}

type Turn struct {
	Name      string
	StartHour float64
	EndHour   float64
	Days      string
}

type LogEntry struct {
	ID        string
	Actor     string
	Message   string
	Cause     string
	AdSetID   string
	Timestamp time.Time
}

// Snapshot is one full pull from the settings store.
type Snapshot struct {
	GeneratedAt       time.Time
	AutomationEnabled bool
	AdSets            []AdSetView
	Turns             []Turn
	Logs              []LogEntry
	RunStates         map[string]string
}

func (s Snapshot) Clone() Snapshot {
	out := s
	out.AdSets = make([]AdSetView, 0, len(s.AdSets))
	for _, item := range s.AdSets {
		out.AdSets = append(out.AdSets, item.Clone())
	}
	out.Turns = append([]Turn(nil), s.Turns...)
	out.Logs = append([]LogEntry(nil), s.Logs...)
	out.RunStates = make(map[string]string, len(s.RunStates))
	for id, state := range s.RunStates {
		out.RunStates[id] = state
	}
	return out
}

func (s Snapshot) Find(adSetID string) (AdSetView, bool) {
	for _, item := range s.AdSets {
		if item.AdSetID == adSetID {
			return item, true
		}
	}
	return AdSetView{}, false
}
