package entities

import (
	"time"

	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
)

const DefaultStopLossPercent = 50.0

// SettingField names the operator-editable columns of AdSetSettings.
type SettingField string

const (
	FieldTurns           SettingField = "turns"
	FieldStopLossPercent SettingField = "stopLossPercent"
	FieldIsFrozen        SettingField = "isFrozen"
)

func ParseSettingField(raw string) (SettingField, error) {
	switch raw {
	case string(FieldTurns), "turno", "turn":
		return FieldTurns, nil
	case string(FieldStopLossPercent), "limit_perc", "stop_loss_percent":
		return FieldStopLossPercent, nil
	case string(FieldIsFrozen), "is_frozen":
		return FieldIsFrozen, nil
	default:
		return "", domainerrors.ErrInvalidField
	}
}

// ManualOverride is the most recent operator run/pause command for an ad set.
type ManualOverride struct {
	Status           RunState
	Actor            string
	IssuedAt         time.Time
	InSessionAtIssue bool
}

// AdSetSettings is the authoritative per-ad-set configuration plus the
// platform observation cached by the last successful read.
type AdSetSettings struct {
	AdSetID         string
	Turns           []string
	StopLossPercent float64
	IsFrozen        bool
	LastKnownStatus RunState
	Manual          *ManualOverride

	Name             string
	Spend            float64
	DailyBudgetMinor int64
	ObservedAt       time.Time
	Observed         bool

	TurnsUpdatedAt    time.Time
	StopLossUpdatedAt time.Time
	FrozenUpdatedAt   time.Time
	CreatedAt         time.Time
}

// DefaultSettings is the row created on first observation of an ad set.
func DefaultSettings(adSetID string, now time.Time) AdSetSettings {
	return AdSetSettings{
		AdSetID:         adSetID,
		Turns:           []string{},
		StopLossPercent: DefaultStopLossPercent,
		LastKnownStatus: RunStatePaused,
		CreatedAt:       now.UTC(),
	}
}

func (s AdSetSettings) FieldUpdatedAt(field SettingField) time.Time {
	switch field {
	case FieldTurns:
		return s.TurnsUpdatedAt
	case FieldStopLossPercent:
		return s.StopLossUpdatedAt
	case FieldIsFrozen:
		return s.FrozenUpdatedAt
	default:
		return time.Time{}
	}
}

// FieldPatch is a validated single-field write.
type FieldPatch struct {
	Field           SettingField
	Turns           []string
	StopLossPercent float64
	IsFrozen        bool
}

func (p FieldPatch) Value() any {
	switch p.Field {
	case FieldTurns:
		return append([]string(nil), p.Turns...)
	case FieldStopLossPercent:
		return p.StopLossPercent
	case FieldIsFrozen:
		return p.IsFrozen
	default:
		return nil
	}
}

// Apply writes the patch into the row and stamps the field timestamp.
func (s *AdSetSettings) Apply(patch FieldPatch, at time.Time) {
	at = at.UTC()
	switch patch.Field {
	case FieldTurns:
		s.Turns = append([]string(nil), patch.Turns...)
		s.TurnsUpdatedAt = at
	case FieldStopLossPercent:
		s.StopLossPercent = patch.StopLossPercent
		s.StopLossUpdatedAt = at
	case FieldIsFrozen:
		s.IsFrozen = patch.IsFrozen
		s.FrozenUpdatedAt = at
	}
}

// Observe copies platform truth into the cached observation columns.
func (s *AdSetSettings) Observe(adSet PlatformAdSet, at time.Time) {
	s.Name = adSet.Name
	s.Spend = adSet.Spend
	s.DailyBudgetMinor = adSet.DailyBudgetMinor
	s.LastKnownStatus = adSet.RunState
	s.ObservedAt = at.UTC()
	s.Observed = true
}

func (s AdSetSettings) Clone() AdSetSettings {
	out := s
	out.Turns = append([]string(nil), s.Turns...)
	if s.Manual != nil {
		manual := *s.Manual
		out.Manual = &manual
	}
	return out
}

// PlatformAdSet is one row of the platform read call.
type PlatformAdSet struct {
	ID               string
	Name             string
	RunState         RunState
	Spend            float64
	DailyBudgetMinor int64
}
