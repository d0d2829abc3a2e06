package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"
	domainerrors "adshift/contexts/ad-operations/adset-automation-service/domain/errors"
)

// BuildFieldPatch validates a raw operator value for field. Values arrive
// loosely typed from JSON (numbers, numeric strings, bools, string lists or
// legacy comma-separated strings). Nothing is clamped except a stop-loss above
// 100, which is capped.
func BuildFieldPatch(field entities.SettingField, value any, turns map[string]entities.TurnConfig) (entities.FieldPatch, error) {
	switch field {
	case entities.FieldStopLossPercent:
		percent, err := ParseStopLoss(value)
		if err != nil {
			return entities.FieldPatch{}, err
		}
		return entities.FieldPatch{Field: field, StopLossPercent: percent}, nil
	case entities.FieldIsFrozen:
		frozen, err := parseBool(value)
		if err != nil {
			return entities.FieldPatch{}, domainerrors.NewValidationError(string(field), value, domainerrors.ErrInvalidFrozen)
		}
		return entities.FieldPatch{Field: field, IsFrozen: frozen}, nil
	case entities.FieldTurns:
		names, err := ParseTurnNames(value)
		if err != nil {
			return entities.FieldPatch{}, err
		}
		for _, name := range names {
			if _, ok := turns[name]; !ok {
				return entities.FieldPatch{}, domainerrors.NewValidationError(string(field), name, domainerrors.ErrUnknownTurn)
			}
		}
		return entities.FieldPatch{Field: field, Turns: names}, nil
	default:
		return entities.FieldPatch{}, domainerrors.NewValidationError(string(field), value, domainerrors.ErrInvalidField)
	}
}

// ParseStopLoss rejects negative and non-numeric input and caps values above 100.
func ParseStopLoss(value any) (float64, error) {
	reject := func() (float64, error) {
		return 0, domainerrors.NewValidationError(string(entities.FieldStopLossPercent), value, domainerrors.ErrInvalidStopLoss)
	}

	var percent float64
	switch v := value.(type) {
	case float64:
		percent = v
	case float32:
		percent = float64(v)
	case int:
		percent = float64(v)
	case int64:
		percent = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return reject()
		}
		percent = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return reject()
		}
		percent = parsed
	default:
		return reject()
	}

	if math.IsNaN(percent) || math.IsInf(percent, 0) || percent < 0 {
		return reject()
	}
	if percent > 100 {
		percent = 100
	}
	return percent, nil
}

// ParseTurnNames accepts a list of names or a legacy comma-separated string.
// Names are case-folded and de-duplicated, keeping first-seen order.
func ParseTurnNames(value any) ([]string, error) {
	var raw []string
	switch v := value.(type) {
	case nil:
		raw = nil
	case string:
		raw = strings.Split(v, ",")
	case []string:
		raw = v
	case []any:
		raw = make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, domainerrors.NewValidationError(string(entities.FieldTurns), value, domainerrors.ErrInvalidTurns)
			}
			raw = append(raw, name)
		}
	default:
		return nil, domainerrors.NewValidationError(string(entities.FieldTurns), value, domainerrors.ErrInvalidTurns)
	}

	names := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		name := entities.NormalizeTurnName(item)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// ParseHour accepts decimal hours as numbers or numeric strings ("20.5").
func ParseHour(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, domainerrors.ErrInvalidTurn
	}
}

func parseBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	default:
		return false, domainerrors.ErrInvalidFrozen
	}
}
