package entities

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type Field string

const (
	FieldTurns           Field = "turns"
	FieldStopLossPercent Field = "stopLossPercent"
	FieldIsFrozen        Field = "isFrozen"
)

func ParseField(raw string) (Field, error) {
	switch strings.TrimSpace(raw) {
	case string(FieldTurns), "turno":
		return FieldTurns, nil
	case string(FieldStopLossPercent), "limit_perc":
		return FieldStopLossPercent, nil
	case string(FieldIsFrozen), "is_frozen":
		return FieldIsFrozen, nil
	default:
		return "", fmt.Errorf("unknown field %q", raw)
	}
}

// ParseFieldValue reads an operator-typed value. Range checks are left to
// the store; only the shape is checked here.
func ParseFieldValue(field Field, raw string) (FieldValue, error) {
	raw = strings.TrimSpace(raw)
	switch field {
	case FieldTurns:
		names := make([]string, 0)
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
		return FieldValue{Field: field, Turns: names}, nil
	case FieldStopLossPercent:
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return FieldValue{}, fmt.Errorf("stop-loss %q is not a number", raw)
		}
		return FieldValue{Field: field, StopLossPercent: value}, nil
	case FieldIsFrozen:
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return FieldValue{}, fmt.Errorf("frozen flag %q is not a boolean", raw)
		}
		return FieldValue{Field: field, IsFrozen: value}, nil
	default:
		return FieldValue{}, fmt.Errorf("unknown field %q", field)
	}
}

// FieldValue is a typed value for one Field.
type FieldValue struct {
	Field           Field
	Turns           []string
	StopLossPercent float64
	IsFrozen        bool
}

// Wire is the JSON value sent to the store.
func (v FieldValue) Wire() any {
	switch v.Field {
	case FieldTurns:
		return append([]string{}, v.Turns...)
	case FieldStopLossPercent:
		return v.StopLossPercent
	case FieldIsFrozen:
		return v.IsFrozen
	default:
		return nil
	}
}

func (v FieldValue) Equal(other FieldValue) bool {
	if v.Field != other.Field {
		return false
	}
	switch v.Field {
	case FieldTurns:
		return slices.Equal(v.Turns, other.Turns)
	case FieldStopLossPercent:
		return v.StopLossPercent == other.StopLossPercent
	case FieldIsFrozen:
		return v.IsFrozen == other.IsFrozen
	default:
		return true
	}
}

func (v FieldValue) String() string {
	switch v.Field {
	case FieldTurns:
		return strings.Join(v.Turns, ",")
	case FieldStopLossPercent:
		return fmt.Sprintf("%g", v.StopLossPercent)
	case FieldIsFrozen:
		return fmt.Sprintf("%t", v.IsFrozen)
	default:
		return ""
	}
}
