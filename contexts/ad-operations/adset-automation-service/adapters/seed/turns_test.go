package seed

import (
	"strings"
	"testing"
	"time"
)

var seededAt = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func TestDecodeTurns(t *testing.T) {
	doc := `
turns:
  - name: Morning
    start: 8
    end: 14.5
    days: L-V
  - name: night
    start: 22
    end: 6
    days: Fri-Mon
`
	turns, err := DecodeTurns(strings.NewReader(doc), seededAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected two turns, got %d", len(turns))
	}
	if turns[0].Name != "morning" || turns[0].EndHour != 14.5 || !turns[0].ActiveDays.Has(time.Friday) || turns[0].ActiveDays.Has(time.Saturday) {
		t.Fatalf("unexpected morning %+v", turns[0])
	}
	if !turns[1].WrapsMidnight() || !turns[1].ActiveDays.Has(time.Sunday) || !turns[1].UpdatedAt.Equal(seededAt) {
		t.Fatalf("unexpected night %+v", turns[1])
	}
}

func TestDecodeTurnsRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"quarter hour": "turns:\n  - {name: a, start: 8.25, end: 12, days: Mon}\n",
		"no days":      "turns:\n  - {name: a, start: 8, end: 12, days: ''}\n",
		"duplicate":    "turns:\n  - {name: a, start: 8, end: 12, days: Mon}\n  - {name: A, start: 9, end: 12, days: Tue}\n",
		"not yaml":     "turns: [",
	}
	for name, doc := range cases {
		if _, err := DecodeTurns(strings.NewReader(doc), seededAt); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestEmptyInputsYieldNoTurns(t *testing.T) {
	turns, err := DecodeTurns(strings.NewReader(""), seededAt)
	if err != nil || len(turns) != 0 {
		t.Fatalf("expected no turns, got %v err=%v", turns, err)
	}
	turns, err = LoadTurnsFile("  ", seededAt)
	if err != nil || turns != nil {
		t.Fatalf("expected nil for empty path, got %v err=%v", turns, err)
	}
	if _, err := LoadTurnsFile("/does/not/exist.yaml", seededAt); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
