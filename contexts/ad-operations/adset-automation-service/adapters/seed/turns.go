package seed

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"adshift/contexts/ad-operations/adset-automation-service/domain/entities"

	"gopkg.in/yaml.v3"
)

// TurnFile is the on-disk shape of a shift seed file:
//
//	turns:
//	  - name: morning
//	    start: 8
//	    end: 17
//	    days: Mon-Fri
type TurnFile struct {
	Turns []TurnEntry `yaml:"turns"`
}

type TurnEntry struct {
	Name  string  `yaml:"name"`
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Days  string  `yaml:"days"`
}

// LoadTurnsFile reads and validates a seed file. An empty path yields no turns.
func LoadTurnsFile(path string, now time.Time) ([]entities.TurnConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open turn seed %s: %w", path, err)
	}
	defer file.Close()
	return DecodeTurns(file, now)
}

func DecodeTurns(r io.Reader, now time.Time) ([]entities.TurnConfig, error) {
	var doc TurnFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode turn seed: %w", err)
	}

	turns := make([]entities.TurnConfig, 0, len(doc.Turns))
	seen := make(map[string]struct{}, len(doc.Turns))
	for idx, entry := range doc.Turns {
		days, err := entities.ParseWeekdays(entry.Days)
		if err != nil {
			return nil, fmt.Errorf("turn seed entry %d (%s): %w", idx, entry.Name, err)
		}
		turn, err := entities.NewTurnConfig(entry.Name, entry.Start, entry.End, days)
		if err != nil {
			return nil, fmt.Errorf("turn seed entry %d (%s): %w", idx, entry.Name, err)
		}
		if _, dup := seen[turn.Name]; dup {
			return nil, fmt.Errorf("turn seed entry %d: duplicate turn %q", idx, turn.Name)
		}
		seen[turn.Name] = struct{}{}
		turn.UpdatedAt = now.UTC()
		turns = append(turns, turn)
	}
	return turns, nil
}
