// Package stats annotates cards with 17Lands draft ratings.
//
// The input is a card-ratings export: either the bare JSON array returned by
// the 17Lands card_ratings endpoint, or an object wrapping that array with
// format and cohort labels. Cards are matched by name, case-insensitively;
// double-faced cards also match on their front face. When an export lists
// the same name twice the first row wins and the result is flagged
// Ambiguous.
package stats

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/five82/arenaview/internal/card"
)

const source = "17lands"

// Rating is one row of the 17Lands card ratings export.
type Rating struct {
	Name             string  `json:"name"`
	Color            string  `json:"color"`
	Rarity           string  `json:"rarity"`
	SeenCount        int     `json:"seen_count"`
	AvgSeen          float64 `json:"avg_seen"`
	PickCount        int     `json:"pick_count"`
	AvgPick          float64 `json:"avg_pick"`
	GameCount        int     `json:"game_count"`
	PlayRate         float64 `json:"play_rate"`
	WinRate          float64 `json:"win_rate"`
	OpeningHandGame  int     `json:"opening_hand_game_count"`
	OpeningHandWin   float64 `json:"opening_hand_win_rate"`
	DrawnGame        int     `json:"drawn_game_count"`
	DrawnWin         float64 `json:"drawn_win_rate"`
	EverDrawnGame    int     `json:"ever_drawn_game_count"`
	EverDrawnWin     float64 `json:"ever_drawn_win_rate"`
	NeverDrawnGame   int     `json:"never_drawn_game_count"`
	NeverDrawnWin    float64 `json:"never_drawn_win_rate"`
	DrawnImprovement float64 `json:"drawn_improvement_win_rate"`
}

// Export is the wrapped export form.
type Export struct {
	Format    string   `json:"format"`
	Expansion string   `json:"expansion"`
	Cohort    string   `json:"cohort"`
	Ratings   []Rating `json:"ratings"`
}

// Index looks up draft stats by card name.
type Index struct {
	format string
	cohort string
	byName map[string]card.DraftStats
}

// Load reads an export from path.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	idx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse stats %s: %w", path, err)
	}
	return idx, nil
}

// Parse builds an index from export bytes.
func Parse(data []byte) (*Index, error) {
	var export Export
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, fmt.Errorf("empty export")
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &export.Ratings); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(trimmed, &export); err != nil {
			return nil, err
		}
	}

	idx := &Index{
		format: strings.TrimSpace(export.Format),
		cohort: strings.TrimSpace(export.Cohort),
		byName: make(map[string]card.DraftStats, len(export.Ratings)),
	}
	for _, row := range export.Ratings {
		name := normalize(row.Name)
		if name == "" {
			continue
		}
		stats := idx.toStats(row)
		idx.add(name, stats)
		if front, _, ok := strings.Cut(name, " // "); ok {
			idx.add(strings.TrimSpace(front), stats)
		}
	}
	return idx, nil
}

func (i *Index) add(name string, stats card.DraftStats) {
	if existing, dup := i.byName[name]; dup {
		existing.Ambiguous = true
		i.byName[name] = existing
		return
	}
	i.byName[name] = stats
}

// Lookup returns the stats for name.
func (i *Index) Lookup(name string) (card.DraftStats, bool) {
	if i == nil {
		return card.DraftStats{}, false
	}
	stats, ok := i.byName[normalize(name)]
	return stats, ok
}

// Len reports the number of indexed names.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byName)
}

func (i *Index) toStats(r Rating) card.DraftStats {
	return card.DraftStats{
		Source: source,
		Format: i.format,
		Cohort: i.cohort,
		Name:   strings.TrimSpace(r.Name),
		Color:  r.Color,
		Rarity: r.Rarity,
		Metrics: card.DraftMetrics{
			Seen:   r.SeenCount,
			ALSA:   r.AvgSeen,
			Picked: r.PickCount,
			ATA:    r.AvgPick,
			GP:     r.GameCount,
			GPPct:  r.PlayRate,
			GPWR:   r.WinRate,
			OH:     r.OpeningHandGame,
			OHWR:   r.OpeningHandWin,
			GD:     r.DrawnGame,
			GDWR:   r.DrawnWin,
			GIH:    r.EverDrawnGame,
			GIHWR:  r.EverDrawnWin,
			GNS:    r.NeverDrawnGame,
			GNSWR:  r.NeverDrawnWin,
			IIHPP:  r.DrawnImprovement * 100,
		},
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
