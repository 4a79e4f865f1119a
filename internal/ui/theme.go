package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is the overlay palette. RarityColors keys are lowercase 17Lands
// rarities.
type Theme struct {
	Name string

	Background    string
	Surface       string
	SelectionBg   string
	SelectionText string
	Border        string
	BorderFocus   string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Warning string
	Danger  string

	RarityColors map[string]string
}

// Styles holds the lipgloss styles the views render with.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style

	Header      lipgloss.Style
	Footer      lipgloss.Style
	Selected    lipgloss.Style
	Pane        lipgloss.Style
	FocusedPane lipgloss.Style

	rarity     map[string]string
	background string
	muted      string
}

// Styles builds the styles for t.
func (t Theme) Styles() Styles {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	bar := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Background(lipgloss.Color(t.Surface)).Foreground(lipgloss.Color(c)).Padding(0, 1)
	}
	pane := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(c)).Padding(0, 1)
	}
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		Header:      bar(t.Text),
		Footer:      bar(t.Muted),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),
		Pane:        pane(t.Border),
		FocusedPane: pane(t.BorderFocus),
		rarity:      t.RarityColors,
		background:  t.Background,
		muted:       t.Muted,
	}
}

// RarityStyle returns a badge style for a card rarity. Unknown rarities use
// the muted color.
func (s Styles) RarityStyle(rarity string) lipgloss.Style {
	color := s.rarity[strings.ToLower(strings.TrimSpace(rarity))]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// palette lists a theme's colors in Theme field order, from Background to
// Danger, followed by common, uncommon, rare and mythic.
type palette [16]string

func (p palette) theme(name string) Theme {
	return Theme{
		Name:          name,
		Background:    p[0],
		Surface:       p[1],
		SelectionBg:   p[2],
		SelectionText: p[3],
		Border:        p[4],
		BorderFocus:   p[5],
		Text:          p[6],
		Muted:         p[7],
		Faint:         p[8],
		Accent:        p[9],
		Warning:       p[10],
		Danger:        p[11],
		RarityColors: map[string]string{
			"common":   p[12],
			"uncommon": p[13],
			"rare":     p[14],
			"mythic":   p[15],
		},
	}
}

// Nightfox comes first and is the fallback.
var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

var palettes = map[string]palette{
	"Nightfox": {
		"#131a24", "#192330", "#2b3b51", "#cdcecf", "#39506d", "#719cd6",
		"#cdcecf", "#738091", "#71839b", "#719cd6", "#dbc074", "#c94f6d",
		"#71839b", "#63cdcf", "#dbc074", "#f4a261",
	},
	"Kanagawa": {
		"#16161D", "#1F1F28", "#2D4F67", "#DCD7BA", "#54546D", "#7E9CD8",
		"#DCD7BA", "#C8C093", "#727169", "#7E9CD8", "#E6C384", "#E46876",
		"#727169", "#7FB4CA", "#E6C384", "#FFA066",
	},
	"Slate": {
		"#020617", "#0f172a", "#0284c7", "#f8fafc", "#334155", "#38bdf8",
		"#f1f5f9", "#94a3b8", "#64748b", "#38bdf8", "#f59e0b", "#ef4444",
		"#64748b", "#94a3b8", "#f59e0b", "#ea580c",
	},
}

// GetTheme returns a theme by name, falling back to Nightfox.
func GetTheme(name string) Theme {
	p, ok := palettes[name]
	if !ok {
		name = themeOrder[0]
		p = palettes[name]
	}
	return p.theme(name)
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns the available theme names in cycle order.
func ThemeNames() []string {
	return themeOrder
}
