package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/arenaview/internal/card"
)

const listWidth = 34

func (m Model) detailSize() (int, int) {
	w := max(m.width-listWidth-4, 20)
	h := max(m.height-4, 3)
	return w, h
}

func (m Model) renderMain() string {
	styles := m.theme.Styles()

	header := m.renderHeader(styles)
	footer := m.renderFooter(styles)
	bodyHeight := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 4)

	listHeight := bodyHeight / 2
	hand := m.renderZone(styles, ZoneHand, listHeight-2)
	field := m.renderZone(styles, ZoneBattlefield, bodyHeight-listHeight-2)
	left := lipgloss.JoinVertical(lipgloss.Left, hand, field)

	detail := styles.Pane.
		Width(max(m.width-listWidth-4, 10)).
		Height(bodyHeight - 2).
		Render(m.detail.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, detail)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader(styles Styles) string {
	parts := []string{
		styles.AccentText.Bold(true).Render("arenaview"),
		styles.MutedText.Render(fmt.Sprintf("update #%d", m.snapshot.UpdateID)),
		styles.Text.Render(fmt.Sprintf("hand %d", len(m.snapshot.Zones.Hand))),
		styles.Text.Render(fmt.Sprintf("battlefield %d", len(m.snapshot.Zones.Battlefield))),
	}
	if m.feedClosed {
		parts = append(parts, styles.DangerText.Render("feed stopped"))
	}
	if m.source != "" {
		parts = append(parts, styles.FaintText.Render(truncateMiddle(m.source, max(m.width/3, 10))))
	}
	return styles.Header.Width(m.width).Render(strings.Join(parts, "  "))
}

func (m Model) renderFooter(styles Styles) string {
	if m.status != "" {
		return styles.Footer.Width(m.width).Render(m.status)
	}
	var hints []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, h.Key+" "+strings.ToLower(h.Desc))
	}
	return styles.Footer.Width(m.width).Render(strings.Join(hints, " · "))
}

func (m Model) renderZone(styles Styles, z Zone, height int) string {
	keys := m.zoneKeys(z)
	inner := listWidth - 4

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(fmt.Sprintf("%s (%d)", z, len(keys))))
	rows := max(height-1, 0)

	// Scroll so the selection stays visible.
	start := 0
	if sel := m.selected[z]; sel >= rows && rows > 0 {
		start = sel - rows + 1
	}
	for i := start; i < len(keys) && i < start+rows; i++ {
		b.WriteString("\n")
		label := m.cardLabel(keys[i])
		line := truncate(label, inner)
		switch {
		case z == m.zone && i == m.selected[z]:
			b.WriteString(styles.Selected.Width(inner).Render(line))
		case !m.resolved(keys[i]):
			b.WriteString(styles.FaintText.Render(line))
		default:
			b.WriteString(styles.Text.Render(line))
		}
	}
	if len(keys) == 0 {
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render("empty"))
	}

	pane := styles.Pane
	if z == m.zone {
		pane = styles.FocusedPane
	}
	return pane.Width(listWidth - 2).Height(max(height, 1)).Render(b.String())
}

func (m Model) resolved(k card.Key) bool {
	_, ok := m.snapshot.Card(k)
	return ok
}

func (m Model) cardLabel(k card.Key) string {
	if md, ok := m.snapshot.Card(k); ok && md.Name != "" {
		return md.Name
	}
	return k.String()
}

func (m *Model) refreshDetail() {
	if !m.ready {
		return
	}
	m.detail.SetContent(m.renderDetail())
}

func (m Model) renderDetail() string {
	styles := m.theme.Styles()

	k, ok := m.selectedKey()
	if !ok {
		return styles.FaintText.Render("No card selected in " + strings.ToLower(m.zone.String()) + ".")
	}
	md, ok := m.snapshot.Card(k)
	if !ok {
		return styles.Text.Bold(true).Render(k.String()) + "\n\n" +
			styles.FaintText.Render("Waiting for card data...")
	}

	label := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Muted)).Width(10)
	row := func(name, value string) string {
		return label.Render(name) + styles.Text.Render(value) + "\n"
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(md.Name))
	if md.DraftStats != nil && md.DraftStats.Rarity != "" {
		b.WriteString("  ")
		b.WriteString(styles.RarityStyle(md.DraftStats.Rarity).Render(md.DraftStats.Rarity))
	}
	b.WriteString("\n\n")
	b.WriteString(row("key", k.String()))
	if md.OracleID != "" {
		b.WriteString(row("oracle", md.OracleID))
	}
	b.WriteString(row("art", artPosition(md)))
	if md.ImageURI != "" {
		b.WriteString(row("image", truncateMiddle(md.ImageURI, max(m.detail.Width-12, 16))))
	}

	if m.showStats {
		b.WriteString("\n")
		b.WriteString(m.renderStats(styles, md.DraftStats))
	}
	return b.String()
}

func (m Model) renderStats(styles Styles, ds *card.DraftStats) string {
	if ds == nil {
		return styles.FaintText.Render("No draft stats.")
	}

	var b strings.Builder
	title := "Draft stats"
	if ds.Format != "" {
		title += " · " + ds.Format
	}
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n")
	if ds.Ambiguous {
		b.WriteString(styles.WarningText.Render("several cards share this name"))
		b.WriteString("\n")
	}

	label := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Muted)).Width(10)
	mt := ds.Metrics
	for _, r := range [][2]string{
		{"GIH WR", percent(mt.GIHWR)},
		{"OH WR", percent(mt.OHWR)},
		{"GD WR", percent(mt.GDWR)},
		{"GP WR", percent(mt.GPWR)},
		{"IIH", fmt.Sprintf("%+.1fpp", mt.IIHPP)},
		{"ALSA", fmt.Sprintf("%.2f", mt.ALSA)},
		{"ATA", fmt.Sprintf("%.2f", mt.ATA)},
		{"GIH", fmt.Sprintf("%d games", mt.GIH)},
	} {
		b.WriteString(label.Render(r[0]))
		b.WriteString(styles.Text.Render(r[1]))
		b.WriteString("\n")
	}
	return b.String()
}

// artPosition reports which print the effective image is, e.g. "2/5".
func artPosition(md card.Metadata) string {
	n := len(md.PrintURIs)
	if n == 0 {
		return "1/1"
	}
	idx := md.PrintIndex(md.ImageURI)
	if idx < 0 {
		return fmt.Sprintf("?/%d", n)
	}
	return fmt.Sprintf("%d/%d", idx+1, n)
}

func percent(v float64) string {
	if v == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", v*100)
}
