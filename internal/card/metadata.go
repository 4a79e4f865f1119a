package card

// Metadata is the resolved record for a Key. Name, ScryfallID, OracleID and
// ImageURI never change once stored; PrintURIs may be filled in later.
type Metadata struct {
	Name       string      `json:"name"`
	ScryfallID string      `json:"scryfallId,omitempty"`
	OracleID   string      `json:"oracleId,omitempty"`
	ImageURI   string      `json:"imageUri,omitempty"`
	PrintURIs  []string    `json:"printUris,omitempty"`
	DraftStats *DraftStats `json:"draftStats,omitempty"`
}

// DraftStats is a 17Lands card-ratings annotation.
type DraftStats struct {
	Source    string       `json:"source"`
	Format    string       `json:"format,omitempty"`
	Cohort    string       `json:"cohort,omitempty"`
	Name      string       `json:"name"`
	OracleID  string       `json:"oracleId,omitempty"`
	Color     string       `json:"color,omitempty"`
	Rarity    string       `json:"rarity,omitempty"`
	Ambiguous bool         `json:"ambiguous,omitempty"`
	Metrics   DraftMetrics `json:"metrics"`
}

// DraftMetrics mirrors the 17Lands card ratings columns. Rates are 0..1;
// IIHPP is in percentage points.
type DraftMetrics struct {
	Seen   int     `json:"seen"`
	ALSA   float64 `json:"alsa"`
	Picked int     `json:"picked"`
	ATA    float64 `json:"ata"`
	GP     int     `json:"gp"`
	GPPct  float64 `json:"gpPct"`
	GPWR   float64 `json:"gpWr"`
	OH     int     `json:"oh"`
	OHWR   float64 `json:"ohWr"`
	GD     int     `json:"gd"`
	GDWR   float64 `json:"gdWr"`
	GIH    int     `json:"gih"`
	GIHWR  float64 `json:"gihWr"`
	GNS    int     `json:"gns"`
	GNSWR  float64 `json:"gnsWr"`
	IIHPP  float64 `json:"iihPp"`
}

// Patch carries the mutable fields of a Metadata record. Nil fields are left
// untouched.
type Patch struct {
	PrintURIs  []string
	DraftStats *DraftStats
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.PrintURIs == nil && p.DraftStats == nil
}

// Apply merges the patch into a copy of m.
func (m Metadata) Apply(p Patch) Metadata {
	out := m.Clone()
	if p.PrintURIs != nil {
		out.PrintURIs = cloneStrings(p.PrintURIs)
	}
	if p.DraftStats != nil {
		stats := *p.DraftStats
		out.DraftStats = &stats
	}
	return out
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	out := m
	out.PrintURIs = cloneStrings(m.PrintURIs)
	if m.DraftStats != nil {
		stats := *m.DraftStats
		out.DraftStats = &stats
	}
	return out
}

// PrintIndex returns the position of uri in the print list, or -1.
func (m Metadata) PrintIndex(uri string) int {
	if uri == "" {
		return -1
	}
	for i, candidate := range m.PrintURIs {
		if candidate == uri {
			return i
		}
	}
	return -1
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	dup := make([]string, len(values))
	copy(dup, values)
	return dup
}
