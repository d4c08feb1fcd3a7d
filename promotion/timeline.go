package promotion

import (
	"fmt"
	"strings"
)

// NoPromotionsText is the rendering of an empty timeline.
const NoPromotionsText = "No promotions recorded."

// FormatTimeline renders a timeline one promotion per line.
func FormatTimeline(entries []TimelineEntry) string {
	if len(entries) == 0 {
		return NoPromotionsText
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

func (e TimelineEntry) String() string {
	name := e.CauseName
	if name == "" {
		name = "Unknown"
	}
	return fmt.Sprintf("Promoted to %s on %s (triggered by retirement of %s [%s])",
		e.NewRank, e.Date, name, e.CauseID)
}
