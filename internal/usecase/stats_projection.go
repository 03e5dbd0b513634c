package usecase

import (
	"fmt"

	"github.com/kmcbride/sleeper-exposure/internal/domain/exposure"
)

const (
	espnHeadshotURLFormat = "https://a.espncdn.com/i/headshots/nfl/players/full/%s.png"
	defaultHeadshotURL    = "https://sleepercdn.com/images/v2/icons/player_default.webp"
)

// StatLine is one label/value pair for the position-relevant stat view.
type StatLine struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ProjectStats selects the stat fields relevant to a position, in a
// fixed order. Positions outside the table get no stat lines. Missing
// numeric fields were already zero-defaulted at decode time.
func ProjectStats(position exposure.Position, stats exposure.SeasonStats) []StatLine {
	switch position {
	case exposure.PositionQuarterback:
		return []StatLine{
			{Label: "Pass YDS", Value: stats.PassYards},
			{Label: "Pass TD", Value: stats.PassTD},
			{Label: "Rush YDS", Value: stats.RushYards},
			{Label: "Rush TD", Value: stats.RushTD},
		}
	case exposure.PositionRunningBack:
		return []StatLine{
			{Label: "Rush YDS", Value: stats.RushYards},
			{Label: "Rush TD", Value: stats.RushTD},
			{Label: "Rec", Value: stats.Receptions},
			{Label: "Rec YDS", Value: stats.RecYards},
		}
	case exposure.PositionWideReceiver, exposure.PositionTightEnd:
		return []StatLine{
			{Label: "Rec", Value: stats.Receptions},
			{Label: "Rec YDS", Value: stats.RecYards},
			{Label: "Rec TD", Value: stats.RecTD},
		}
	default:
		return nil
	}
}

// HeadshotURL builds the display image URL from the crosswalk id,
// falling back to the platform placeholder when the id is absent.
func HeadshotURL(espnID string) string {
	if espnID == "" {
		return defaultHeadshotURL
	}
	return fmt.Sprintf(espnHeadshotURLFormat, espnID)
}
