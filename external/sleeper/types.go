package sleeper

import "strings"

type userEnvelope struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type leagueItem struct {
	LeagueID string `json:"league_id"`
	Name     string `json:"name"`
	Sport    string `json:"sport"`
	Season   string `json:"season"`
}

type rosterItem struct {
	OwnerID  string   `json:"owner_id"`
	RosterID int      `json:"roster_id"`
	Players  []string `json:"players"`
}

type playerItem struct {
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
	Team      string `json:"team"`
}

// displayName falls back to first/last because team defenses and some
// inactive players have no full_name in the bulk catalog.
func (p playerItem) displayName() string {
	if name := strings.TrimSpace(p.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

type statsItem struct {
	PassYards  float64 `json:"pass_yd"`
	PassTD     float64 `json:"pass_td"`
	RushYards  float64 `json:"rush_yd"`
	RushTD     float64 `json:"rush_td"`
	Receptions float64 `json:"rec"`
	RecYards   float64 `json:"rec_yd"`
	RecTD      float64 `json:"rec_td"`
	PointsPPR  float64 `json:"pts_ppr"`
}
