package exposure

import "fmt"

// Position represents NFL position codes as reported by the Sleeper catalog.
type Position string

const (
	PositionQuarterback   Position = "QB"
	PositionRunningBack   Position = "RB"
	PositionWideReceiver  Position = "WR"
	PositionTightEnd      Position = "TE"
	PositionKicker        Position = "K"
	PositionDefense       Position = "DEF"
)

// TeamFreeAgent marks a player without an NFL team in the bulk catalog.
const TeamFreeAgent = "FA"

// Player is an immutable catalog record from the bulk player endpoint.
type Player struct {
	ID       string
	Name     string
	Position Position
	Team     string
}

// League is one membership fact: the user owns a roster in this league.
type League struct {
	Name     string `json:"name"`
	RosterID int    `json:"roster_id"`
}

// SeasonStats is the seasonal production record attached to an exposure
// entry. Missing fields stay zero.
type SeasonStats struct {
	PassYards  float64 `json:"pass_yd"`
	PassTD     float64 `json:"pass_td"`
	RushYards  float64 `json:"rush_yd"`
	RushTD     float64 `json:"rush_td"`
	Receptions float64 `json:"rec"`
	RecYards   float64 `json:"rec_yd"`
	RecTD      float64 `json:"rec_td"`
	PointsPPR  float64 `json:"pts_ppr"`
}

// PlayerExposure is the aggregated view of one player across every league
// the user was found in. LeagueCount and Leagues grow together during
// collection; name/position/team/stats/ESPNID are filled in a single
// enrichment pass afterwards.
type PlayerExposure struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Position    Position    `json:"position"`
	Team        string      `json:"team"`
	LeagueCount int         `json:"league_count"`
	Leagues     []League    `json:"leagues"`
	ESPNID      string      `json:"espn_id,omitempty"`
	Stats       SeasonStats `json:"stats"`

	// Seq is the first-seen order during collection and is the
	// deterministic tie-break for equal league counts.
	Seq int `json:"-"`
}

// AddLeague appends a membership and increments the count in one step so
// the count/len invariant cannot drift.
func (e *PlayerExposure) AddLeague(l League) {
	e.Leagues = append(e.Leagues, l)
	e.LeagueCount = len(e.Leagues)
}

func (e PlayerExposure) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("exposure player id is required")
	}
	if e.LeagueCount < 1 {
		return fmt.Errorf("exposure league count must be >= 1, got %d", e.LeagueCount)
	}
	if e.LeagueCount != len(e.Leagues) {
		return fmt.Errorf("exposure league count %d does not match %d memberships", e.LeagueCount, len(e.Leagues))
	}

	return nil
}
