package usecase

import (
	"context"

	"github.com/kmcbride/sleeper-exposure/internal/domain/exposure"
)

// ExternalUser is the resolved identity behind a username lookup.
type ExternalUser struct {
	ID          string
	Username    string
	DisplayName string
}

// ExternalLeague is one league descriptor from the league listing.
type ExternalLeague struct {
	ID   string
	Name string
}

// ExternalRoster is one roster descriptor within a league.
type ExternalRoster struct {
	OwnerID  string
	RosterID int
	Players  []string
}

// RosterProvider covers the per-user Sleeper endpoints.
type RosterProvider interface {
	FetchUser(ctx context.Context, username string) (ExternalUser, error)
	FetchLeaguesForUser(ctx context.Context, userID, sport, season string) ([]ExternalLeague, error)
	FetchRosters(ctx context.Context, leagueID string) ([]ExternalRoster, error)
}

// CatalogProvider covers the bulk catalog endpoints fetched once per run.
type CatalogProvider interface {
	FetchPlayers(ctx context.Context, sport string) (map[string]exposure.Player, error)
	FetchSeasonStats(ctx context.Context, sport, seasonType, season string) (map[string]exposure.SeasonStats, error)
}

// IDMapProvider resolves the Sleeper-to-ESPN identifier crosswalk.
type IDMapProvider interface {
	FetchIDMap(ctx context.Context) (map[string]string, error)
}
