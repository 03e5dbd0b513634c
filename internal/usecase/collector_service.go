package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kmcbride/sleeper-exposure/internal/domain/exposure"
	"github.com/kmcbride/sleeper-exposure/internal/platform/logging"
	"github.com/panjf2000/ants/v2"
)

// LeagueFailurePolicy decides what a single league's roster fetch
// failure does to the whole batch.
type LeagueFailurePolicy string

const (
	// PolicyIsolate skips the failed league and reports its name.
	PolicyIsolate LeagueFailurePolicy = "isolate"
	// PolicyAbort fails the entire collection on the first failed league.
	PolicyAbort LeagueFailurePolicy = "abort"
)

type CollectorConfig struct {
	Sport         string
	MaxWorkers    int
	FailurePolicy LeagueFailurePolicy
}

// RosterCollection is the partially-aggregated output of one collection
// run: per-player membership facts, before catalog enrichment.
type RosterCollection struct {
	User          ExternalUser
	Leagues       []ExternalLeague
	Partial       map[string]*exposure.PlayerExposure
	FailedLeagues []string
}

type RosterCollector struct {
	provider RosterProvider
	cfg      CollectorConfig
	logger   *logging.Logger
}

func NewRosterCollector(provider RosterProvider, cfg CollectorConfig, logger *logging.Logger) *RosterCollector {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Sport == "" {
		cfg.Sport = "nfl"
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 8
	}
	if cfg.FailurePolicy != PolicyAbort {
		cfg.FailurePolicy = PolicyIsolate
	}

	return &RosterCollector{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

type leagueRosterOutcome struct {
	players  []string
	rosterID int
	err      error
}

// Collect resolves the username and gathers the user's roster from every
// league of the season. League roster fetches fan out on a worker pool
// with unordered completion; outcomes are folded in league-list order so
// first-seen order stays deterministic.
func (c *RosterCollector) Collect(ctx context.Context, username, season string) (RosterCollection, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterCollector.Collect")
	defer span.End()

	username = strings.TrimSpace(username)
	if username == "" {
		return RosterCollection{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	season = strings.TrimSpace(season)
	if season == "" {
		return RosterCollection{}, fmt.Errorf("%w: season is required", ErrInvalidInput)
	}

	user, err := c.provider.FetchUser(ctx, username)
	if err != nil {
		return RosterCollection{}, err
	}

	leagues, err := c.provider.FetchLeaguesForUser(ctx, user.ID, c.cfg.Sport, season)
	if err != nil {
		return RosterCollection{}, fmt.Errorf("%w: fetch leagues for user_id=%s: %v", ErrDependencyUnavailable, user.ID, err)
	}

	collection := RosterCollection{
		User:    user,
		Leagues: leagues,
		Partial: make(map[string]*exposure.PlayerExposure),
	}
	if len(leagues) == 0 {
		return collection, nil
	}

	workerCount := c.cfg.MaxWorkers
	if workerCount > len(leagues) {
		workerCount = len(leagues)
	}
	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return RosterCollection{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	outcomes := c.fanOutRosterFetches(ctx, pool, leagues, user.ID)

	seq := 0
	for i, league := range leagues {
		outcome := outcomes[i]
		if outcome.err != nil {
			if c.cfg.FailurePolicy == PolicyAbort {
				return RosterCollection{}, fmt.Errorf("%w: fetch rosters league=%s: %v", ErrDependencyUnavailable, league.Name, outcome.err)
			}
			c.logger.WarnContext(ctx, "league roster fetch failed, skipping league",
				"league_id", league.ID,
				"league_name", league.Name,
				"error", outcome.err,
			)
			collection.FailedLeagues = append(collection.FailedLeagues, league.Name)
			continue
		}
		if len(outcome.players) == 0 {
			continue
		}

		membership := exposure.League{Name: league.Name, RosterID: outcome.rosterID}
		for _, playerID := range outcome.players {
			if playerID == "" {
				continue
			}
			entry, ok := collection.Partial[playerID]
			if !ok {
				entry = &exposure.PlayerExposure{ID: playerID, Seq: seq}
				seq++
				collection.Partial[playerID] = entry
			}
			entry.AddLeague(membership)
		}
	}

	return collection, nil
}

// taskPool is the part of ants.Pool the fan-out uses.
type taskPool interface {
	Submit(task func()) error
}

// fanOutRosterFetches runs one roster fetch per league on the pool and
// waits for every submitted fetch before returning. A submit failure is
// recorded as that league's outcome; fetches already in flight still
// complete, so the outcomes slice is never written after return.
func (c *RosterCollector) fanOutRosterFetches(ctx context.Context, pool taskPool, leagues []ExternalLeague, userID string) []leagueRosterOutcome {
	outcomes := make([]leagueRosterOutcome, len(leagues))

	var workers sync.WaitGroup
	for i, league := range leagues {
		i, league := i, league
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			outcomes[i] = c.fetchUserRoster(ctx, league, userID)
		}); err != nil {
			workers.Done()
			outcomes[i] = leagueRosterOutcome{err: fmt.Errorf("submit roster fetch to worker pool: %w", err)}
		}
	}
	workers.Wait()

	return outcomes
}

// fetchUserRoster finds the roster owned by userID within one league. A
// league without a matching roster, or a roster without players, is an
// empty (not failed) outcome.
func (c *RosterCollector) fetchUserRoster(ctx context.Context, league ExternalLeague, userID string) leagueRosterOutcome {
	rosters, err := c.provider.FetchRosters(ctx, league.ID)
	if err != nil {
		return leagueRosterOutcome{err: err}
	}

	for _, roster := range rosters {
		if roster.OwnerID != userID {
			continue
		}
		return leagueRosterOutcome{
			players:  roster.Players,
			rosterID: roster.RosterID,
		}
	}

	return leagueRosterOutcome{}
}
