package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kmcbride/sleeper-exposure/internal/domain/exposure"
	"github.com/kmcbride/sleeper-exposure/internal/platform/cache"
	"github.com/kmcbride/sleeper-exposure/internal/platform/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	users    map[string]ExternalUser
	leagues  map[string][]ExternalLeague
	rosters  map[string][]ExternalRoster
	userGate map[string]chan struct{}
	entered  chan string
}

func (p *scriptedProvider) FetchUser(_ context.Context, username string) (ExternalUser, error) {
	if gate, ok := p.userGate[username]; ok {
		p.entered <- username
		<-gate
	}
	user, ok := p.users[username]
	if !ok {
		return ExternalUser{}, fmt.Errorf("%w: username=%s", ErrUserNotFound, username)
	}
	return user, nil
}

func (p *scriptedProvider) FetchLeaguesForUser(_ context.Context, userID, _, _ string) ([]ExternalLeague, error) {
	return p.leagues[userID], nil
}

func (p *scriptedProvider) FetchRosters(_ context.Context, leagueID string) ([]ExternalRoster, error) {
	return p.rosters[leagueID], nil
}

type stubCatalog struct {
	players    map[string]exposure.Player
	playersErr error
	stats      map[string]exposure.SeasonStats
	statsErr   error
	statsCalls atomic.Int64
}

func (c *stubCatalog) FetchPlayers(_ context.Context, _ string) (map[string]exposure.Player, error) {
	if c.playersErr != nil {
		return nil, c.playersErr
	}
	return c.players, nil
}

func (c *stubCatalog) FetchSeasonStats(_ context.Context, _, _, _ string) (map[string]exposure.SeasonStats, error) {
	c.statsCalls.Add(1)
	if c.statsErr != nil {
		return nil, c.statsErr
	}
	return c.stats, nil
}

type stubIDMap struct {
	idMap map[string]string
	err   error
}

func (m *stubIDMap) FetchIDMap(_ context.Context) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.idMap, nil
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{
		users: map[string]ExternalUser{
			"kmac": {ID: "u1", Username: "kmac"},
		},
		leagues: map[string][]ExternalLeague{
			"u1": {
				{ID: "L1", Name: "Alpha Dynasty"},
				{ID: "L2", Name: "Beta Redraft"},
			},
		},
		rosters: map[string][]ExternalRoster{
			"L1": {{OwnerID: "u1", RosterID: 3, Players: []string{"4046", "6794"}}},
			"L2": {{OwnerID: "u1", RosterID: 7, Players: []string{"4046"}}},
		},
	}
}

func newTestService(provider RosterProvider, catalog CatalogProvider, idMap IDMapProvider) *ExposureService {
	collector := NewRosterCollector(provider, CollectorConfig{}, logging.NewNop())
	return NewExposureService(
		collector,
		catalog,
		idMap,
		cache.NewStore(time.Minute),
		ExposureServiceConfig{},
		logging.NewNop(),
	)
}

func TestExposureService_Run(t *testing.T) {
	t.Parallel()

	catalog := &stubCatalog{
		players: map[string]exposure.Player{
			"4046": {ID: "4046", Name: "Patrick Mahomes", Position: exposure.PositionQuarterback, Team: "KC"},
			"6794": {ID: "6794", Name: "Justin Jefferson", Position: exposure.PositionWideReceiver, Team: "MIN"},
		},
		stats: map[string]exposure.SeasonStats{
			"4046": {PassYards: 4183},
		},
	}
	idMap := &stubIDMap{idMap: map[string]string{"4046": "3139477"}}
	service := newTestService(newScriptedProvider(), catalog, idMap)

	result, err := service.Run(context.Background(), ExposureInput{Username: "kmac", Season: "2025"})
	require.NoError(t, err)

	assert.Equal(t, "kmac", result.Username)
	assert.Equal(t, "2025", result.Season)
	assert.Equal(t, "regular", result.SeasonType)
	assert.Equal(t, 2, result.TotalLeagues)
	assert.False(t, result.Degraded)
	assert.Empty(t, result.FailedLeagues)

	require.Len(t, result.Players, 2)
	assert.Equal(t, "Patrick Mahomes", result.Players[0].Name)
	assert.Equal(t, 2, result.Players[0].LeagueCount)
	assert.Equal(t, "3139477", result.Players[0].ESPNID)
	assert.Equal(t, float64(4183), result.Players[0].Stats.PassYards)
	assert.Equal(t, "Justin Jefferson", result.Players[1].Name)

	snapshot := service.Latest()
	assert.False(t, snapshot.Loading)
	assert.Empty(t, snapshot.ErrorMessage)
	require.NotNil(t, snapshot.Result)
	assert.Equal(t, "kmac", snapshot.Result.Username)
}

func TestExposureService_Run_InputValidation(t *testing.T) {
	t.Parallel()

	service := newTestService(newScriptedProvider(), &stubCatalog{}, &stubIDMap{})

	_, err := service.Run(context.Background(), ExposureInput{Username: "", Season: "2025"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.Run(context.Background(), ExposureInput{Username: "kmac", Season: "not-a-year"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.Run(context.Background(), ExposureInput{Username: "kmac", Season: "2025", SeasonType: "playoffs"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExposureService_Run_ConfiguredSeasonTypeDefault(t *testing.T) {
	t.Parallel()

	catalog := &stubCatalog{
		players: map[string]exposure.Player{
			"4046": {ID: "4046", Name: "Patrick Mahomes", Position: exposure.PositionQuarterback, Team: "KC"},
		},
	}
	collector := NewRosterCollector(newScriptedProvider(), CollectorConfig{}, logging.NewNop())
	service := NewExposureService(
		collector,
		catalog,
		&stubIDMap{},
		cache.NewStore(time.Minute),
		ExposureServiceConfig{SeasonType: "post"},
		logging.NewNop(),
	)

	// An omitted season type falls back to the configured default.
	result, err := service.Run(context.Background(), ExposureInput{Username: "kmac", Season: "2025"})
	require.NoError(t, err)
	assert.Equal(t, "post", result.SeasonType)

	// An explicit season type still wins.
	result, err = service.Run(context.Background(), ExposureInput{Username: "kmac", Season: "2025", SeasonType: "pre"})
	require.NoError(t, err)
	assert.Equal(t, "pre", result.SeasonType)
}

func TestExposureService_Run_CrosswalkFailureDegrades(t *testing.T) {
	t.Parallel()

	catalog := &stubCatalog{
		players: map[string]exposure.Player{
			"4046": {ID: "4046", Name: "Patrick Mahomes", Position: exposure.PositionQuarterback, Team: "KC"},
			"6794": {ID: "6794", Name: "Justin Jefferson", Position: exposure.PositionWideReceiver, Team: "MIN"},
		},
	}
	idMap := &stubIDMap{err: fmt.Errorf("csv host unreachable")}
	service := newTestService(newScriptedProvider(), catalog, idMap)

	result, err := service.Run(context.Background(), ExposureInput{Username: "kmac", Season: "2025"})
	require.NoError(t, err)

	assert.True(t, result.Degraded)
	require.Len(t, result.Players, 2)
	for _, row := range result.Players {
		assert.Empty(t, row.ESPNID)
	}
}

func TestExposureService_Run_CatalogFailureAborts(t *testing.T) {
	t.Parallel()

	catalog := &stubCatalog{playersErr: fmt.Errorf("bulk endpoint down")}
	service := newTestService(newScriptedProvider(), catalog, &stubIDMap{})

	_, err := service.Run(context.Background(), ExposureInput{Username: "kmac", Season: "2025"})
	require.ErrorIs(t, err, ErrDependencyUnavailable)

	snapshot := service.Latest()
	assert.NotEmpty(t, snapshot.ErrorMessage)
	assert.Nil(t, snapshot.Result)
}

func TestExposureService_Run_UserNotFound(t *testing.T) {
	t.Parallel()

	service := newTestService(newScriptedProvider(), &stubCatalog{}, &stubIDMap{})

	_, err := service.Run(context.Background(), ExposureInput{Username: "ghost", Season: "2025"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestExposureService_Run_CachesBulkFetches(t *testing.T) {
	t.Parallel()

	catalog := &stubCatalog{
		players: map[string]exposure.Player{
			"4046": {ID: "4046", Name: "Patrick Mahomes", Position: exposure.PositionQuarterback, Team: "KC"},
		},
	}
	service := newTestService(newScriptedProvider(), catalog, &stubIDMap{})

	input := ExposureInput{Username: "kmac", Season: "2025"}
	_, err := service.Run(context.Background(), input)
	require.NoError(t, err)
	_, err = service.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, int64(1), catalog.statsCalls.Load())
}

func TestExposureService_StaleRunNeverOverwritesNewerResult(t *testing.T) {
	t.Parallel()

	provider := newScriptedProvider()
	provider.users["slowpoke"] = ExternalUser{ID: "u2", Username: "slowpoke"}
	provider.leagues["u2"] = []ExternalLeague{{ID: "L9", Name: "Gamma Bestball"}}
	provider.rosters["L9"] = []ExternalRoster{{OwnerID: "u2", RosterID: 1, Players: []string{"4046"}}}

	gate := make(chan struct{})
	provider.userGate = map[string]chan struct{}{"slowpoke": gate}
	provider.entered = make(chan string, 1)

	catalog := &stubCatalog{
		players: map[string]exposure.Player{
			"4046": {ID: "4046", Name: "Patrick Mahomes", Position: exposure.PositionQuarterback, Team: "KC"},
			"6794": {ID: "6794", Name: "Justin Jefferson", Position: exposure.PositionWideReceiver, Team: "MIN"},
		},
	}
	service := newTestService(provider, catalog, &stubIDMap{})

	slowDone := make(chan error, 1)
	go func() {
		_, err := service.Run(context.Background(), ExposureInput{Username: "slowpoke", Season: "2025"})
		slowDone <- err
	}()
	<-provider.entered

	// A second run starts and completes while the first is still blocked.
	_, err := service.Run(context.Background(), ExposureInput{Username: "kmac", Season: "2025"})
	require.NoError(t, err)

	close(gate)
	require.NoError(t, <-slowDone)

	snapshot := service.Latest()
	require.NotNil(t, snapshot.Result)
	assert.Equal(t, "kmac", snapshot.Result.Username)
	assert.False(t, snapshot.Loading)
}
