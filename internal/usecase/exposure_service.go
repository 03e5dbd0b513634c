package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kmcbride/sleeper-exposure/internal/domain/exposure"
	"github.com/kmcbride/sleeper-exposure/internal/platform/cache"
	"github.com/kmcbride/sleeper-exposure/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

type ExposureServiceConfig struct {
	Sport string
	// SeasonType is applied when a request omits season_type.
	SeasonType string
	RunTimeout time.Duration
}

type ExposureInput struct {
	Username   string
	Season     string
	SeasonType string
}

// ExposureResult is the completed output of one aggregation run.
type ExposureResult struct {
	Username      string                    `json:"username"`
	Season        string                    `json:"season"`
	SeasonType    string                    `json:"season_type"`
	TotalLeagues  int                       `json:"total_leagues"`
	Players       []exposure.PlayerExposure `json:"players"`
	FailedLeagues []string                  `json:"failed_leagues,omitempty"`
	// Degraded means the identifier crosswalk was unavailable and
	// external ids are missing; the run itself still succeeded.
	Degraded   bool   `json:"degraded"`
	Generation uint64 `json:"-"`
}

// ExposureSnapshot is the state-holder view consumed by the
// presentation layer: the latest completed result plus loading/error.
type ExposureSnapshot struct {
	Loading      bool            `json:"loading"`
	ErrorMessage string          `json:"error,omitempty"`
	Result       *ExposureResult `json:"result,omitempty"`
}

// ExposureService runs the full pipeline: collect rosters, fetch the
// bulk catalogs and the crosswalk concurrently, then enrich. A
// monotonic generation counter guarantees a stale in-flight run can
// never overwrite a newer completed result.
type ExposureService struct {
	collector *RosterCollector
	catalog   CatalogProvider
	idMap     IDMapProvider
	store     *cache.Store
	cfg       ExposureServiceConfig
	logger    *logging.Logger

	generation atomic.Uint64

	mu              sync.RWMutex
	latest          ExposureSnapshot
	latestResultGen uint64
}

func NewExposureService(
	collector *RosterCollector,
	catalog CatalogProvider,
	idMap IDMapProvider,
	store *cache.Store,
	cfg ExposureServiceConfig,
	logger *logging.Logger,
) *ExposureService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Sport == "" {
		cfg.Sport = "nfl"
	}
	if cfg.SeasonType == "" {
		cfg.SeasonType = "regular"
	}
	if store == nil {
		store = cache.NewStore(0)
	}

	return &ExposureService{
		collector: collector,
		catalog:   catalog,
		idMap:     idMap,
		store:     store,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *ExposureService) Run(ctx context.Context, input ExposureInput) (ExposureResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ExposureService.Run")
	defer span.End()

	input, err := normalizeExposureInput(input, s.cfg.SeasonType)
	if err != nil {
		return ExposureResult{}, err
	}

	gen := s.generation.Add(1)
	s.markLoading()

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	collection, err := s.collector.Collect(ctx, input.Username, input.Season)
	if err != nil {
		s.finish(gen, nil, err)
		return ExposureResult{}, err
	}

	result := ExposureResult{
		Username:      input.Username,
		Season:        input.Season,
		SeasonType:    input.SeasonType,
		TotalLeagues:  len(collection.Leagues),
		Players:       []exposure.PlayerExposure{},
		FailedLeagues: collection.FailedLeagues,
		Generation:    gen,
	}
	if len(collection.Partial) == 0 {
		s.finish(gen, &result, nil)
		return result, nil
	}

	var (
		catalogMap map[string]exposure.Player
		statsMap   map[string]exposure.SeasonStats
		crosswalk  map[string]string
		degraded   bool
	)

	fetchers := pool.New().WithContext(ctx)
	fetchers.Go(func(ctx context.Context) error {
		value, err := s.store.GetOrLoad(ctx, "players:"+s.cfg.Sport, func(ctx context.Context) (any, error) {
			return s.catalog.FetchPlayers(ctx, s.cfg.Sport)
		})
		if err != nil {
			return fmt.Errorf("player catalog: %w", err)
		}
		catalogMap, _ = value.(map[string]exposure.Player)
		return nil
	})
	fetchers.Go(func(ctx context.Context) error {
		key := fmt.Sprintf("stats:%s:%s:%s", s.cfg.Sport, input.SeasonType, input.Season)
		value, err := s.store.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
			return s.catalog.FetchSeasonStats(ctx, s.cfg.Sport, input.SeasonType, input.Season)
		})
		if err != nil {
			return fmt.Errorf("season stats: %w", err)
		}
		statsMap, _ = value.(map[string]exposure.SeasonStats)
		return nil
	})
	fetchers.Go(func(ctx context.Context) error {
		// Crosswalk failure degrades enrichment instead of failing the run.
		value, err := s.store.GetOrLoad(ctx, "idmap", func(ctx context.Context) (any, error) {
			return s.idMap.FetchIDMap(ctx)
		})
		if err != nil {
			s.logger.WarnContext(ctx, "identifier crosswalk unavailable, continuing without external ids", "error", err)
			degraded = true
			crosswalk = map[string]string{}
			return nil
		}
		crosswalk, _ = value.(map[string]string)
		return nil
	})
	if err := fetchers.Wait(); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrDependencyUnavailable, err)
		s.finish(gen, nil, wrapped)
		return ExposureResult{}, wrapped
	}

	result.Players = Enrich(collection.Partial, catalogMap, statsMap, crosswalk)
	result.Degraded = degraded

	s.finish(gen, &result, nil)
	s.logger.InfoContext(ctx, "exposure aggregation completed",
		"username", input.Username,
		"season", input.Season,
		"total_leagues", result.TotalLeagues,
		"players", len(result.Players),
		"failed_leagues", len(result.FailedLeagues),
		"degraded", result.Degraded,
	)
	return result, nil
}

// Latest returns the state-holder snapshot for the presentation layer.
func (s *ExposureService) Latest() ExposureSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *ExposureService) markLoading() {
	s.mu.Lock()
	s.latest.Loading = true
	s.mu.Unlock()
}

// finish installs a run outcome unless a newer run already completed.
func (s *ExposureService) finish(gen uint64, result *ExposureResult, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen < s.latestResultGen {
		return
	}
	s.latestResultGen = gen

	s.latest.Loading = s.generation.Load() != gen
	if runErr != nil {
		s.latest.ErrorMessage = runErr.Error()
		return
	}
	s.latest.ErrorMessage = ""
	s.latest.Result = result
}

func normalizeExposureInput(input ExposureInput, defaultSeasonType string) (ExposureInput, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return ExposureInput{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	input.Season = strings.TrimSpace(input.Season)
	if input.Season == "" {
		return ExposureInput{}, fmt.Errorf("%w: season is required", ErrInvalidInput)
	}
	if year, err := strconv.Atoi(input.Season); err != nil || year < 2017 || year > 2100 {
		return ExposureInput{}, fmt.Errorf("%w: invalid season %q", ErrInvalidInput, input.Season)
	}

	input.SeasonType = strings.ToLower(strings.TrimSpace(input.SeasonType))
	switch input.SeasonType {
	case "":
		input.SeasonType = defaultSeasonType
	case "regular", "pre", "post":
	default:
		return ExposureInput{}, fmt.Errorf("%w: invalid season type %q", ErrInvalidInput, input.SeasonType)
	}

	return input, nil
}
