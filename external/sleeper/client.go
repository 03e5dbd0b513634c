package sleeper

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/kmcbride/sleeper-exposure/internal/domain/exposure"
	"github.com/kmcbride/sleeper-exposure/internal/platform/logging"
	"github.com/kmcbride/sleeper-exposure/internal/platform/resilience"
	"github.com/kmcbride/sleeper-exposure/internal/usecase"
)

const defaultBaseURL = "https://api.sleeper.app/v1"

// The bulk player catalog is ~12MB of JSON; everything else is small.
const maxResponseBytes = 32 << 20

var errSleeperTransient = crerr.New("sleeper transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := cfg.CircuitBreaker.Normalize()

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

// FetchUser resolves a username to a Sleeper account. A non-success
// status maps to ErrUserNotFound since the lookup endpoint reports
// unknown usernames that way.
func (c *Client) FetchUser(ctx context.Context, username string) (usecase.ExternalUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return usecase.ExternalUser{}, fmt.Errorf("%w: username is required", usecase.ErrInvalidInput)
	}

	var envelope userEnvelope
	if err := c.doJSON(ctx, "/user/"+username, &envelope); err != nil {
		if isNonSuccessStatus(err) {
			return usecase.ExternalUser{}, fmt.Errorf("%w: username=%s", usecase.ErrUserNotFound, username)
		}
		return usecase.ExternalUser{}, fmt.Errorf("fetch user username=%s: %w", username, err)
	}
	if strings.TrimSpace(envelope.UserID) == "" {
		return usecase.ExternalUser{}, fmt.Errorf("%w: username=%s", usecase.ErrUserNotFound, username)
	}

	return usecase.ExternalUser{
		ID:          envelope.UserID,
		Username:    envelope.Username,
		DisplayName: envelope.DisplayName,
	}, nil
}

func (c *Client) FetchLeaguesForUser(ctx context.Context, userID, sport, season string) ([]usecase.ExternalLeague, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/user/%s/leagues/%s/%s", userID, sport, season)
	var items []leagueItem
	if err := c.doJSON(ctx, path, &items); err != nil {
		return nil, fmt.Errorf("fetch leagues user_id=%s season=%s: %w", userID, season, err)
	}

	out := make([]usecase.ExternalLeague, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.LeagueID) == "" {
			continue
		}
		out = append(out, usecase.ExternalLeague{
			ID:   item.LeagueID,
			Name: strings.TrimSpace(item.Name),
		})
	}
	return out, nil
}

func (c *Client) FetchRosters(ctx context.Context, leagueID string) ([]usecase.ExternalRoster, error) {
	if strings.TrimSpace(leagueID) == "" {
		return nil, fmt.Errorf("%w: league id is required", usecase.ErrInvalidInput)
	}

	var items []rosterItem
	if err := c.doJSON(ctx, "/league/"+leagueID+"/rosters", &items); err != nil {
		return nil, fmt.Errorf("fetch rosters league_id=%s: %w", leagueID, err)
	}

	out := make([]usecase.ExternalRoster, 0, len(items))
	for _, item := range items {
		out = append(out, usecase.ExternalRoster{
			OwnerID:  item.OwnerID,
			RosterID: item.RosterID,
			Players:  item.Players,
		})
	}
	return out, nil
}

func (c *Client) FetchPlayers(ctx context.Context, sport string) (map[string]exposure.Player, error) {
	var items map[string]playerItem
	if err := c.doJSON(ctx, "/players/"+sport, &items); err != nil {
		return nil, fmt.Errorf("fetch player catalog sport=%s: %w", sport, err)
	}

	out := make(map[string]exposure.Player, len(items))
	for id, item := range items {
		if strings.TrimSpace(id) == "" {
			continue
		}
		out[id] = exposure.Player{
			ID:       id,
			Name:     item.displayName(),
			Position: exposure.Position(strings.TrimSpace(item.Position)),
			Team:     strings.TrimSpace(item.Team),
		}
	}
	return out, nil
}

func (c *Client) FetchSeasonStats(ctx context.Context, sport, seasonType, season string) (map[string]exposure.SeasonStats, error) {
	path := fmt.Sprintf("/stats/%s/%s/%s", sport, seasonType, season)
	var items map[string]statsItem
	if err := c.doJSON(ctx, path, &items); err != nil {
		return nil, fmt.Errorf("fetch season stats sport=%s season=%s: %w", sport, season, err)
	}

	out := make(map[string]exposure.SeasonStats, len(items))
	for id, item := range items {
		out[id] = exposure.SeasonStats{
			PassYards:  item.PassYards,
			PassTD:     item.PassTD,
			RushYards:  item.RushYards,
			RushTD:     item.RushTD,
			Receptions: item.Receptions,
			RecYards:   item.RecYards,
			RecTD:      item.RecTD,
			PointsPPR:  item.PointsPPR,
		}
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "sleeper circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: sleeper api is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errSleeperTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode sleeper payload: %w", err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errSleeperTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errSleeperTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: api status=%d body=%s", errSleeperTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, &statusError{code: resp.StatusCode, body: abbreviateBody(raw)}
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("sleeper request failed")
	}
	c.logger.WarnContext(ctx, "sleeper request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

// statusError keeps the non-retryable HTTP status visible to callers so
// the user lookup can distinguish not-found from transport failures.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("sleeper api status=%d body=%s", e.code, e.body)
}

func isNonSuccessStatus(err error) bool {
	var se *statusError
	return stderrors.As(err, &se)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
