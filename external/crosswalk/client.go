package crosswalk

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kmcbride/sleeper-exposure/internal/platform/logging"
)

// defaultSourceURL is the DynastyProcess player id database, a public
// CSV keyed by platform-specific id columns.
const defaultSourceURL = "https://raw.githubusercontent.com/dynastyprocess/data/master/files/db_playerids.csv"

const (
	sourceIDColumn   = "sleeper_id"
	externalIDColumn = "espn_id"
)

type ClientConfig struct {
	HTTPClient *http.Client
	SourceURL  string
	Timeout    time.Duration
	Logger     *logging.Logger
}

// Client fetches the Sleeper-to-ESPN identifier crosswalk. Callers treat
// any error as a degraded (empty-map) outcome; this client only reports
// what went wrong.
type Client struct {
	httpClient *http.Client
	sourceURL  string
	logger     *logging.Logger
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
		httpClient.Timeout = 15 * time.Second
	}

	sourceURL := strings.TrimSpace(cfg.SourceURL)
	if sourceURL == "" {
		sourceURL = defaultSourceURL
	}

	return &Client{
		httpClient: httpClient,
		sourceURL:  sourceURL,
		logger:     logger,
	}
}

// FetchIDMap downloads and parses the crosswalk table. Only rows with
// both identifiers present make it into the map. Single attempt.
func (c *Client) FetchIDMap(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build crosswalk request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch crosswalk: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch crosswalk: status=%d", resp.StatusCode)
	}

	return parseIDMap(resp.Body)
}

func parseIDMap(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read crosswalk header: %w", err)
	}

	sourceIdx := columnIndex(header, sourceIDColumn)
	externalIdx := columnIndex(header, externalIDColumn)
	if sourceIdx < 0 || externalIdx < 0 {
		return nil, fmt.Errorf("crosswalk header missing %s or %s column", sourceIDColumn, externalIDColumn)
	}

	out := make(map[string]string, 4096)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Partial map is still useful for best-effort enrichment.
			return out, nil
		}

		sourceID := strings.TrimSpace(fieldAt(record, sourceIdx))
		externalID := strings.TrimSpace(fieldAt(record, externalIdx))
		if sourceID == "" || externalID == "" {
			continue
		}
		out[sourceID] = externalID
	}

	return out, nil
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}

func fieldAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
