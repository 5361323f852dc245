package tournamentapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	dateLayout      = "2006-01-02"
	maxResponseSize = 8 << 20
	defaultPageSize = 100
)

// Config configures the HTTP client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string

	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxTries          uint
	RetryInterval     time.Duration
	CacheTTL          time.Duration
}

// StatusError carries an unexpected HTTP status from the remote API.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tournament api: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// HTTPClient implements Client over the remote JSON API.
type HTTPClient struct {
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	cache    Cache
	cacheTTL time.Duration
	maxTries uint
	interval time.Duration
	logger   *slog.Logger
}

// NewHTTPClient builds a client. When client credentials are configured every
// request carries an OAuth2 bearer token obtained with the client-credentials
// grant. A nil cache disables response caching.
func NewHTTPClient(ctx context.Context, cfg Config, cache Cache, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 4
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cache == nil {
		cache = NoopCache{}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := max(cfg.Burst, 1)

	base := &http.Client{Timeout: cfg.Timeout}
	httpClient := base
	if cfg.ClientID != "" && cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		httpClient = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
		httpClient.Timeout = cfg.Timeout
	}

	return &HTTPClient{
		baseURL:  cfg.BaseURL,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, burst),
		cache:    cache,
		cacheTTL: cfg.CacheTTL,
		maxTries: cfg.MaxTries,
		interval: cfg.RetryInterval,
		logger:   logger.With("component", "tournament_api"),
	}
}

func (c *HTTPClient) ListTournaments(ctx context.Context, q ListQuery) ([]TournamentSummary, error) {
	params := url.Values{}
	if !q.RefDate.IsZero() {
		params.Set("refDate", q.RefDate.Format(dateLayout))
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	params.Set("pageSize", strconv.Itoa(pageSize))
	if q.Search != "" {
		params.Set("q", q.Search)
	}

	var out []TournamentSummary
	if err := c.get(ctx, "/tournaments", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetTournament(ctx context.Context, code string) (*Tournament, error) {
	out := new(Tournament)
	if err := c.get(ctx, "/tournaments/"+url.PathEscape(code), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetEvents(ctx context.Context, tournamentCode string) ([]Event, error) {
	var out []Event
	if err := c.get(ctx, tournamentPath(tournamentCode, "events"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetEvent(ctx context.Context, tournamentCode, eventCode string) (*Event, error) {
	out := new(Event)
	if err := c.get(ctx, tournamentPath(tournamentCode, "events", eventCode), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetDraws(ctx context.Context, tournamentCode, eventCode string) ([]Draw, error) {
	var out []Draw
	if err := c.get(ctx, tournamentPath(tournamentCode, "events", eventCode, "draws"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetDraw(ctx context.Context, tournamentCode, drawCode string) (*Draw, error) {
	out := new(Draw)
	if err := c.get(ctx, tournamentPath(tournamentCode, "draws", drawCode), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetEntries(ctx context.Context, tournamentCode, drawCode string) ([]Entry, error) {
	var out []Entry
	if err := c.get(ctx, tournamentPath(tournamentCode, "draws", drawCode, "entries"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetEncounters(ctx context.Context, tournamentCode, drawCode string) ([]Encounter, error) {
	var out []Encounter
	if err := c.get(ctx, tournamentPath(tournamentCode, "draws", drawCode, "encounters"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetEncounter(ctx context.Context, tournamentCode, encounterCode string) (*Encounter, error) {
	out := new(Encounter)
	if err := c.get(ctx, tournamentPath(tournamentCode, "encounters", encounterCode), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetTeam(ctx context.Context, tournamentCode, teamCode string) (*Team, error) {
	out := new(Team)
	if err := c.get(ctx, tournamentPath(tournamentCode, "teams", teamCode), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetMatchesByDraw(ctx context.Context, tournamentCode, drawCode string) ([]Match, error) {
	var out []Match
	if err := c.get(ctx, tournamentPath(tournamentCode, "draws", drawCode, "matches"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetMatchesByDate(ctx context.Context, tournamentCode string, date time.Time) ([]Match, error) {
	var out []Match
	params := url.Values{"date": {date.Format(dateLayout)}}
	if err := c.get(ctx, tournamentPath(tournamentCode, "matches"), params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetMatchesByEncounter(ctx context.Context, tournamentCode, encounterCode string) ([]Match, error) {
	var out []Match
	if err := c.get(ctx, tournamentPath(tournamentCode, "encounters", encounterCode, "matches"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetMatch(ctx context.Context, tournamentCode, matchCode string) (*Match, error) {
	out := new(Match)
	if err := c.get(ctx, tournamentPath(tournamentCode, "matches", matchCode), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func tournamentPath(code string, segments ...string) string {
	p := "/tournaments/" + url.PathEscape(code)
	for _, s := range segments {
		p += "/" + url.PathEscape(s)
	}
	return p
}

// get fetches path and decodes the JSON body into out. Transient failures
// (network errors, 429 and 5xx) are retried with exponential backoff.
func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	if body, ok := c.cached(ctx, target); ok {
		return decode(target, body, out)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.interval

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.fetch(ctx, target)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.WarnContext(ctx, "Retrying tournament api request",
				"url", target,
				"wait", wait,
				"error", err,
			)
		}),
	)
	if err != nil {
		return err
	}

	if c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, cacheKey(target), body, c.cacheTTL); err != nil {
			c.logger.WarnContext(ctx, "Failed to cache tournament api response", "url", target, "error", err)
		}
	}
	return decode(target, body, out)
}

func (c *HTTPClient) cached(ctx context.Context, target string) ([]byte, bool) {
	if c.cacheTTL <= 0 {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, cacheKey(target))
	if err != nil {
		c.logger.WarnContext(ctx, "Tournament api cache lookup failed", "url", target, "error", err)
		return nil, false
	}
	return body, ok
}

func (c *HTTPClient) fetch(ctx context.Context, target string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrNotFound, target))
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return nil, backoff.RetryAfter(secs)
		}
		return nil, statusError(resp.StatusCode, target, body)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, statusError(resp.StatusCode, target, body)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, backoff.Permanent(statusError(resp.StatusCode, target, body))
	}
	return body, nil
}

func statusError(code int, target string, body []byte) *StatusError {
	const maxBody = 256
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &StatusError{StatusCode: code, URL: target, Body: string(body)}
}

func decode(target string, body []byte, out any) error {
	if len(body) == 0 {
		return fmt.Errorf("%w: empty body from %s", ErrNotFound, target)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", target, err)
	}
	return nil
}

func cacheKey(target string) string {
	return "tournamentapi:" + target
}
