// Package api talks to the external rank service. Account and league entries
// follow the Riot API layout; the base URL is configurable so a proxy or a
// compatible mirror can stand in.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"aram-scrim/internal/config"
	"aram-scrim/internal/constants"
	"aram-scrim/internal/domain"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const SoloQueue = "RANKED_SOLO_5x5"

// ErrDisabled is returned when no rank API is configured.
var ErrDisabled = errors.New("rank api disabled")

type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rank api rate limited, retry after %s", e.RetryAfter)
}

type RankClient struct {
	baseURL string
	apiKey  string
	client  *fasthttp.Client
	limiter *rate.Limiter

	mu          sync.RWMutex
	lastLimited time.Time
}

func NewRankClient(cfg *config.Config) *RankClient {
	return newRankClient(cfg.RankAPIURL, cfg.RankAPIKey, cfg.RankAPIRPM, &fasthttp.Client{
		MaxConnsPerHost:     100,
		ReadTimeout:         constants.RankAPITimeout,
		WriteTimeout:        constants.RankAPITimeout,
		MaxIdleConnDuration: 1 * time.Minute,
	})
}

func newRankClient(baseURL, apiKey string, requestsPerMinute int, client *fasthttp.Client) *RankClient {
	rps := float64(requestsPerMinute) / 60.0
	return &RankClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (c *RankClient) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// LastRateLimited reports when the service last answered 429.
func (c *RankClient) LastRateLimited() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastLimited
}

type AccountResponse struct {
	Puuid    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

type LeagueEntry struct {
	QueueType    string `json:"queueType"`
	Tier         string `json:"tier"`
	Rank         string `json:"rank"`
	LeaguePoints int    `json:"leaguePoints"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// Label renders the entry the way the rating weight table keys it, for
// example "GOLD II". Apex tiers have no division.
func (e LeagueEntry) Label() string {
	switch e.Tier {
	case "MASTER", "GRANDMASTER", "CHALLENGER":
		return e.Tier
	}
	return strings.TrimSpace(e.Tier + " " + e.Rank)
}

// GetAccount resolves a "Name#TAG" id to the account's stable reference.
func (c *RankClient) GetAccount(ctx context.Context, riotID string) (*AccountResponse, error) {
	name, tag, ok := strings.Cut(riotID, "#")
	if !ok || name == "" || tag == "" {
		return nil, fmt.Errorf("invalid riot id %q: expected Name#TAG", riotID)
	}
	path := fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s", url.PathEscape(name), url.PathEscape(tag))
	return doRequest[AccountResponse](ctx, c, path)
}

func (c *RankClient) GetLeagueEntries(ctx context.Context, puuid string) ([]LeagueEntry, error) {
	path := fmt.Sprintf("/lol/league/v4/entries/by-puuid/%s", url.PathEscape(puuid))
	entries, err := doRequest[[]LeagueEntry](ctx, c, path)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

// GetRank returns the solo queue label of a player, or "" when unranked.
func (c *RankClient) GetRank(ctx context.Context, puuid string) (string, error) {
	entries, err := c.GetLeagueEntries(ctx, puuid)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.QueueType == SoloQueue {
			return e.Label(), nil
		}
	}
	return "", nil
}

func doRequest[T any](ctx context.Context, client *RankClient, path string) (*T, error) {
	if !client.Enabled() {
		return nil, ErrDisabled
	}
	if err := client.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(client.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Riot-Token", client.apiKey)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			if errors.Is(err, fasthttp.ErrTimeout) {
				return nil, fmt.Errorf("rank api %s: %w", path, context.DeadlineExceeded)
			}
			return nil, fmt.Errorf("rank api %s: %w", path, err)
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("rank api %s: %w", path, err)
		}
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return nil, fmt.Errorf("rank api %s: %w", path, domain.ErrNotFound)
	case fasthttp.StatusTooManyRequests:
		retry, _ := strconv.Atoi(string(resp.Header.Peek("Retry-After")))
		client.mu.Lock()
		client.lastLimited = time.Now()
		client.mu.Unlock()
		return nil, &RateLimitedError{RetryAfter: time.Duration(retry) * time.Second}
	default:
		return nil, fmt.Errorf("API error: %d", resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &result, nil
}
