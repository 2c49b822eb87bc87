package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"royale-meta/internal/config"
	"royale-meta/internal/constants"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// Failure taxonomy surfaced to callers. Rate limiting is retried internally
// with bounded backoff before ErrRateLimited escapes; the other two are
// never retried.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
)

// Client wraps the Clash Royale REST API. A single process-wide limiter
// serializes requests across all endpoints, so every call site shares the
// same fixed inter-request interval.
type Client struct {
	apiKey     string
	baseURL    string
	maxRetries int
	client     *fasthttp.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.APIBaseURL,
		maxRetries: cfg.MaxRetries,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		limiter: rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		logger:  logger,
	}
}

func (c *Client) GetPlayer(ctx context.Context, tag string) (*PlayerResponse, error) {
	u := fmt.Sprintf("%s/players/%s", c.baseURL, url.PathEscape(tag))
	return doRequest[PlayerResponse](ctx, c, u)
}

// GetBattleLog returns the player's recent battles, most recent first. The
// upstream API caps the log length (typically 25).
func (c *Client) GetBattleLog(ctx context.Context, tag string) ([]BattleLogEntry, error) {
	u := fmt.Sprintf("%s/players/%s/battlelog", c.baseURL, url.PathEscape(tag))
	entries, err := doRequest[[]BattleLogEntry](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

func (c *Client) GetCards(ctx context.Context) ([]CardItem, error) {
	u := fmt.Sprintf("%s/cards", c.baseURL)
	resp, err := doRequest[CardsResponse](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func doRequest[T any](ctx context.Context, client *Client, url string) (*T, error) {
	var result T

	backoff := retry.WithMaxRetries(uint64(client.maxRetries), retry.NewExponential(constants.RetryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.limiter.Wait(ctx); err != nil {
			return err
		}

		body, err := client.do(ctx, url)
		if err != nil {
			if errors.Is(err, ErrRateLimited) {
				client.logger.Warn().Str("url", url).Msg("rate limited, backing off")
				return retry.RetryableError(err)
			}
			return err
		}

		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if err := statusError(resp.StatusCode()); err != nil {
		return nil, err
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func statusError(code int) error {
	switch code {
	case fasthttp.StatusOK:
		return nil
	case fasthttp.StatusNotFound:
		return ErrNotFound
	case fasthttp.StatusTooManyRequests:
		return ErrRateLimited
	case fasthttp.StatusUnauthorized, fasthttp.StatusForbidden:
		return ErrUnauthorized
	default:
		return fmt.Errorf("API error: %d", code)
	}
}

// battleTimeLayout is the compact timestamp format used by the battle log
// endpoint, e.g. "20250830T142501.000Z".
const battleTimeLayout = "20060102T150405.000Z"

func ParseBattleTime(s string) (time.Time, error) {
	return time.Parse(battleTimeLayout, s)
}

type PlayerResponse struct {
	Tag          string          `json:"tag"`
	Name         string          `json:"name"`
	Trophies     int             `json:"trophies"`
	BestTrophies int             `json:"bestTrophies"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
	BattleCount  int             `json:"battleCount"`
	CurrentDeck  []BattleLogCard `json:"currentDeck"`
}

type BattleLogEntry struct {
	Type       string `json:"type"`
	BattleTime string `json:"battleTime"`
	GameMode   struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"gameMode"`
	Arena struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"arena"`
	Team     []BattleLogPlayer `json:"team"`
	Opponent []BattleLogPlayer `json:"opponent"`
}

type BattleLogPlayer struct {
	Tag              string          `json:"tag"`
	Name             string          `json:"name"`
	StartingTrophies int             `json:"startingTrophies"`
	TrophyChange     int             `json:"trophyChange"`
	Crowns           int             `json:"crowns"`
	Cards            []BattleLogCard `json:"cards"`
}

type BattleLogCard struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Level    int    `json:"level"`
	MaxLevel int    `json:"maxLevel"`
}

type CardsResponse struct {
	Items []CardItem `json:"items"`
}

type CardItem struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Rarity     string `json:"rarity"`
	ElixirCost int    `json:"elixirCost"`
	IconUrls   struct {
		Medium string `json:"medium"`
	} `json:"iconUrls"`
}
