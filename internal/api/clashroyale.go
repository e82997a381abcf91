package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"royale-tracker/internal/config"

	"github.com/valyala/fasthttp"
)

// supercell tag alphabet
const tagAlphabet = "0289PYLQGRJCUV"

type CRClient struct {
	apiKey  string
	baseURL string
	client  *fasthttp.Client
}

func NewCRClient(cfg *config.Config) *CRClient {
	return &CRClient{
		apiKey:  cfg.CRAPIKey,
		baseURL: strings.TrimRight(cfg.CRAPIBaseURL, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

// ValidTag checks that a player tag starts with '#', has a 4-12 character
// core and only uses the Supercell tag alphabet.
func ValidTag(playerTag string) bool {
	tag := strings.TrimSpace(playerTag)
	if !strings.HasPrefix(tag, "#") {
		return false
	}
	core := tag[1:]
	if len(core) < 4 || len(core) > 12 {
		return false
	}
	for _, ch := range core {
		if !strings.ContainsRune(tagAlphabet, ch) {
			return false
		}
	}
	return true
}

// EncodeTag makes a player tag URL-safe ("#YYRJQY28" -> "%23YYRJQY28").
func EncodeTag(playerTag string) string {
	return strings.Replace(playerTag, "#", "%23", 1)
}

// GetBattleLog fetches the recent battle log for one player. A maintenance
// sentinel in the response surfaces as ErrMaintenance.
func (c *CRClient) GetBattleLog(ctx context.Context, playerTag string) ([]RawBattle, error) {
	if !ValidTag(playerTag) {
		return nil, fmt.Errorf("invalid player tag syntax: %q", playerTag)
	}

	url := fmt.Sprintf("%s/players/%s/battlelog", c.baseURL, EncodeTag(playerTag))
	body, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	var battles []RawBattle
	if err := json.Unmarshal(body, &battles); err != nil {
		return nil, fmt.Errorf("failed to decode battle log: %w", err)
	}

	if len(battles) > 0 && battles[0].Reason == "inMaintenance" {
		return nil, ErrMaintenance
	}

	return battles, nil
}

// GetPlayer fetches the raw player profile. The payload is passed through
// untouched so the read path can cache and serve it as-is.
func (c *CRClient) GetPlayer(ctx context.Context, playerTag string) (json.RawMessage, error) {
	if !ValidTag(playerTag) {
		return nil, fmt.Errorf("invalid player tag syntax: %q", playerTag)
	}

	url := fmt.Sprintf("%s/players/%s", c.baseURL, EncodeTag(playerTag))
	return c.doRequest(ctx, url)
}

// PlayerExists validates the tag syntax and confirms the player exists
// upstream by fetching the profile.
func (c *CRClient) PlayerExists(ctx context.Context, playerTag string) (bool, error) {
	if !ValidTag(playerTag) {
		return false, nil
	}
	_, err := c.GetPlayer(ctx, playerTag)
	if err == nil {
		return true, nil
	}
	if IsPermanent(err) {
		return false, nil
	}
	return false, err
}

// GetCards fetches the full card catalog.
func (c *CRClient) GetCards(ctx context.Context) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/cards", c.baseURL)
	return c.doRequest(ctx, url)
}

// CheckConnection verifies token and reachability at startup.
func (c *CRClient) CheckConnection(ctx context.Context) error {
	_, err := c.GetCards(ctx)
	return err
}

func (c *CRClient) doRequest(ctx context.Context, url string) ([]byte, error) {
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
			return nil, &NetworkError{Err: err}
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return nil, &NetworkError{Err: err}
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode()}
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}
