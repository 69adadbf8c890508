// Package rte fetches day-ahead wholesale prices from the RTE open API and
// turns them into market price files.
package rte

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const (
	DefaultBaseURL = "https://digital.iservices.rte-france.com/open_api/wholesale_market/v2/france_power_exchanges"
	DefaultAuthURL = "https://digital.iservices.rte-france.com/token/oauth/"
)

// Config holds the API credentials. BaseURL and AuthURL default to the
// production endpoints.
type Config struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURL      string `json:"auth_url"`
	BaseURL      string `json:"base_url"`
	TimeoutSec   int    `json:"timeout_seconds"`
}

func (c *Config) SetDefaults() {
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TimeoutSec <= 0 {
		c.TimeoutSec = 30
	}
}

func (c Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("rte client_id and client_secret required")
	}
	return nil
}

// Price is the exchange price of one delivery period in EUR/MWh.
type Price struct {
	Start time.Time
	End   time.Time
	Price float64
}

type response struct {
	FrancePowerExchanges []struct {
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		UpdatedDate string `json:"updated_date"`
		Values      []struct {
			StartDate string  `json:"start_date"`
			EndDate   string  `json:"end_date"`
			Value     float64 `json:"value"`
			Price     float64 `json:"price"`
		} `json:"values"`
	} `json:"france_power_exchanges"`
}

// Client queries the wholesale market endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *ClientCred
}

func NewClient(cfg Config) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		creds:   NewClientCred(cfg),
	}, nil
}

// DayAhead returns the exchange prices delivered in [start, end) sorted by
// delivery start.
func (c *Client) DayAhead(ctx context.Context, start, end time.Time) ([]Price, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("end %s not after start %s", end, start)
	}
	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.creds.SetAuthHeader(req); err != nil {
		return nil, fmt.Errorf("failed to set auth header: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return r.prices()
}

func (r response) prices() ([]Price, error) {
	var out []Price
	for _, ex := range r.FrancePowerExchanges {
		for _, v := range ex.Values {
			s, err := time.Parse(time.RFC3339, v.StartDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			e, err := time.Parse(time.RFC3339, v.EndDate)
			if err != nil {
				return nil, fmt.Errorf("failed to parse time: %w", err)
			}
			out = append(out, Price{Start: s, End: e, Price: v.Price})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}
