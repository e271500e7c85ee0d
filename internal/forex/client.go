// Package forex — HTTP клиент источника курсов валют относительно USD.
package forex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrEmptyRates возвращается, если источник ответил без курсов.
var ErrEmptyRates = errors.New("forex: empty rates")

// Rates — курсы валют: сколько единиц валюты за 1 USD.
type Rates struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// Client запрашивает GET {baseURL}/latest?base=USD.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент с таймаутом на каждый запрос.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Latest возвращает актуальные курсы относительно USD.
func (c *Client) Latest(ctx context.Context) (*Rates, error) {
	const op = "forex.Latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest?base=USD", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(body.Rates) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyRates)
	}

	rates := make(map[string]decimal.Decimal, len(body.Rates))
	for code, rate := range body.Rates {
		if rate.IsPositive() {
			rates[strings.ToUpper(code)] = rate
		}
	}
	return &Rates{Base: "USD", Rates: rates, FetchedAt: time.Now().UTC()}, nil
}
