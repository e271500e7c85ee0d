// Package currency пересчитывает суммы между USD и локальными валютами.
//
// Курсы берутся из внешнего источника и кэшируются в Redis. Если источник
// недоступен, используется курс 1: конвертация никогда не завершается ошибкой
// из-за курсов, но результат помечается флагом Fallback.
package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/venture-billing/internal/cache"
	"github.com/magabrotheeeer/venture-billing/internal/forex"
	"github.com/magabrotheeeer/venture-billing/internal/lib/metrics"
	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// RatesCacheKey — ключ Redis с последними курсами.
const RatesCacheKey = "forex:rates:USD"

// Причины использования курса 1.
const (
	ReasonFetchFailed = "fetch_failed"
	ReasonUnsupported = "unsupported_currency"
)

var codePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// RateSource — источник курсов относительно USD.
type RateSource interface {
	Latest(ctx context.Context) (*forex.Rates, error)
}

// RateCache — кэш курсов.
type RateCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Conversion — результат пересчета.
type Conversion struct {
	Amount   decimal.Decimal
	Currency string
	Rate     decimal.Decimal
	Fallback bool
	Reason   string
}

// Converter пересчитывает суммы по кэшированным курсам.
type Converter struct {
	source RateSource
	cache  RateCache
	ttl    time.Duration
	log    *slog.Logger
}

// New создаёт Converter. cache может быть nil, тогда курсы запрашиваются каждый раз.
func New(log *slog.Logger, source RateSource, cache RateCache, ttl time.Duration) *Converter {
	return &Converter{source: source, cache: cache, ttl: ttl, log: log}
}

// NormalizeCode приводит код валюты к верхнему регистру и проверяет формат ISO 4217.
func NormalizeCode(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(c) {
		return "", fmt.Errorf("currency %q: %w", code, models.ErrValidation)
	}
	return c, nil
}

// UsdToLocal пересчитывает сумму в USD в валюту currency с округлением до центов.
func (c *Converter) UsdToLocal(ctx context.Context, usd decimal.Decimal, currency string) (Conversion, error) {
	const op = "currency.UsdToLocal"
	if usd.IsNegative() {
		return Conversion{}, fmt.Errorf("%s: negative amount: %w", op, models.ErrValidation)
	}
	code, err := NormalizeCode(currency)
	if err != nil {
		return Conversion{}, fmt.Errorf("%s: %w", op, err)
	}

	rate, fallback, reason := c.rate(ctx, code)
	return Conversion{
		Amount:   usd.Mul(rate).Round(2),
		Currency: code,
		Rate:     rate,
		Fallback: fallback,
		Reason:   reason,
	}, nil
}

// LocalToUsd пересчитывает сумму в валюте currency обратно в USD.
func (c *Converter) LocalToUsd(ctx context.Context, amount decimal.Decimal, currency string) (Conversion, error) {
	const op = "currency.LocalToUsd"
	if amount.IsNegative() {
		return Conversion{}, fmt.Errorf("%s: negative amount: %w", op, models.ErrValidation)
	}
	code, err := NormalizeCode(currency)
	if err != nil {
		return Conversion{}, fmt.Errorf("%s: %w", op, err)
	}

	rate, fallback, reason := c.rate(ctx, code)
	return Conversion{
		Amount:   amount.Div(rate).Round(2),
		Currency: "USD",
		Rate:     rate,
		Fallback: fallback,
		Reason:   reason,
	}, nil
}

func (c *Converter) rate(ctx context.Context, code string) (decimal.Decimal, bool, string) {
	if code == "USD" {
		return decimal.NewFromInt(1), false, ""
	}

	rates, err := c.rates(ctx)
	if err != nil {
		c.log.Warn("forex rates unavailable, using identity rate",
			slog.String("currency", code), sl.Err(err))
		metrics.ForexFallback.WithLabelValues(ReasonFetchFailed).Inc()
		return decimal.NewFromInt(1), true, ReasonFetchFailed
	}

	r, ok := rates.Rates[code]
	if !ok || !r.IsPositive() {
		c.log.Warn("currency is not supported by forex source, using identity rate",
			slog.String("currency", code))
		metrics.ForexFallback.WithLabelValues(ReasonUnsupported).Inc()
		return decimal.NewFromInt(1), true, ReasonUnsupported
	}
	return r, false, ""
}

func (c *Converter) rates(ctx context.Context) (*forex.Rates, error) {
	if c.cache != nil {
		var cached forex.Rates
		found, err := c.cache.Get(ctx, RatesCacheKey, &cached)
		if err != nil {
			c.log.Warn("failed to read rates from cache", sl.Err(err))
		}
		if found && len(cached.Rates) > 0 {
			return &cached, nil
		}
		if found || errors.Is(err, cache.ErrCorrupted) {
			if err := c.cache.Invalidate(ctx, RatesCacheKey); err != nil {
				c.log.Warn("failed to drop unusable cached rates", sl.Err(err))
			}
		}
	}

	rates, err := c.source.Latest(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, RatesCacheKey, rates, c.ttl); err != nil {
			c.log.Warn("failed to cache rates", sl.Err(err))
		}
	}
	return rates, nil
}
