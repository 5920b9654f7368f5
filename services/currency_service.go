package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	exchangeRateBaseURL = "https://v6.exchangerate-api.com/v6"
	ratesCacheTTL       = 6 * time.Hour
)

var ErrRatesUnavailable = errors.New("exchange rates unavailable")

type exchangeRateResponse struct {
	Result          string                     `json:"result"`
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
}

// ExchangeRateService reports the market value of one unit of each currency in
// KES. The catalog price stays authoritative; rates are informational.
type ExchangeRateService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger

	mu        sync.RWMutex
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
}

func NewExchangeRateService(apiKey string, log *zap.Logger) *ExchangeRateService {
	return &ExchangeRateService{
		apiKey:     apiKey,
		baseURL:    exchangeRateBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// KESRates returns code -> KES per unit, refreshed at most every six hours.
func (s *ExchangeRateService) KESRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	if s.rates != nil && time.Since(s.fetchedAt) < ratesCacheTTL {
		rates := s.rates
		s.mu.RUnlock()
		return rates, nil
	}
	s.mu.RUnlock()

	if s.apiKey == "" {
		return nil, ErrRatesUnavailable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/latest/KES", s.baseURL, s.apiKey), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	defer resp.Body.Close()

	var data exchangeRateResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRatesUnavailable, err)
	}
	if data.Result != "success" {
		return nil, fmt.Errorf("%w: provider returned %q", ErrRatesUnavailable, data.Result)
	}

	// the API quotes units of foreign currency per KES; invert to KES per unit
	rates := make(map[string]decimal.Decimal, len(data.ConversionRates))
	for code, perKES := range data.ConversionRates {
		if perKES.IsPositive() {
			rates[code] = decimal.NewFromInt(1).DivRound(perKES, 4)
		}
	}

	s.mu.Lock()
	s.rates = rates
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	s.log.Info("exchange rates refreshed", zap.Int("currencies", len(rates)))
	return rates, nil
}
