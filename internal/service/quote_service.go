package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQuoteUnavailable is returned when the upstream quote source failed
// and no cached value exists to fall back on.
var ErrQuoteUnavailable = errors.New("quote not found or rate limit exceeded")

// Quote is a stock quote snapshot from the upstream provider
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        int64   `json:"volume"`
	AsOf          string  `json:"asOf"`
}

type cachedQuote struct {
	quote    Quote
	cachedAt time.Time
}

// QuoteService fetches stock quotes from Alpha Vantage with a
// two-level cache: an in-process map and redis (shared across
// instances). Successful results are cached for a bounded interval;
// when the upstream reports a rate limit, the last good value is
// served instead of failing.
type QuoteService struct {
	redis      *redis.Client
	httpClient *http.Client

	apiKey    string
	baseURL   string
	cacheTTL  time.Duration
	paceDelay time.Duration

	cache    map[string]cachedQuote
	cacheMux sync.RWMutex
}

// QuoteServiceOptions configures a QuoteService
type QuoteServiceOptions struct {
	APIKey    string
	BaseURL   string
	CacheTTL  time.Duration
	PaceDelay time.Duration
	Timeout   time.Duration
}

// NewQuoteService creates a new QuoteService. redisClient may be nil,
// in which case only the in-process cache is used.
func NewQuoteService(redisClient *redis.Client, opts QuoteServiceOptions) *QuoteService {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.alphavantage.co/query"
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.PaceDelay <= 0 {
		opts.PaceDelay = 200 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &QuoteService{
		redis:      redisClient,
		httpClient: &http.Client{Timeout: opts.Timeout},
		apiKey:     opts.APIKey,
		baseURL:    opts.BaseURL,
		cacheTTL:   opts.CacheTTL,
		paceDelay:  opts.PaceDelay,
		cache:      make(map[string]cachedQuote),
	}
}

// GetQuote returns the current quote for a symbol, serving cached
// values within the TTL and stale values on upstream rate limits.
func (s *QuoteService) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrQuoteUnavailable
	}

	if q, ok := s.fromMemory(symbol, s.cacheTTL); ok {
		return q, nil
	}
	if q := s.fromRedis(ctx, symbol); q != nil {
		s.store(symbol, *q, false)
		return q, nil
	}

	quote, err := s.fetch(ctx, symbol)
	if err != nil {
		// Serve the last good value regardless of age before giving up.
		if q, ok := s.fromMemory(symbol, 0); ok {
			log.Printf("[INFO] serving stale quote for %s: %v", symbol, err)
			return q, nil
		}
		return nil, err
	}

	s.store(symbol, *quote, true)
	return quote, nil
}

// GetQuotesForSymbols batches lookups for multiple symbols,
// de-duplicating and pacing requests to respect upstream rate limits.
// Symbols that fail to resolve are omitted from the result.
func (s *QuoteService) GetQuotesForSymbols(ctx context.Context, symbols []string) (map[string]*Quote, error) {
	seen := make(map[string]bool)
	unique := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		unique = append(unique, sym)
	}

	quotes := make(map[string]*Quote, len(unique))
	for i, sym := range unique {
		quote, err := s.GetQuote(ctx, sym)
		if err != nil {
			log.Printf("[ERROR] quote lookup failed for %s: %v", sym, err)
		} else {
			quotes[sym] = quote
		}

		if i < len(unique)-1 {
			select {
			case <-ctx.Done():
				return quotes, ctx.Err()
			case <-time.After(s.paceDelay):
			}
		}
	}
	return quotes, nil
}

// fromMemory returns the cached quote if younger than maxAge.
// maxAge 0 means any age (stale fallback).
func (s *QuoteService) fromMemory(symbol string, maxAge time.Duration) (*Quote, bool) {
	s.cacheMux.RLock()
	defer s.cacheMux.RUnlock()

	c, ok := s.cache[symbol]
	if !ok {
		return nil, false
	}
	if maxAge > 0 && time.Since(c.cachedAt) >= maxAge {
		return nil, false
	}
	q := c.quote
	return &q, true
}

func (s *QuoteService) fromRedis(ctx context.Context, symbol string) *Quote {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, quoteKey(symbol)).Bytes()
	if err != nil {
		return nil
	}
	var q Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return nil
	}
	return &q
}

func (s *QuoteService) store(symbol string, q Quote, toRedis bool) {
	s.cacheMux.Lock()
	s.cache[symbol] = cachedQuote{quote: q, cachedAt: time.Now()}
	s.cacheMux.Unlock()

	if toRedis && s.redis != nil {
		if data, err := json.Marshal(q); err == nil {
			// Best effort; the in-process cache already holds the value.
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := s.redis.Set(ctx, quoteKey(symbol), data, s.cacheTTL).Err(); err != nil {
				log.Printf("[ERROR] failed to cache quote for %s: %v", symbol, err)
			}
		}
	}
}

// fetch retrieves a GLOBAL_QUOTE from Alpha Vantage
func (s *QuoteService) fetch(ctx context.Context, symbol string) (*Quote, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: api key not configured", ErrQuoteUnavailable)
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Note        string            `json:"Note"`
		ErrorMsg    string            `json:"Error Message"`
		GlobalQuote map[string]string `json:"Global Quote"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	if payload.Note != "" {
		log.Printf("[INFO] quote provider rate limit reached: %s", payload.Note)
		return nil, fmt.Errorf("%w: rate limited", ErrQuoteUnavailable)
	}
	if payload.ErrorMsg != "" {
		return nil, fmt.Errorf("%w: %s", ErrQuoteUnavailable, payload.ErrorMsg)
	}
	priceStr, ok := payload.GlobalQuote["05. price"]
	if !ok || priceStr == "" {
		return nil, fmt.Errorf("%w: no data for %s", ErrQuoteUnavailable, symbol)
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad price %q", ErrQuoteUnavailable, priceStr)
	}

	quote := &Quote{
		Symbol: payload.GlobalQuote["01. symbol"],
		Price:  price,
		AsOf:   payload.GlobalQuote["07. latest trading day"],
	}
	quote.Change, _ = strconv.ParseFloat(payload.GlobalQuote["09. change"], 64)
	quote.ChangePercent, _ = strconv.ParseFloat(strings.TrimSuffix(payload.GlobalQuote["10. change percent"], "%"), 64)
	quote.High, _ = strconv.ParseFloat(payload.GlobalQuote["03. high"], 64)
	quote.Low, _ = strconv.ParseFloat(payload.GlobalQuote["04. low"], 64)
	quote.Volume, _ = strconv.ParseInt(payload.GlobalQuote["06. volume"], 10, 64)
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}

	return quote, nil
}

func quoteKey(symbol string) string {
	return "quote:" + symbol
}
