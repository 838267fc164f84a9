package service_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/options-journal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAlphaVantage serves GLOBAL_QUOTE payloads and counts requests
type fakeAlphaVantage struct {
	srv      *httptest.Server
	requests atomic.Int64
	payload  atomic.Value // map[string]interface{}
}

func newFakeAlphaVantage(t *testing.T) *fakeAlphaVantage {
	t.Helper()

	f := &fakeAlphaVantage{}
	f.setQuote("AAPL", "190.0000")
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		require.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		json.NewEncoder(w).Encode(f.payload.Load())
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAlphaVantage) setQuote(symbol, price string) {
	f.payload.Store(map[string]interface{}{
		"Global Quote": map[string]string{
			"01. symbol":             symbol,
			"05. price":              price,
			"09. change":             "1.2500",
			"10. change percent":     "0.6623%",
			"03. high":               "191.0000",
			"04. low":                "188.5000",
			"06. volume":             "1234567",
			"07. latest trading day": "2025-12-19",
		},
	})
}

func (f *fakeAlphaVantage) setRateLimited() {
	f.payload.Store(map[string]interface{}{
		"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day.",
	})
}

func newTestQuoteService(f *fakeAlphaVantage, ttl time.Duration) *service.QuoteService {
	return service.NewQuoteService(nil, service.QuoteServiceOptions{
		APIKey:    "demo",
		BaseURL:   f.srv.URL,
		CacheTTL:  ttl,
		PaceDelay: time.Millisecond,
	})
}

func TestGetQuoteParsesGlobalQuote(t *testing.T) {
	f := newFakeAlphaVantage(t)
	svc := newTestQuoteService(f, time.Minute)

	quote, err := svc.GetQuote(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", quote.Symbol)
	assert.InDelta(t, 190.0, quote.Price, 0.001)
	assert.InDelta(t, 1.25, quote.Change, 0.001)
	assert.InDelta(t, 0.6623, quote.ChangePercent, 0.0001)
	assert.InDelta(t, 191.0, quote.High, 0.001)
	assert.InDelta(t, 188.5, quote.Low, 0.001)
	assert.Equal(t, int64(1234567), quote.Volume)
	assert.Equal(t, "2025-12-19", quote.AsOf)
}

func TestGetQuoteServesFromCache(t *testing.T) {
	f := newFakeAlphaVantage(t)
	svc := newTestQuoteService(f, time.Minute)

	_, err := svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.requests.Load())
}

func TestGetQuoteServesStaleOnRateLimit(t *testing.T) {
	f := newFakeAlphaVantage(t)
	svc := newTestQuoteService(f, time.Nanosecond)

	first, err := svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)

	// TTL expired and the provider now reports a rate limit; the last
	// good value is served instead of an error.
	f.setRateLimited()
	time.Sleep(time.Millisecond)

	stale, err := svc.GetQuote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, first.Price, stale.Price)
	assert.GreaterOrEqual(t, f.requests.Load(), int64(2))
}

func TestGetQuoteRateLimitWithoutCacheFails(t *testing.T) {
	f := newFakeAlphaVantage(t)
	f.setRateLimited()
	svc := newTestQuoteService(f, time.Minute)

	_, err := svc.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, service.ErrQuoteUnavailable)
}

func TestGetQuoteEmptySymbol(t *testing.T) {
	f := newFakeAlphaVantage(t)
	svc := newTestQuoteService(f, time.Minute)

	_, err := svc.GetQuote(context.Background(), "   ")
	assert.ErrorIs(t, err, service.ErrQuoteUnavailable)
}

func TestGetQuoteRequiresAPIKey(t *testing.T) {
	f := newFakeAlphaVantage(t)
	svc := service.NewQuoteService(nil, service.QuoteServiceOptions{BaseURL: f.srv.URL})

	_, err := svc.GetQuote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, service.ErrQuoteUnavailable)
	assert.Equal(t, int64(0), f.requests.Load())
}

func TestGetQuotesForSymbolsDeduplicates(t *testing.T) {
	f := newFakeAlphaVantage(t)
	svc := newTestQuoteService(f, time.Minute)

	quotes, err := svc.GetQuotesForSymbols(context.Background(), []string{"AAPL", "aapl", " AAPL ", ""})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, int64(1), f.requests.Load())
	require.Contains(t, quotes, "AAPL")
	assert.InDelta(t, 190.0, quotes["AAPL"].Price, 0.001)
}

func TestGetQuotesForSymbolsHonorsContext(t *testing.T) {
	f := newFakeAlphaVantage(t)
	svc := service.NewQuoteService(nil, service.QuoteServiceOptions{
		APIKey:    "demo",
		BaseURL:   f.srv.URL,
		CacheTTL:  time.Minute,
		PaceDelay: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	quotes, err := svc.GetQuotesForSymbols(ctx, []string{"AAPL", "TSLA"})
	assert.ErrorIs(t, err, context.Canceled)
	// The first symbol resolved before cancellation.
	assert.Contains(t, quotes, "AAPL")
}
