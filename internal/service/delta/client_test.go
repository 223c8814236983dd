package delta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drepo "CrossWatch/internal/domain/repository"
	"CrossWatch/internal/service/ratelimit"
)

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProducts(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/v2/products": `{"success":true,"result":[
			{"symbol":"BTCUSD","contract_type":"perpetual_futures","state":"live"},
			{"symbol":"BTC-OPT","contract_type":"call_options","state":"live"}]}`,
	})
	c := New(srv.URL + "/v2/")

	got, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "BTCUSD", got[0].Symbol)
	assert.Equal(t, "perpetual_futures", got[0].ContractType)
	assert.Equal(t, "call_options", got[1].ContractType)
}

func TestTickersAcceptsStringAndNumberPrices(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/v2/tickers": `{"success":true,"result":[
			{"symbol":"BTCUSD","close":"64000.5","open":64100},
			{"symbol":"ETHUSD","close":3100,"open":null}]}`,
	})
	c := New(srv.URL+"/v2", WithRateLimit(ratelimit.New(), 100, 100))

	got, err := c.Tickers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 64000.5, got[0].Close.InexactFloat64())
	assert.Equal(t, 64100.0, got[0].Open.InexactFloat64())
	assert.True(t, got[1].Open.IsZero())
}

func TestCandlesSortedAndTrimmed(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{
			"symbol":     r.URL.Query().Get("symbol"),
			"resolution": r.URL.Query().Get("resolution"),
			"limit":      r.URL.Query().Get("limit"),
			"start":      r.URL.Query().Get("start"),
			"end":        r.URL.Query().Get("end"),
		}
		_, _ = w.Write([]byte(`{"success":true,"result":[
			{"time":300,"open":3,"high":3,"low":3,"close":"3.5","volume":1},
			{"time":200,"open":2,"high":2,"low":2,"close":2.5,"volume":1},
			{"time":100,"open":1,"high":1,"low":1,"close":1.5,"volume":1}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithCandlesPath("history/candles"))
	c.now = func() time.Time { return time.Unix(10_000, 0) }

	got, err := c.Candles(context.Background(), "BTCUSD", drepo.TF5m, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.5, got[0].Close)
	assert.Equal(t, 3.5, got[1].Close)
	assert.True(t, got[0].Time.Before(got[1].Time))

	assert.Equal(t, "BTCUSD", query["symbol"])
	assert.Equal(t, "5m", query["resolution"])
	assert.Equal(t, "2", query["limit"])
	assert.Equal(t, "10000", query["end"])
	assert.Equal(t, "9400", query["start"])
}

func TestCandlesRejectsBadInput(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.Candles(context.Background(), "BTCUSD", drepo.Timeframe("9m"), 10)
	assert.Error(t, err)
	_, err = c.Candles(context.Background(), "BTCUSD", drepo.TF1m, 0)
	assert.Error(t, err)
}

func TestUnsuccessfulEnvelope(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/tickers": `{"success":false,"error":{"code":"rate_limited"}}`,
	})
	_, err := New(srv.URL).Tickers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limited")
}

func TestHTTPErrorStatus(t *testing.T) {
	srv := newTestServer(t, map[string]string{})
	_, err := New(srv.URL).Products(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
