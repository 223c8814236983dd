package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CrossWatch/internal/domain/models"
	drepo "CrossWatch/internal/domain/repository"
	"CrossWatch/internal/repository"
	"CrossWatch/internal/service/notify"
	"CrossWatch/internal/usecase"
)

type staticPrices struct {
	rows  []models.PriceRow
	stale bool
}

func (p staticPrices) Rows(context.Context) ([]models.PriceRow, bool) { return p.rows, p.stale }

type universe []string

func (u universe) Symbols() []string { return append([]string(nil), u...) }
func (u universe) Contains(s string) bool {
	for _, x := range u {
		if x == s {
			return true
		}
	}
	return false
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to)
	return n.err
}

type fixture struct {
	e        *echo.Echo
	registry *repository.AlertRegistry
	notifier *recordingNotifier
}

func newFixture(t *testing.T, prices PriceTable) *fixture {
	t.Helper()
	reg := repository.NewAlertRegistry()
	n := &recordingNotifier{}
	svc := usecase.NewAlertService(reg, universe{"BTCUSD", "ETHUSD", "SOLUSD"}, notify.Retrier{Notifier: n}, nil)

	e := echo.New()
	NewAlertsEchoHandler(nil, prices, svc, nil).RegisterRoutes(e)
	return &fixture{e: e, registry: reg, notifier: n}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestDataReturnsRowsAndStaleHeader(t *testing.T) {
	f := newFixture(t, staticPrices{rows: []models.PriceRow{{Symbol: "BTCUSD", Price: 64000, Change: 1.25}}, stale: true})

	rec := f.do(http.MethodGet, "/data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(HeaderDataStale))
	rows := decode[[]models.PriceRow](t, rec)
	assert.Equal(t, []models.PriceRow{{Symbol: "BTCUSD", Price: 64000, Change: 1.25}}, rows)
}

func TestDataEmptyIsArray(t *testing.T) {
	f := newFixture(t, staticPrices{rows: []models.PriceRow{}})
	rec := f.do(http.MethodGet, "/data", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(HeaderDataStale))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAddAlertAndList(t *testing.T) {
	f := newFixture(t, staticPrices{})

	rec := f.do(http.MethodPost, "/add-alert", `{"symbol":"btcusd","timeframe":"1h","fast":"9","slow":21,"email":"a@b.io"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"status":"Alert Added"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/get-alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "BTCUSD", alerts[0]["symbol"])
	assert.Equal(t, float64(9), alerts[0]["fast"])
	assert.Nil(t, alerts[0]["last_signal"])
}

func TestAddAlertApplyAll(t *testing.T) {
	f := newFixture(t, staticPrices{})

	rec := f.do(http.MethodPost, "/add-alert", `{"apply_all":true,"timeframe":"15m","fast":5,"slow":20,"email":"a@b.io"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := f.registry.List()
	require.Len(t, list, 3)
	for _, a := range list {
		assert.Equal(t, "15m", a.Timeframe)
		assert.Equal(t, models.SignalNone, a.LastSignal)
	}
}

func TestAddAlertValidation(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
		code  string
	}{
		"missing email":     {`{"symbol":"BTCUSD","timeframe":"1h","fast":9,"slow":21}`, "email", "ERR_REQUIRED"},
		"bad email":         {`{"symbol":"BTCUSD","timeframe":"1h","fast":9,"slow":21,"email":"nope"}`, "email", "ERR_EMAIL"},
		"missing symbol":    {`{"timeframe":"1h","fast":9,"slow":21,"email":"a@b.io"}`, "symbol", "ERR_REQUIRED_WITHOUT"},
		"unknown timeframe": {`{"symbol":"BTCUSD","timeframe":"7m","fast":9,"slow":21,"email":"a@b.io"}`, "timeframe", "ERR_ONEOF"},
		"zero span":         {`{"symbol":"BTCUSD","timeframe":"1h","fast":0,"slow":21,"email":"a@b.io"}`, "fast", "ERR_REQUIRED"},
		"negative span":     {`{"symbol":"BTCUSD","timeframe":"1h","fast":9,"slow":-1,"email":"a@b.io"}`, "slow", "ERR_GT"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, staticPrices{})
			rec := f.do(http.MethodPost, "/add-alert", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp struct {
				Status int `json:"status"`
				Data   []struct {
					Code  string `json:"code"`
					Field string `json:"field"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusBadRequest, resp.Status)
			require.NotEmpty(t, resp.Data)
			assert.Equal(t, tc.field, resp.Data[0].Field)
			assert.Equal(t, tc.code, resp.Data[0].Code)
			assert.Zero(t, f.registry.Len())
		})
	}
}

func TestAddAlertMalformedJSON(t *testing.T) {
	f := newFixture(t, staticPrices{})
	rec := f.do(http.MethodPost, "/add-alert", `{"symbol":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.registry.Len())
}

func TestDeleteAlertAlwaysAcknowledges(t *testing.T) {
	f := newFixture(t, staticPrices{})
	f.registry.BulkAdd([]string{"A", "B"}, "1h", 9, 21, "a@b.io")

	for _, idx := range []string{"7", "-1", "abc"} {
		rec := f.do(http.MethodDelete, "/delete-alert/"+idx, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"Deleted"}`, rec.Body.String())
	}
	assert.Equal(t, 2, f.registry.Len())

	rec := f.do(http.MethodDelete, "/delete-alert/0", "")
	assert.JSONEq(t, `{"status":"Deleted"}`, rec.Body.String())
	require.Equal(t, 1, f.registry.Len())
	assert.Equal(t, "B", f.registry.List()[0].Symbol)
}

func TestGetAlertsEmptyIsArray(t *testing.T) {
	f := newFixture(t, staticPrices{})

	rec := f.do(http.MethodGet, "/get-alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	f.registry.Add(models.Alert{Symbol: "BTCUSD", Timeframe: "1h", Fast: 9, Slow: 21, Email: "a@b.io"})
	f.do(http.MethodDelete, "/delete-alert/0", "")
	rec = f.do(http.MethodGet, "/get-alerts", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestDeleteAlertByID(t *testing.T) {
	f := newFixture(t, staticPrices{})
	added := f.registry.BulkAdd([]string{"A", "B"}, "1h", 9, 21, "a@b.io")

	rec := f.do(http.MethodDelete, "/alerts/"+added[1].ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Deleted"}`, rec.Body.String())
	require.Equal(t, 1, f.registry.Len())
	assert.Equal(t, "A", f.registry.List()[0].Symbol)

	rec = f.do(http.MethodDelete, "/alerts/"+added[1].ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, f.registry.Len())
}

func TestTestAlert(t *testing.T) {
	f := newFixture(t, staticPrices{})

	rec := f.do(http.MethodPost, "/test-alert", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Email required"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/test-alert", `{"email":"a@b.io"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Test email sent"}`, rec.Body.String())
	assert.Equal(t, []string{"a@b.io"}, f.notifier.sent)

	f.notifier.err = errors.New("auth failed")
	rec = f.do(http.MethodPost, "/test-alert", `{"email":"a@b.io"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTestAlertRateLimited(t *testing.T) {
	f := newFixture(t, staticPrices{})
	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		codes = append(codes, f.do(http.MethodPost, "/test-alert", `{"email":"a@b.io"}`).Code)
	}
	assert.Equal(t, []int{200, 200, 200, 429}, codes)
}

type fakeStore struct {
	events []models.SignalEvent
	err    error
	symbol string
	limit  int
}

func (s *fakeStore) Insert(context.Context, models.SignalEvent) error { return nil }
func (s *fakeStore) Recent(_ context.Context, symbol string, limit int) ([]models.SignalEvent, error) {
	s.symbol, s.limit = symbol, limit
	return s.events, s.err
}
func (s *fakeStore) Health(context.Context) error { return s.err }

type flatCandles struct{ err error }

func (c flatCandles) Candles(_ context.Context, _ string, _ drepo.Timeframe, limit int) ([]models.Candle, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make([]models.Candle, limit)
	for i := range out {
		out[i] = models.Candle{Time: time.Unix(int64(i*60), 0).UTC(), Close: 100}
	}
	return out, nil
}

func historyEcho(store drepo.SignalStore, candles drepo.CandleSource) *echo.Echo {
	e := echo.New()
	NewHistoryEchoHandler(nil, usecase.NewChartUseCase(candles), store).RegisterRoutes(e)
	return e
}

func serve(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSignalsDisabledWithoutStore(t *testing.T) {
	rec := serve(historyEcho(nil, flatCandles{}), "/signals")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignalsHistory(t *testing.T) {
	store := &fakeStore{events: []models.SignalEvent{{Symbol: "BTCUSD", Signal: models.SignalBullish}}}
	rec := serve(historyEcho(store, flatCandles{}), "/signals?symbol=btcusd&limit=5")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "BTCUSD", store.symbol)
	assert.Equal(t, 5, store.limit)
	assert.Contains(t, rec.Body.String(), `"signal":"BULLISH"`)

	rec = serve(historyEcho(store, flatCandles{}), "/signals")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, store.limit)

	rec = serve(historyEcho(store, flatCandles{}), "/signals?limit=5000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.err = errors.New("down")
	rec = serve(historyEcho(store, flatCandles{}), "/signals")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCandlesChart(t *testing.T) {
	e := historyEcho(nil, flatCandles{})

	rec := serve(e, "/candles")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, "/candles?symbol=btcusd&timeframe=1h&limit=50&fast=5&slow=20")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Data usecase.GetChartResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "BTCUSD", resp.Data.Symbol)
	assert.Equal(t, "1h", resp.Data.Timeframe)
	assert.Equal(t, 50, resp.Data.Count)
	assert.Equal(t, models.SignalNone, resp.Data.Signal)
	assert.InDelta(t, 100, resp.Data.Points[49].SlowEMA, 1e-9)

	rec = serve(historyEcho(nil, flatCandles{err: errors.New("timeout")}), "/candles?symbol=BTCUSD")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

type fixedCatalog struct{ n int }

func (c fixedCatalog) Len() int            { return c.n }
func (c fixedCatalog) LoadedAt() time.Time { return time.Unix(0, 0).UTC() }

type fixedCount int

func (c fixedCount) Count() int { return int(c) }

type fixedState usecase.MonitorState

func (s fixedState) State() usecase.MonitorState { return usecase.MonitorState(s) }

func TestHealth(t *testing.T) {
	e := echo.New()
	NewHealthHandler(fixedCatalog{n: 42}, fixedCount(3), fixedState(usecase.StateEvaluating),
		map[string]Pinger{"clickhouse": &fakeStore{err: errors.New("refused")}}).RegisterRoutes(e)

	rec := serve(e, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, float64(42), body["symbols"])
	assert.Equal(t, float64(3), body["alerts"])
	assert.Equal(t, "evaluating", body["monitor"])
	assert.Equal(t, "refused", body["dependencies"].(map[string]interface{})["clickhouse"])
}

func TestPriceStreamPushesRows(t *testing.T) {
	e := echo.New()
	prices := staticPrices{rows: []models.PriceRow{{Symbol: "ETHUSD", Price: 3000}}}
	NewPriceStreamHandler(nil, prices, 20*time.Millisecond).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/data", nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var frame struct {
			Stale bool              `json:"stale"`
			Rows  []models.PriceRow `json:"rows"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		assert.False(t, frame.Stale)
		assert.Equal(t, prices.rows, frame.Rows)
	}
}

func TestPriceStreamClosesOnShutdown(t *testing.T) {
	e := echo.New()
	h := NewPriceStreamHandler(nil, staticPrices{rows: []models.PriceRow{}}, time.Hour)
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/data", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.NoError(t, err)

	h.OnShutdown()
	h.OnShutdown()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
