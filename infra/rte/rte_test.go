package rte

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-06-03 is a Monday.
var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func hourly(start time.Time, prices ...float64) string {
	var vals []string
	for i, p := range prices {
		s := start.Add(time.Duration(i) * time.Hour)
		vals = append(vals, fmt.Sprintf(`{"start_date":%q,"end_date":%q,"value":1000,"price":%g}`,
			s.Format(time.RFC3339), s.Add(time.Hour).Format(time.RFC3339), p))
	}
	return `{"france_power_exchanges":[{"start_date":"","end_date":"","values":[` + strings.Join(vals, ",") + `]}]}`
}

func newServer(t *testing.T, body string) (*httptest.Server, *int32) {
	t.Helper()
	var tokens int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokens, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/prices", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("start_date") == "" {
			http.Error(w, "missing start", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokens
}

func TestClientDayAhead(t *testing.T) {
	srv, tokens := newServer(t, hourly(monday.Add(time.Hour), 20, 10))
	c, err := NewClient(Config{ClientID: "id", ClientSecret: "secret", AuthURL: srv.URL + "/token", BaseURL: srv.URL + "/prices"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		prices, err := c.DayAhead(context.Background(), monday, monday.Add(24*time.Hour))
		require.NoError(t, err)
		require.Len(t, prices, 2)
		assert.Equal(t, 20.0, prices[0].Price)
		assert.Equal(t, monday.Add(time.Hour), prices[0].Start.UTC())
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(tokens), "token is cached")
}

func TestClientErrors(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	srv, _ := newServer(t, "not json")
	c, err := NewClient(Config{ClientID: "id", ClientSecret: "s", AuthURL: srv.URL + "/token", BaseURL: srv.URL + "/prices"})
	require.NoError(t, err)
	_, err = c.DayAhead(context.Background(), monday, monday.Add(time.Hour))
	assert.ErrorContains(t, err, "decode")

	_, err = c.DayAhead(context.Background(), monday, monday)
	assert.Error(t, err)

	c, err = NewClient(Config{ClientID: "id", ClientSecret: "s", AuthURL: srv.URL + "/token", BaseURL: srv.URL + "/missing"})
	require.NoError(t, err)
	_, err = c.DayAhead(context.Background(), monday, monday.Add(time.Hour))
	assert.ErrorContains(t, err, "404")
}

func TestRows(t *testing.T) {
	start := monday.Add(7 * time.Hour)
	prices := []Price{
		{Start: start, End: start.Add(time.Hour), Price: 30},
		{Start: start.Add(time.Hour), End: start.Add(2 * time.Hour), Price: 60},
	}
	rows, err := Rows(prices, start, 30*time.Minute, 4)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, []float64{30, 30, 60, 60}, []float64{rows[0].DayAhead, rows[1].DayAhead, rows[2].DayAhead, rows[3].DayAhead})
	for _, r := range rows {
		assert.Equal(t, r.DayAhead, r.Intraday)
		assert.Equal(t, 45.0, r.FutureBase)
	}
	// 07:00 is off-peak, 08:00 onwards is peak.
	assert.Zero(t, rows[1].FuturePeak)
	assert.Equal(t, 60.0, rows[2].FuturePeak)

	_, err = Rows(prices, start, time.Hour, 3)
	assert.ErrorContains(t, err, "no exchange price")
}

func TestIsPeak(t *testing.T) {
	assert.True(t, IsPeak(monday.Add(8*time.Hour)))
	assert.False(t, IsPeak(monday.Add(20*time.Hour)))
	assert.False(t, IsPeak(monday.Add(-24*time.Hour+10*time.Hour)), "sunday")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Row{{Time: monday, DayAhead: 42.5, Intraday: 42.5, FutureBase: 40}}))
	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"time", "day_ahead", "intraday", "future_base", "future_peak"}, recs[0])
	assert.Equal(t, []string{"2024-06-03T00:00:00Z", "42.5", "42.5", "40", "0"}, recs[1])
}
