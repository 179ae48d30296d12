package polymarket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/resolwatch/internal/adapters/polymarket"
	"github.com/alejandrodnm/resolwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../../testdata/fixtures/" + name)
	require.NoError(t, err)
	return data
}

// newPagedServer sirve page1 con offset=0 y page2 con offset=2.
func newPagedServer(t *testing.T) *httptest.Server {
	page1 := readFixture(t, "resolving_markets_page1.json")
	page2 := readFixture(t, "resolving_markets_page2.json")

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("resolving"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("offset") {
		case "0":
			w.Write(page1)
		case "2":
			w.Write(page2)
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	}))
}

func TestFetchResolvingMarkets_Pagination(t *testing.T) {
	srv := newPagedServer(t)
	defer srv.Close()

	client := polymarket.NewClient(srv.URL)
	markets, err := client.FetchResolvingMarkets(context.Background())

	require.NoError(t, err)
	require.Len(t, markets, 3)
	assert.Equal(t, "0xabc123", markets[0].ConditionID)
	assert.Equal(t, "0xdef456", markets[1].ConditionID)
	assert.Equal(t, "0xfff789", markets[2].ConditionID)
}

func TestFetchResolvingMarkets_MapsCondition(t *testing.T) {
	srv := newPagedServer(t)
	defer srv.Close()

	markets, err := polymarket.NewClient(srv.URL).FetchResolvingMarkets(context.Background())
	require.NoError(t, err)

	m := markets[0]
	assert.Equal(t, "Will the Fed cut rates in March?", m.Question)
	assert.Equal(t, time.Date(2026, 3, 18, 18, 0, 0, 0, time.UTC), m.EndDate)
	assert.InDelta(t, 0.97, m.YesToken().Price, 0.0001)
	assert.Equal(t, "token_no_001", m.NoToken().TokenID)

	require.NotNil(t, m.Condition)
	c := m.Condition
	assert.Equal(t, domain.StatusProposed, c.ResolutionStatus)
	require.NotNil(t, c.ResolutionPrice)
	assert.Equal(t, 1.0, *c.ResolutionPrice)
	assert.Equal(t, int64(7200), c.ResolutionLivenessSeconds)
	assert.Equal(t, time.Date(2026, 3, 19, 10, 0, 0, 0, time.UTC), c.ResolutionLastUpdate)
	assert.True(t, c.ResolutionDeadlineAt.IsZero())

	// precio numérico 0, epoch en segundos, liveness como string
	neg := markets[1]
	assert.True(t, neg.NegRisk)
	assert.True(t, neg.IsResolved)
	require.NotNil(t, neg.Condition.ResolutionPrice)
	assert.Equal(t, 0.0, *neg.Condition.ResolutionPrice)
	assert.True(t, neg.Condition.ResolutionFlagged)
	assert.Equal(t, time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC), neg.Condition.ResolutionLastUpdate)
	assert.Equal(t, time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC), neg.Condition.ResolutionDeadlineAt)
	assert.Equal(t, int64(7200), neg.Condition.ResolutionLivenessSeconds)
}

func TestFetchResolvingMarkets_BadTimestampsDegrade(t *testing.T) {
	srv := newPagedServer(t)
	defer srv.Close()

	markets, err := polymarket.NewClient(srv.URL).FetchResolvingMarkets(context.Background())
	require.NoError(t, err)

	c := markets[2].Condition
	require.NotNil(t, c)
	assert.Equal(t, domain.StatusChallenged, c.ResolutionStatus)
	assert.True(t, c.ResolutionLastUpdate.IsZero())
	assert.Equal(t, int64(0), c.ResolutionLivenessSeconds)

	tl := domain.BuildResolutionTimeline(markets[2], time.Now())
	assert.Equal(t, []domain.TimelineItemType{domain.ItemOutcomeProposed, domain.ItemDisputed}, tl.Types())
}

func TestFetchResolvingMarkets_MaxMarkets(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		next := 1
		json.NewEncoder(w).Encode(map[string]any{
			"data":        []map[string]any{{"condition_id": "0x" + r.URL.Query().Get("offset")}},
			"next_offset": next,
		})
	}))
	defer srv.Close()

	// pageSize=1, max 3 mercados → 3 requests aunque la API siga paginando
	client := polymarket.NewClient(srv.URL, polymarket.WithPaging(1, 3))
	markets, err := client.FetchResolvingMarkets(context.Background())

	require.NoError(t, err)
	assert.Len(t, markets, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchResolvingMarkets_ClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad offset"}`))
	}))
	defer srv.Close()

	_, err := polymarket.NewClient(srv.URL).FetchResolvingMarkets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestFetchMarket_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/0xabc123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"condition_id": "0xabc123",
			"question": "Will X happen?",
			"condition": {"resolution_status": "posed"}
		}`))
	}))
	defer srv.Close()

	m, err := polymarket.NewClient(srv.URL).FetchMarket(context.Background(), "0xabc123")
	require.NoError(t, err)
	assert.Equal(t, "Will X happen?", m.Question)
	assert.False(t, domain.ShouldDisplayResolutionTimeline(m))
}

func TestFetchMarket_NonFiniteValuesDegrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"condition_id": "0xinf",
			"condition": {
				"resolution_status": "proposed",
				"resolution_price": "NaN",
				"resolution_last_update": "2026-03-15T10:00:00Z",
				"resolution_liveness_seconds": "+Inf"
			}
		}`))
	}))
	defer srv.Close()

	m, err := polymarket.NewClient(srv.URL).FetchMarket(context.Background(), "0xinf")
	require.NoError(t, err)
	require.NotNil(t, m.Condition)
	assert.Nil(t, m.Condition.ResolutionPrice)
	assert.Equal(t, int64(0), m.Condition.ResolutionLivenessSeconds)
}

func TestFetchMarket_HugeLivenessClamped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"condition_id": "0xbig",
			"condition": {
				"resolution_status": "proposed",
				"resolution_last_update": "2026-03-15T10:00:00Z",
				"resolution_liveness_seconds": 1e30
			}
		}`))
	}))
	defer srv.Close()

	m, err := polymarket.NewClient(srv.URL).FetchMarket(context.Background(), "0xbig")
	require.NoError(t, err)

	now := time.Date(2026, 3, 15, 11, 0, 0, 0, time.UTC)
	d, ok := domain.ResolveResolutionDeadline(m)
	require.True(t, ok)
	assert.True(t, d.After(now))

	active, ok := domain.BuildResolutionTimeline(m, now).Active()
	require.True(t, ok)
	assert.Equal(t, domain.ItemDisputeWindow, active.Type)
}

func TestFetchMarket_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := polymarket.NewClient(srv.URL).FetchMarket(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchMarketsByID_SkipsMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/markets/")
		if id == "0xgone" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"condition_id": id})
	}))
	defer srv.Close()

	markets, err := polymarket.NewClient(srv.URL).FetchMarketsByID(context.Background(),
		[]string{"0x1", "0xgone", "0x2", "0x3"})

	require.NoError(t, err)
	require.Len(t, markets, 3)
	// se conserva el orden pedido
	assert.Equal(t, "0x1", markets[0].ConditionID)
	assert.Equal(t, "0x2", markets[1].ConditionID)
	assert.Equal(t, "0x3", markets[2].ConditionID)
}

func TestFetchMarketsByID_Empty(t *testing.T) {
	markets, err := polymarket.NewClient("http://127.0.0.1:0").FetchMarketsByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, markets)
}
