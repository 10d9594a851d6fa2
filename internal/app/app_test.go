package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/vinyl-exchange/internal/api"
	"github.com/codyseavey/vinyl-exchange/internal/config"
	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/testutil"
)

func testConfig(t *testing.T, discogsURL string, refreshEnabled bool) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Market.Discogs.BaseURL = discogsURL
	cfg.Market.Discogs.Token = ""
	cfg.Market.Ebay.AppID = ""
	cfg.Market.RetryCount = 0
	cfg.Market.RequestsPerSecond = 100
	cfg.Refresh.Enabled = refreshEnabled
	return cfg
}

func discogsServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"lowest_price":{"value":14,"currency":"USD"},"num_for_sale":2}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRefreshDisabledRefreshesInline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := discogsServer(t)
	a := New(testConfig(t, server.URL, false), testutil.NewTestDB(t))
	require.Nil(t, a.Refresher)

	release, err := a.Releases.Save(t.Context(), models.CreateReleaseRequest{
		Title: "Blue Train", Artist: "John Coltrane", DiscogsReleaseID: "1234",
	})
	require.NoError(t, err)

	r := api.SetupRouter(a.RouterServices(), nil)

	w := serve(r, http.MethodPost, "/api/releases/"+release.ID+"/snapshots/refresh?queue=true")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Snapshots []models.MarketSnapshot `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Snapshots, 1)
	assert.Equal(t, 14.0, *body.Snapshots[0].StatLow)

	w = serve(r, http.MethodGet, "/api/snapshots/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"enabled":false}`, w.Body.String())

	// One-off batches still work without the background worker
	updated, err := a.NewRefresher().RefreshBatch(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, updated, "the inline refresh left nothing stale")
}

func TestRefreshEnabledQueues(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := discogsServer(t)
	a := New(testConfig(t, server.URL, true), testutil.NewTestDB(t))
	require.NotNil(t, a.Refresher)

	release, err := a.Releases.Save(t.Context(), models.CreateReleaseRequest{
		Title: "Blue Train", Artist: "John Coltrane", DiscogsReleaseID: "1234",
	})
	require.NoError(t, err)

	r := api.SetupRouter(a.RouterServices(), nil)
	w := serve(r, http.MethodPost, "/api/releases/"+release.ID+"/snapshots/refresh?queue=true")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, 1, a.Refresher.GetQueueSize())
}

func TestMarketClients(t *testing.T) {
	cfg := testConfig(t, "http://discogs.invalid", false)
	clients := MarketClients(cfg)
	require.Len(t, clients, 1, "eBay needs an app id")
	assert.Equal(t, models.MarketSourceDiscogs, clients[0].Source())

	cfg.Market.Ebay.AppID = "app"
	clients = MarketClients(cfg)
	require.Len(t, clients, 2)
	assert.Equal(t, models.MarketSourceEbay, clients[1].Source())
}
