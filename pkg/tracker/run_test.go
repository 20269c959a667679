package tracker

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/shuttletrack/pkg/config"
	"github.com/travigo/shuttletrack/pkg/dashboard"
)

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	address, err := url.Parse(server.URL)
	require.NoError(t, err)

	mux.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"host": "` + address.Hostname() + `", "port": "` + address.Port() + `"}`))
	})
	mux.HandleFunc("/api/shuttle/current", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"latitude": -7.17, "longitude": 112.64, "speed": 12}`))
	})
	mux.HandleFunc("/api/shuttle/distance", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"today_distance": 4.2}`))
	})
	mux.HandleFunc("/api/route/active", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"active": false}`))
	})
	mux.HandleFunc("/api/locations", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"location_name": "Gedung A", "latitude": -7.17, "longitude": 112.64}]`))
	})

	return server
}

func testSettings(configURL string) config.Settings {
	settings := config.DefaultSettings()
	settings.ConfigURL = configURL
	settings.Listen = "127.0.0.1:0"
	settings.RefreshInterval = 20 * time.Millisecond
	settings.ReconnectInterval = 20 * time.Millisecond

	return settings
}

func TestRunFailsWithoutRemoteConfig(t *testing.T) {
	config.RemoteRetryDelay = time.Millisecond
	defer func() { config.RemoteRetryDelay = time.Second }()

	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	err := Run(context.Background(), testSettings(server.URL+"/config"))
	assert.Error(t, err)
}

func freeAddress(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	return listener.Addr().String()
}

func getDashboard(address string) (dashboard.Snapshot, bool) {
	var snapshot dashboard.Snapshot

	resp, err := http.Get("http://" + address + "/dashboard")
	if err != nil {
		return snapshot, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snapshot, false
	}

	return snapshot, json.NewDecoder(resp.Body).Decode(&snapshot) == nil
}

func TestRunServesDashboardUntilCancel(t *testing.T) {
	server := newBackend(t)

	settings := testSettings(server.URL + "/config")
	settings.Listen = freeAddress(t)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		result <- Run(ctx, settings)
	}()

	require.Eventually(t, func() bool {
		snapshot, ok := getDashboard(settings.Listen)
		return ok && snapshot.ShuttleStatus == dashboard.ShuttleStatusActive && len(snapshot.Stops) == 1
	}, 5*time.Second, 20*time.Millisecond, "dashboard started and rendered the backend state")

	snapshot, ok := getDashboard(settings.Listen)
	require.True(t, ok)
	assert.Equal(t, "4.2", snapshot.TodayDistance)
	assert.Equal(t, "12", snapshot.Speed)
	assert.True(t, snapshot.Map.Initialized)

	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, ok = getDashboard(settings.Listen)
	assert.False(t, ok, "status API is shut down")
}

func TestInspect(t *testing.T) {
	server := newBackend(t)

	assert.NoError(t, Inspect(context.Background(), testSettings(server.URL+"/config")))
}

func TestTailNeedsRedis(t *testing.T) {
	assert.Error(t, Tail(context.Background(), testSettings("http://localhost/config")))
}
