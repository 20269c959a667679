package config

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RemoteRetryDelay = 10 * time.Millisecond
}

func TestLoadRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/config", r.URL.Path)
		w.Write([]byte(`{"host":"10.0.0.5","port":8000}`))
	}))
	defer server.Close()

	remote, err := LoadRemote(context.Background(), server.Client(), server.URL+"/config", "http")
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:8000", remote.BaseURL())
	assert.Equal(t, "ws://10.0.0.5:8000/ws/tracking", remote.LiveChannelURL())
}

func TestLoadRemoteUpperCaseKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"HOST":"shuttle.local","PORT":"8443"}`))
	}))
	defer server.Close()

	remote, err := LoadRemote(context.Background(), server.Client(), server.URL, "https")
	require.NoError(t, err)

	assert.Equal(t, "https://shuttle.local:8443", remote.BaseURL())
	assert.Equal(t, "wss://shuttle.local:8443/ws/tracking", remote.LiveChannelURL())
}

func TestLoadRemoteRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"host":"localhost","port":8000}`))
	}))
	defer server.Close()

	remote, err := LoadRemote(context.Background(), server.Client(), server.URL, "http")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 8000, remote.Port)
}

func TestLoadRemoteGivesUpAfterRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := LoadRemote(context.Background(), server.Client(), server.URL, "http")
	assert.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoadRemoteMalformedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"host":`))
	}))
	defer server.Close()

	_, err := LoadRemote(context.Background(), server.Client(), server.URL, "http")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseRemoteValidation(t *testing.T) {
	_, err := parseRemote([]byte(`{"port":8000}`))
	assert.Error(t, err)

	_, err = parseRemote([]byte(`{"host":"localhost"}`))
	assert.Error(t, err)

	_, err = parseRemote([]byte(`{"host":"localhost","port":70000}`))
	assert.Error(t, err)
}
