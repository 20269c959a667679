package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// RemoteRetryDelay is the pause before the single retry of the config fetch
var RemoteRetryDelay = time.Second

// Remote is the config document served by the backend at /config
type Remote struct {
	Host   string
	Port   int
	Scheme string
}

type remoteDocument struct {
	Host      string          `json:"host"`
	Port      json.RawMessage `json:"port"`
	UpperHost string          `json:"HOST"`
	UpperPort json.RawMessage `json:"PORT"`
}

func (r Remote) BaseURL() string {
	scheme := r.Scheme
	if scheme == "" {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s:%d", scheme, r.Host, r.Port)
}

// LiveChannelURL is the websocket tracking endpoint on the same host
func (r Remote) LiveChannelURL() string {
	base := r.BaseURL()
	if strings.HasPrefix(base, "https") {
		base = "wss" + strings.TrimPrefix(base, "https")
	} else {
		base = "ws" + strings.TrimPrefix(base, "http")
	}

	return base + "/ws/tracking"
}

// LoadRemote fetches and parses the config document. A transport failure
// is retried once; a malformed document fails straight away.
func LoadRemote(ctx context.Context, client *http.Client, configURL string, scheme string) (*Remote, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var remote *Remote
	operation := func() error {
		var err error
		remote, err = fetchRemote(ctx, client, configURL)
		if err != nil {
			log.Warn().Err(err).Str("url", configURL).Msg("Failed to fetch remote config")
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(RemoteRetryDelay), 1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("load remote config: %w", err)
	}

	remote.Scheme = scheme

	return remote, nil
}

func fetchRemote(ctx context.Context, client *http.Client, configURL string) (*Remote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, configURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	remote, err := parseRemote(body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	return remote, nil
}

func parseRemote(body []byte) (*Remote, error) {
	var document remoteDocument
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	host := document.Host
	if host == "" {
		host = document.UpperHost
	}
	if host == "" {
		return nil, errors.New("config has no host")
	}

	rawPort := document.Port
	if len(rawPort) == 0 {
		rawPort = document.UpperPort
	}
	port, err := parsePort(rawPort)
	if err != nil {
		return nil, err
	}

	return &Remote{Host: host, Port: port}, nil
}

// parsePort accepts both 8000 and "8000"
func parsePort(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, errors.New("config has no port")
	}

	value := strings.Trim(string(raw), `"`)
	port, err := strconv.Atoi(value)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %s", string(raw))
	}

	return port, nil
}
