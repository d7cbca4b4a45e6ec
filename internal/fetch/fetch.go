// Package fetch talks to the remote config service: one GET per namespace,
// optionally signed, response decoded into a config tree.
package fetch

import (
	"confetch/internal/sign"
	"confetch/internal/types"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 10 * time.Second

	timestampHeader = "timestamp"
	authHeader      = "Authorization"
)

type Fetcher struct {
	cfg  types.ClientConfig
	http *http.Client
	// now is swapped out in tests to pin signature timestamps.
	now func() time.Time
}

// New builds a Fetcher for one client config. httpClient may be nil, in which
// case a client with a request timeout is used; any bound on a hung fetch
// beyond that is the caller's business.
func New(cfg types.ClientConfig, httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Fetcher{cfg: cfg, http: httpClient, now: time.Now}
}

// Fetch retrieves the full configuration of namespace. Transport outcomes
// (unsendable request, non-2xx status) surface as ErrTransport; a body that
// does not decode surfaces as ErrRemoteParse. No retries happen here.
func (f *Fetcher) Fetch(ctx context.Context, namespace string) (types.ConfigValue, error) {
	u, err := f.buildURL(namespace)
	if err != nil {
		return nil, err
	}
	log.WithField("namespace", namespace).Tracef("fetching %s", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, types.Err(types.ErrTransport, err, "building request for %s", namespace)
	}
	if f.cfg.Secret != "" {
		timestamp := f.now().UnixMilli()
		signature, err := sign.Sign(timestamp, u, f.cfg.Secret)
		if err != nil {
			return nil, err
		}
		req.Header.Set(timestampHeader, fmt.Sprintf("%d", timestamp))
		req.Header.Set(authHeader, fmt.Sprintf("Apollo %s:%s", f.cfg.AppID, signature))
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, types.Err(types.ErrTransport, err, "fetching namespace %s", namespace)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.Err(types.ErrTransport, err, "reading response for namespace %s", namespace)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, types.Err(types.ErrTransport, nil, "namespace %s: status %d", namespace, resp.StatusCode)
	}

	var config types.ConfigValue
	if err := json.Unmarshal(body, &config); err != nil {
		return nil, types.Err(types.ErrRemoteParse, err, "decoding namespace %s", namespace)
	}
	return config, nil
}

// buildURL composes {server}/configfiles/json/{app}/{cluster}/{ns} and adds
// ip/label query parameters only when grayscale targeting is configured.
func (f *Fetcher) buildURL(namespace string) (string, error) {
	base := fmt.Sprintf("%s/configfiles/json/%s/%s/%s",
		f.cfg.ConfigServer, f.cfg.AppID, f.cfg.Cluster, namespace)
	u, err := url.Parse(base)
	if err != nil {
		return "", types.Err(types.ErrTransport, err, "invalid config server url %q", f.cfg.ConfigServer)
	}
	q := u.Query()
	if f.cfg.IP != "" {
		q.Set("ip", f.cfg.IP)
	}
	if f.cfg.Label != "" {
		q.Set("label", f.cfg.Label)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
