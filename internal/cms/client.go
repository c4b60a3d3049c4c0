// Package cms reads Greenwood City content from the Strapi REST API.
//
// Responses are cached by request under the content type's tag, so that
// revalidating a tag forces the next read to go upstream.
package cms

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/0x0BSoD/greenwood/internal/cache"
	"github.com/0x0BSoD/greenwood/internal/metrics"
)

const maxResponseSize = 10 << 20

var ErrNotFound = errors.New("cms: not found")

// StatusError is returned when the CMS answers with a non-2xx status.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cms %s: unexpected status %d", e.Endpoint, e.Code)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

type Options struct {
	BaseURL   string
	MediaURL  string
	Token     string
	Timeout   time.Duration
	Insecure  bool
	CacheTTL  time.Duration
	Transport http.RoundTripper
}

type Client struct {
	baseURL  *url.URL
	mediaURL string
	token    string
	http     *http.Client
	cache    cache.Store
	ttl      time.Duration
	group    singleflight.Group
	log      *zap.Logger
}

func New(opts Options, store cache.Store, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse cms url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("cms url %q must be absolute", opts.BaseURL)
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
		if opts.Insecure {
			transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			}
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	mediaURL := opts.MediaURL
	if mediaURL == "" {
		mediaURL = base.String()
	}

	return &Client{
		baseURL:  base,
		mediaURL: mediaURL,
		token:    opts.Token,
		http:     &http.Client{Transport: transport, Timeout: timeout},
		cache:    store,
		ttl:      opts.CacheTTL,
		log:      log.Named("cms"),
	}, nil
}

// fetch returns the records of GET /api/{endpoint}?{query}, served from the
// cache when present. Concurrent misses for the same request share one
// upstream call.
func (c *Client) fetch(ctx context.Context, endpoint string, query url.Values, tag string) ([]record, error) {
	key := "cms:" + endpoint + "?" + query.Encode()

	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		metrics.CMSRequestsTotal.WithLabelValues(endpoint, "hit").Inc()
		return decodeRecords(body)
	}

	// The shared upstream call outlives any one caller; the http.Client
	// timeout bounds it. Each caller still stops waiting on its own ctx.
	ch := c.group.DoChan(key, func() (any, error) {
		upstream := context.WithoutCancel(ctx)
		body, err := c.get(upstream, endpoint, query)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Set(upstream, key, body, []string{tag}, c.ttl); err != nil {
			c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		return body, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		metrics.CMSRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		metrics.CMSRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, res.Err
	}

	metrics.CMSRequestsTotal.WithLabelValues(endpoint, "miss").Inc()
	return decodeRecords(res.Val.([]byte))
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	u := c.baseURL.JoinPath("api", endpoint)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build cms request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.CMSRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("cms %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read cms %s: %w", endpoint, err)
	}

	return body, nil
}

func listQuery(sort string) url.Values {
	q := url.Values{}
	q.Set("populate", "*")
	q.Set("pagination[pageSize]", "100")
	if sort != "" {
		q.Set("sort", sort)
	}
	return q
}
