// Package authority queries the content-filtering authority's HTTP check
// endpoints to decide whether a domain is currently blocked.
package authority

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/haukened/blockwatch/internal/watch/common/clock"
	"github.com/haukened/blockwatch/internal/watch/common/log"
	"github.com/haukened/blockwatch/internal/watch/domain"
	"github.com/haukened/blockwatch/internal/watch/infra/metrics"
)

var (
	// ErrEndpointUnreachable wraps transport failures and timeouts.
	ErrEndpointUnreachable = errors.New("authority endpoint unreachable")
	// ErrEndpointMalformedResponse covers non-200 statuses and bodies that are not a verdict.
	ErrEndpointMalformedResponse = errors.New("authority endpoint returned malformed response")
)

const (
	errBuildRequest   = "failed to build request for %s: %w"
	errRequestFailed  = "request to %s failed: %w: %v"
	errUnexpectedCode = "%w: %s answered HTTP %d"
	errDecodeBody     = "%w: %s body: %v"

	checkPath       = "/api/check"
	maxBodyBytes    = 64 << 10
	defaultTimeout  = 10 * time.Second
	defaultScheme   = "http"
	statusOK        = "ok"
	statusDown      = "unreachable"
	statusMalformed = "malformed"
)

// DefaultEndpoints are the authority's public check servers.
var DefaultEndpoints = []string{"180.131.144.144", "180.131.145.145"}

// Doer is the subset of *http.Client the checker needs.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Checker.
type Options struct {
	Endpoints []string      // tried in order
	Scheme    string        // "http" or "https"
	Timeout   time.Duration // per endpoint
	Client    Doer
	Logger    log.Logger
	Clock     clock.Clock
	Metrics   *metrics.Metrics
}

// Checker asks each endpoint in order whether a domain is blocked and stops
// at the first one that confirms it.
type Checker struct {
	endpoints []string
	scheme    string
	timeout   time.Duration
	client    Doer
	logger    log.Logger
	clock     clock.Clock
	metrics   *metrics.Metrics
}

type verdict struct {
	Blocked *bool `json:"blocked"`
}

// NewChecker returns a Checker with defaults filled in for zero options.
func NewChecker(opts Options) *Checker {
	if len(opts.Endpoints) == 0 {
		opts.Endpoints = DefaultEndpoints
	}
	if opts.Scheme == "" {
		opts.Scheme = defaultScheme
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Clock == nil {
		opts.Clock = &clock.RealClock{}
	}
	return &Checker{
		endpoints: append([]string(nil), opts.Endpoints...),
		scheme:    opts.Scheme,
		timeout:   opts.Timeout,
		client:    opts.Client,
		logger:    opts.Logger,
		clock:     opts.Clock,
		metrics:   opts.Metrics,
	}
}

// Endpoints returns the configured endpoints in query order.
func (c *Checker) Endpoints() []string {
	return append([]string(nil), c.endpoints...)
}

// Check queries the endpoints in order. The first endpoint that answers
// {"blocked": true} decides the result. Any failure moves on to the next
// endpoint; if none confirms a block the domain is reported unblocked and
// Err holds the last failure for diagnostics.
func (c *Checker) Check(ctx context.Context, d domain.Domain) domain.CheckResult {
	res := domain.CheckResult{Domain: d}

	for _, ep := range c.endpoints {
		if ctx.Err() != nil {
			res.Err = fmt.Errorf("%w: %v", ErrEndpointUnreachable, ctx.Err())
			break
		}
		blocked, err := c.query(ctx, ep, d)
		if err != nil {
			res.Err = err
			c.logger.Warn(map[string]any{
				"domain":   d.String(),
				"endpoint": ep,
				"error":    err,
			}, "authority check failed")
			continue
		}
		if blocked {
			res.Blocked = true
			res.Source = ep
			res.Err = nil
			break
		}
	}

	res.CheckedAt = c.clock.Now()
	c.metrics.IncDomainCheck(res.Blocked)
	c.logger.Debug(map[string]any{
		"domain":  d.String(),
		"blocked": res.Blocked,
		"source":  res.Source,
	}, "domain checked")
	return res
}

// IsBlocked is Check reduced to its verdict.
func (c *Checker) IsBlocked(ctx context.Context, d domain.Domain) bool {
	return c.Check(ctx, d).Blocked
}

// query performs one request against a single endpoint.
func (c *Checker) query(ctx context.Context, endpoint string, d domain.Domain) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := url.URL{
		Scheme:   c.scheme,
		Host:     endpoint,
		Path:     checkPath,
		RawQuery: url.Values{"domain": []string{d.String()}}.Encode(),
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		c.metrics.IncEndpointRequest(endpoint, statusDown)
		return false, fmt.Errorf(errBuildRequest, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.IncEndpointRequest(endpoint, statusDown)
		return false, fmt.Errorf(errRequestFailed, endpoint, ErrEndpointUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.IncEndpointRequest(endpoint, statusMalformed)
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return false, fmt.Errorf(errUnexpectedCode, ErrEndpointMalformedResponse, endpoint, resp.StatusCode)
	}

	var v verdict
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&v); err != nil {
		c.metrics.IncEndpointRequest(endpoint, statusMalformed)
		return false, fmt.Errorf(errDecodeBody, ErrEndpointMalformedResponse, endpoint, err)
	}
	c.metrics.IncEndpointRequest(endpoint, statusOK)

	// A body without the field is treated as "not blocked".
	return v.Blocked != nil && *v.Blocked, nil
}
