package dataflows

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/CortexFolio/internal/result"
	"github.com/dyike/CortexFolio/pkg/utils"
)

const defaultUserAgent = "CortexFolio/1.0"

func newRestyClient(baseURL string, timeout time.Duration, userAgent string) *resty.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", userAgent)
	if baseURL != "" {
		client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	}
	return client
}

// checkResponse turns transport failures and non-2xx replies into
// upstream errors.
func checkResponse(op string, resp *resty.Response, err error) error {
	if err != nil {
		return result.Wrap(result.KindUpstream, op, err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return result.Errorf(result.KindUpstream, op, "HTTP %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return utils.Truncate(s, n) + "..."
}

// Pacer spaces consecutive calls by a fixed delay. A zero delay disables it.
type Pacer struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
}

func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

type pacerKey struct{}

// WithPacer scopes p to the run carried by ctx. Adapters and tools called
// with the returned context are spaced by p; other runs are not.
func WithPacer(ctx context.Context, p *Pacer) context.Context {
	return context.WithValue(ctx, pacerKey{}, p)
}

// Pace waits on the run's pacer. Without one it only checks ctx.
func Pace(ctx context.Context) error {
	p, _ := ctx.Value(pacerKey{}).(*Pacer)
	return p.Wait(ctx)
}

// Wait blocks until the delay since the previous call has elapsed.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || p.delay <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if wait := p.delay - time.Since(p.last); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}

func requireKey(op, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return result.Errorf(result.KindPrecondition, op, "%s not configured", name)
	}
	return nil
}

func symbolPath(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
