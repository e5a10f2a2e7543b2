package wiki

import (
	"context"
	"errors"

	"github.com/jonwraymond/wikigraph/resilience"
)

// Resilient runs every call of the wrapped source through a resilience
// executor. Only transient upstream errors are retried or count against
// the circuit breaker; ErrNotFound passes straight through.
type Resilient struct {
	src  DocumentSource
	exec *resilience.Executor
}

// NewResilient wraps src with exec. A nil exec calls straight through.
func NewResilient(src DocumentSource, exec *resilience.Executor) *Resilient {
	if exec == nil {
		exec = resilience.NewExecutor()
	}
	return &Resilient{src: src, exec: exec}
}

// NewResilientFromConfig builds the standard executor from cfg.
func NewResilientFromConfig(src DocumentSource, cfg resilience.Config) *Resilient {
	return NewResilient(src, resilience.New(cfg, IsTransient))
}

// CircuitBreaker exposes the executor's breaker for health reporting.
func (r *Resilient) CircuitBreaker() *resilience.CircuitBreaker {
	return r.exec.CircuitBreaker()
}

func (r *Resilient) Authenticate(ctx context.Context) error {
	return r.run(ctx, "authenticate", r.src.Authenticate)
}

func (r *Resilient) FetchRaw(ctx context.Context, id string) (string, error) {
	var text string
	err := r.run(ctx, "wiki.getPage", func(ctx context.Context) error {
		var err error
		text, err = r.src.FetchRaw(ctx, id)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (r *Resilient) ListAll(ctx context.Context, ns string) ([]PageRef, error) {
	var pages []PageRef
	err := r.run(ctx, "wiki.getAllPages", func(ctx context.Context) error {
		var err error
		pages, err = r.src.ListAll(ctx, ns)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

func (r *Resilient) Search(ctx context.Context, query string) ([]SearchHit, error) {
	var hits []SearchHit
	err := r.run(ctx, "dokuwiki.search", func(ctx context.Context) error {
		var err error
		hits, err = r.src.Search(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// run executes fn and turns executor rejections into upstream errors so
// callers see a single failure taxonomy.
func (r *Resilient) run(ctx context.Context, op string, fn func(context.Context) error) error {
	err := r.exec.Execute(ctx, fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, resilience.ErrRateLimitExceeded),
		errors.Is(err, resilience.ErrBulkheadFull),
		errors.Is(err, resilience.ErrTimeout):
		return &UpstreamError{Op: op, Err: err}
	default:
		return err
	}
}

var _ DocumentSource = (*Resilient)(nil)
