package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/rpc"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kolo/xmlrpc"

	"github.com/jonwraymond/wikigraph/observe"
	"github.com/jonwraymond/wikigraph/pageid"
)

// DefaultXMLRPCPath is DokuWiki's XML-RPC endpoint below the wiki root.
const DefaultXMLRPCPath = "/lib/exe/xmlrpc.php"

// XMLRPCConfig configures an XMLRPCSource.
type XMLRPCConfig struct {
	// BaseURL is the wiki root, e.g. https://wiki.example.org.
	BaseURL string

	// Path is appended to BaseURL. Default: DefaultXMLRPCPath.
	Path string

	// Username and Password authenticate with dokuwiki.login. An empty
	// username skips login.
	Username string
	Password string

	// Timeout bounds each HTTP round trip. Default: 30s.
	Timeout time.Duration

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper

	Logger observe.Logger
}

// XMLRPCSource reads documents through DokuWiki's XML-RPC API. It logs in
// before every logical call; the session cookie is kept by the client.
type XMLRPCSource struct {
	mu        sync.Mutex
	client    *xmlrpc.Client
	transport http.RoundTripper
	endpoint  string
	username  string
	password  string
	logger    observe.Logger
}

type xmlrpcPage struct {
	ID   string `xmlrpc:"id"`
	Size int    `xmlrpc:"size"`
}

type xmlrpcHit struct {
	ID      string `xmlrpc:"id"`
	Title   string `xmlrpc:"title"`
	Score   int    `xmlrpc:"score"`
	Snippet string `xmlrpc:"snippet"`
}

// NewXMLRPCSource creates a source for the wiki at cfg.BaseURL.
func NewXMLRPCSource(cfg XMLRPCConfig) (*XMLRPCSource, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("wiki: base url is required")
	}
	path := cfg.Path
	if path == "" {
		path = DefaultXMLRPCPath
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: timeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   8,
		}
	}

	endpoint := strings.TrimRight(cfg.BaseURL, "/") + path
	client, err := xmlrpc.NewClient(endpoint, transport)
	if err != nil {
		return nil, fmt.Errorf("wiki: create xml-rpc client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &XMLRPCSource{
		client:    client,
		transport: transport,
		endpoint:  endpoint,
		username:  cfg.Username,
		password:  cfg.Password,
		logger:    logger.With(observe.F("component", "xmlrpc"), observe.F("endpoint", endpoint)),
	}, nil
}

// Close releases the underlying client.
func (s *XMLRPCSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client.Close()
}

func (s *XMLRPCSource) current() *xmlrpc.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// reconnect replaces a client whose connection loop has stopped. The
// rpc client shuts down for good after a failed response read (for
// example a non-2xx status), so later calls need a fresh one.
func (s *XMLRPCSource) reconnect(broken *xmlrpc.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != broken {
		return
	}
	client, err := xmlrpc.NewClient(s.endpoint, s.transport)
	if err != nil {
		return
	}
	_ = broken.Close()
	s.client = client
}

// Authenticate calls dokuwiki.login.
func (s *XMLRPCSource) Authenticate(ctx context.Context) error {
	if s.username == "" {
		return nil
	}
	var ok bool
	if err := s.call(ctx, "dokuwiki.login", []interface{}{s.username, s.password}, &ok); err != nil {
		return err
	}
	if !ok {
		return &UpstreamError{Op: "dokuwiki.login", Err: fmt.Errorf("login rejected for user %q", s.username)}
	}
	return nil
}

// FetchRaw calls wiki.getPage. Empty text means the page does not exist.
func (s *XMLRPCSource) FetchRaw(ctx context.Context, id string) (string, error) {
	if err := s.Authenticate(ctx); err != nil {
		return "", err
	}
	var text string
	if err := s.call(ctx, "wiki.getPage", []interface{}{id}, &text); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNotFound
	}
	return text, nil
}

// ListAll calls wiki.getAllPages and filters by namespace.
func (s *XMLRPCSource) ListAll(ctx context.Context, ns string) ([]PageRef, error) {
	if err := s.Authenticate(ctx); err != nil {
		return nil, err
	}
	var pages []xmlrpcPage
	if err := s.call(ctx, "wiki.getAllPages", nil, &pages); err != nil {
		return nil, err
	}
	out := make([]PageRef, 0, len(pages))
	for _, p := range pages {
		if pageid.InNamespace(p.ID, ns) {
			out = append(out, PageRef{ID: p.ID, Size: p.Size})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Search calls dokuwiki.search.
func (s *XMLRPCSource) Search(ctx context.Context, query string) ([]SearchHit, error) {
	if err := s.Authenticate(ctx); err != nil {
		return nil, err
	}
	var hits []xmlrpcHit
	if err := s.call(ctx, "dokuwiki.search", []interface{}{query}, &hits); err != nil {
		return nil, err
	}
	out := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, SearchHit(h))
	}
	return out, nil
}

// call runs one XML-RPC method, abandoning the wait when ctx ends.
func (s *XMLRPCSource) call(ctx context.Context, method string, args []interface{}, reply interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var params interface{}
	if args != nil {
		params = args
	}

	start := time.Now()
	client := s.current()
	pending := client.Go(method, params, reply, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case done := <-pending.Done:
		if done.Error != nil {
			err := classify(method, done.Error)
			if IsTransient(err) {
				s.reconnect(client)
			}
			s.logger.Debug(ctx, "xml-rpc call failed",
				observe.F("method", method),
				observe.F("duration_ms", time.Since(start).Milliseconds()),
				observe.F("error", err))
			return err
		}
		s.logger.Debug(ctx, "xml-rpc call",
			observe.F("method", method),
			observe.F("duration_ms", time.Since(start).Milliseconds()))
		return nil
	}
}

// classify maps client errors onto UpstreamError. Faults returned by the
// wiki are permanent; everything else is transient.
func classify(method string, err error) error {
	var fault xmlrpc.FaultError
	if errors.As(err, &fault) {
		return &UpstreamError{Op: method, Err: fmt.Errorf("XML-RPC fault %d: %s", fault.Code, fault.String)}
	}
	var serverErr rpc.ServerError
	if errors.As(err, &serverErr) {
		return &UpstreamError{Op: method, Err: fmt.Errorf("XML-RPC fault: %s", string(serverErr))}
	}
	// Network errors, HTTP status failures and client shutdown.
	return &UpstreamError{Op: method, Err: err, Transient: true}
}

var _ DocumentSource = (*XMLRPCSource)(nil)
