package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/wikigraph/lookup"
	"github.com/jonwraymond/wikigraph/observe"
	"github.com/jonwraymond/wikigraph/pageid"
	"github.com/jonwraymond/wikigraph/wiki"
)

// UnindexedHeader carries the number of documents a tagpages answer did
// not examine.
const UnindexedHeader = "X-Wikigraph-Unindexed"

type query struct {
	action    string
	page      string
	tag       string
	q         string
	namespace string
}

func (s *Server) parseQuery(c *gin.Context) query {
	q := query{
		action: c.Query("api"),
		page:   c.Query("page"),
		tag:    c.Query("tag"),
		q:      c.Query("q"),
	}
	// An absent namespace means the base namespace; an explicit empty one
	// means the whole corpus.
	if ns, ok := c.GetQuery("namespace"); ok {
		q.namespace = ns
	} else {
		q.namespace = s.svc.Options().BaseNamespace
	}
	return q
}

func (s *Server) handleQuery(c *gin.Context) {
	q := s.parseQuery(c)
	ctx := c.Request.Context()

	result, err := s.dispatch(ctx, c, q)
	if err != nil {
		s.writeError(c, q, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) dispatch(ctx context.Context, c *gin.Context, q query) (any, error) {
	switch q.action {
	case lookup.OpPageName:
		title, err := s.svc.Title(ctx, q.page)
		return lookup.PageTitle{ID: pageid.Canonical(q.page), Title: title}, err
	case lookup.OpLinks:
		return s.svc.Links(ctx, q.page)
	case lookup.OpTags:
		return s.svc.Tags(ctx, q.page)
	case lookup.OpPageInfo:
		return s.svc.PageInfo(ctx, q.page)
	case lookup.OpPreview:
		return s.svc.Preview(ctx, q.page)
	case lookup.OpAllPages:
		return s.svc.AllPages(ctx, q.namespace)
	case lookup.OpNamespaces:
		return s.svc.Namespaces(ctx, q.namespace)
	case lookup.OpTagPages:
		res, err := s.svc.PagesByTag(ctx, q.tag)
		if err != nil {
			return nil, err
		}
		c.Header(UnindexedHeader, strconv.Itoa(res.Unindexed))
		return res.Pages, nil
	case lookup.OpSearch:
		return s.svc.Search(ctx, q.q)
	case lookup.OpRandom:
		return s.svc.RandomPage(ctx)
	case lookup.OpGraph:
		return s.svc.BuildGraph(ctx, q.namespace)
	case lookup.OpTagIndex:
		return s.svc.TagIndex(ctx)
	case "config":
		return s.svc.Config(), nil
	default:
		return nil, unknownActionError(q.action)
	}
}

type unknownActionError string

func (e unknownActionError) Error() string { return "Unknown API action: " + string(e) }

func (s *Server) writeError(c *gin.Context, q query, err error) {
	var (
		mi *lookup.MalformedInputError
		ua unknownActionError
		ue *wiki.UpstreamError
	)
	switch {
	case errors.As(err, &mi):
		c.JSON(http.StatusOK, gin.H{"error": "Missing " + mi.Param + " parameter"})
	case errors.Is(err, lookup.ErrNoPages):
		c.JSON(http.StatusOK, gin.H{"error": "No pages found"})
	case errors.As(err, &ua):
		c.JSON(http.StatusOK, gin.H{"error": ua.Error()})
	default:
		s.logger.Error(c.Request.Context(), "query failed",
			observe.F("action", q.action),
			observe.F("error", err.Error()),
		)
		body := gin.H{"error": err.Error()}
		if s.opts.Debug && errors.As(err, &ue) {
			body["op"] = ue.Op
		}
		c.JSON(http.StatusInternalServerError, body)
	}
}
