package graph

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonwraymond/wikigraph/pageid"
)

// HandleEvent applies a renderer interaction:
//
//	secondary-select  expand the node
//	primary-select    highlight its traceback, or clear on the background
//	hover-enter       show its info and highlight its traceback
//	hover-leave       hide the info and clear the highlight
//	double-activate   open the node in the wiki
//
// Only expansion is asynchronous; every other event has finished when
// HandleEvent returns.
func (s *Session) HandleEvent(ctx context.Context, ev Event) *Task {
	switch ev.Kind {
	case EventSecondarySelect:
		if ev.Node == "" {
			return doneTask(nil)
		}
		return s.Expand(ctx, ev.Node)
	case EventPrimarySelect:
		if ev.Node == "" {
			s.ClearSelection()
		} else {
			s.Select(ev.Node)
		}
	case EventHoverEnter:
		if ev.Node == "" {
			return doneTask(nil)
		}
		if info, ok := s.Info(ev.Node); ok {
			s.info.ShowInfo(info)
		}
		s.Select(ev.Node)
	case EventHoverLeave:
		s.info.HideInfo()
		s.ClearSelection()
	case EventDoubleActivate:
		if u, ok := s.SourceURL(ev.Node); ok {
			s.nav.Open(u)
		}
	default:
		return doneTask(fmt.Errorf("graph: unknown event %q", ev.Kind))
	}
	return doneTask(nil)
}

// Info describes nodeID for the info panel.
func (s *Session) Info(nodeID string) (Info, bool) {
	n, ok := s.Node(nodeID)
	if !ok {
		return Info{}, false
	}
	if n.Kind == KindTag {
		return Info{
			NodeID: n.ID,
			Kind:   n.Kind,
			Title:  "#" + n.Tag,
			Tag:    n.Tag,
			Hint:   "Click to expand, double-click to search in wiki",
		}, true
	}
	return Info{
		NodeID:    n.ID,
		Kind:      n.Kind,
		Title:     Unwrap(n.Label),
		PageID:    n.PageID,
		Namespace: pageid.Namespace(n.PageID),
		Hint:      "Click to expand, double-click to open in wiki",
	}, true
}

// SourceURL returns the wiki URL of nodeID: the document itself, or a
// wiki search for a tag. Without a wiki URL it is "#".
func (s *Session) SourceURL(nodeID string) (string, bool) {
	n, ok := s.Node(nodeID)
	if !ok {
		return "", false
	}
	return SourceURL(s.wikiURL, n), true
}

// SourceURL returns the wiki URL of n under base.
func SourceURL(base string, n Node) string {
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return "#"
	}
	if n.Kind == KindTag {
		return base + "/doku.php?do=search&id=" + url.QueryEscape(n.Tag)
	}
	return base + "/doku.php?id=" + url.QueryEscape(n.PageID)
}
