package datasets

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
	"golang.org/x/text/cases"
)

const (
	StatusDeleted    = "deleted"
	StatusActive     = "active"
	StatusProduction = "production"
)

// Query is a parsed search string.
//
//	tag:<value>      record must carry every listed tag
//	by:<value>       record creator must equal one of the listed users
//	status:<value>   deleted, active or production; the last one wins
//	anything else    free text, matched against name or description
type Query struct {
	Text      []string
	Tags      []string
	Uploaders []string
	Status    string
}

// fold returns the caseless form of s. A Caser keeps state, so a new one is
// taken per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// ParseQuery tokenizes text on whitespace. Prefixed tokens with an empty
// value are ignored.
func ParseQuery(text string) Query {
	var q Query
	for _, tok := range strings.Fields(text) {
		lower := strings.ToLower(tok)
		switch {
		case strings.HasPrefix(lower, "tag:"):
			if v := tok[len("tag:"):]; v != "" {
				q.Tags = append(q.Tags, fold(v))
			}
		case strings.HasPrefix(lower, "by:"):
			if v := tok[len("by:"):]; v != "" {
				q.Uploaders = append(q.Uploaders, fold(v))
			}
		case lower == "status:"+StatusDeleted, lower == "status:"+StatusActive, lower == "status:"+StatusProduction:
			q.Status = lower[len("status:"):]
		default:
			q.Text = append(q.Text, tok)
		}
	}
	return q
}

// IsEmpty reports whether the query carries no filter at all.
func (q Query) IsEmpty() bool {
	return len(q.Text) == 0 && len(q.Tags) == 0 && len(q.Uploaders) == 0 && q.Status == ""
}

// Matches applies the query to d. Categories are combined with AND; free text
// and uploaders match any listed value, tags must all be present.
func (q Query) Matches(d *models.Dataset, showDeleted bool) bool {
	switch q.Status {
	case StatusDeleted:
		if !d.IsDeleted {
			return false
		}
	case StatusProduction:
		if d.IsDeleted || !d.IsProduction {
			return false
		}
	case StatusActive:
		if d.IsDeleted || d.IsProduction {
			return false
		}
	default:
		if d.IsDeleted && !showDeleted {
			return false
		}
	}

	if len(q.Text) > 0 {
		name, desc := fold(d.Name), fold(d.Description)
		found := false
		for _, t := range q.Text {
			t = fold(t)
			if strings.Contains(name, t) || strings.Contains(desc, t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(q.Uploaders) > 0 {
		creator := fold(d.CreatedBy)
		found := false
		for _, u := range q.Uploaders {
			if creator == u {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(q.Tags) > 0 {
		have := make(map[string]bool, len(d.Tags))
		for _, t := range d.Tags {
			have[fold(strings.TrimSpace(t))] = true
		}
		for _, t := range q.Tags {
			if !have[t] {
				return false
			}
		}
	}
	return true
}

// Search runs a query string against the catalog. An empty query yields no
// results; use List to browse.
func (e *Engine) Search(ctx context.Context, text string, showDeleted bool) ([]*models.Dataset, apperrors.Error) {
	result := []*models.Dataset{}
	q := ParseQuery(text)
	if q.IsEmpty() {
		return result, nil
	}

	// uploader filters are folded and matched in Matches, not by the store
	sq := models.DatasetQuery{NewestFirst: true}
	switch {
	case q.Status == StatusDeleted:
		sq.Deleted = models.BoolPtr(true)
	case q.Status != "" || !showDeleted:
		sq.Deleted = models.BoolPtr(false)
	}
	candidates, err := e.store.QueryDatasets(ctx, sq)
	if err != nil {
		return nil, ErrUnableToLoad.Err(err)
	}
	for _, d := range candidates {
		if q.Matches(d, showDeleted) {
			result = append(result, d)
		}
	}
	return result, nil
}

type GraphNode struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Version      int        `json:"version"`
	BaseName     string     `json:"base_name"`
	ParentID     *uuid.UUID `json:"parent_id,omitempty"`
	Tags         []string   `json:"tags"`
	IsDeleted    bool       `json:"is_deleted,omitempty"`
	IsProduction bool       `json:"is_production,omitempty"`
}

type GraphEdge struct {
	Source uuid.UUID `json:"source"`
	Target uuid.UUID `json:"target"`
}

// Graph is a node and edge projection of dataset records. Edges run from
// parent to child.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

func buildGraph(list []*models.Dataset) *Graph {
	g := &Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	for _, d := range list {
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		g.Nodes = append(g.Nodes, GraphNode{
			ID:           d.ID,
			Name:         d.Name,
			Version:      d.Version,
			BaseName:     d.BaseName,
			ParentID:     d.ParentID,
			Tags:         tags,
			IsDeleted:    d.IsDeleted,
			IsProduction: d.IsProduction,
		})
		if d.ParentID != nil {
			g.Edges = append(g.Edges, GraphEdge{Source: *d.ParentID, Target: d.ID})
		}
	}
	return g
}

// LineageGraph projects the whole catalog into a graph. An edge is emitted for
// every record with a parent, even if the parent is not among the nodes.
func (e *Engine) LineageGraph(ctx context.Context, showDeleted bool) (*Graph, apperrors.Error) {
	list, err := e.List(ctx, showDeleted)
	if err != nil {
		return nil, err
	}
	return buildGraph(list), nil
}

// FamilyGraph projects every version sharing id's base name, deleted ones
// included.
func (e *Engine) FamilyGraph(ctx context.Context, id uuid.UUID) (*Graph, apperrors.Error) {
	d, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	family, err := e.Versions(ctx, d.BaseName, true)
	if err != nil {
		return nil, err
	}
	return buildGraph(family), nil
}

// NormalizeTags trims tags, drops empty ones and removes caseless duplicates,
// keeping the first spelling. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := fold(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

// SplitTags parses a comma separated tag list.
func SplitTags(s string) []string {
	return NormalizeTags(strings.Split(s, ","))
}

func sameTags(a, b []string) bool {
	set := func(tags []string) map[string]bool {
		m := make(map[string]bool, len(tags))
		for _, t := range tags {
			m[strings.TrimSpace(t)] = true
		}
		return m
	}
	sa, sb := set(a), set(b)
	if len(sa) != len(sb) {
		return false
	}
	for t := range sa {
		if !sb[t] {
			return false
		}
	}
	return true
}
