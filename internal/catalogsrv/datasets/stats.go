package datasets

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

const (
	DefaultRecentLimit = 5
	StatsWindow        = 180 * 24 * time.Hour
)

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// MonthlyStats counts created records per calendar month (YYYY-MM), oldest
// month first. Labels and Values have the same length.
type MonthlyStats struct {
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

func (e *Engine) active(ctx context.Context) ([]*models.Dataset, apperrors.Error) {
	list, err := e.store.QueryDatasets(ctx, models.DatasetQuery{Deleted: models.BoolPtr(false)})
	if err != nil {
		return nil, ErrUnableToLoad.Err(err)
	}
	return list, nil
}

// AllTags returns the sorted set of tags used by active records.
func (e *Engine) AllTags(ctx context.Context) ([]string, apperrors.Error) {
	list, err := e.active(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, d := range list {
		for _, t := range d.Tags {
			if t = strings.TrimSpace(t); t != "" {
				set[t] = true
			}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

// TagCounts returns how many active records carry each tag, most used first.
func (e *Engine) TagCounts(ctx context.Context) ([]TagCount, apperrors.Error) {
	list, err := e.active(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, d := range list {
		for _, t := range d.Tags {
			if t = strings.TrimSpace(t); t != "" {
				counts[t]++
			}
		}
	}
	result := make([]TagCount, 0, len(counts))
	for t, c := range counts {
		result = append(result, TagCount{Tag: t, Count: c})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})
	return result, nil
}

// Recent returns the newest active records.
func (e *Engine) Recent(ctx context.Context, limit int) ([]*models.Dataset, apperrors.Error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	list, err := e.store.QueryDatasets(ctx, models.DatasetQuery{
		Deleted:     models.BoolPtr(false),
		NewestFirst: true,
		Limit:       limit,
	})
	if err != nil {
		return nil, ErrUnableToLoad.Err(err)
	}
	return list, nil
}

// ByCreator returns the active records created by user, newest first.
func (e *Engine) ByCreator(ctx context.Context, user string) ([]*models.Dataset, apperrors.Error) {
	list, err := e.store.QueryDatasets(ctx, models.DatasetQuery{
		Deleted:     models.BoolPtr(false),
		CreatedBy:   []string{user},
		NewestFirst: true,
	})
	if err != nil {
		return nil, ErrUnableToLoad.Err(err)
	}
	return list, nil
}

// MonthlyCounts groups records created at or after since by month.
func (e *Engine) MonthlyCounts(ctx context.Context, since time.Time) (*MonthlyStats, apperrors.Error) {
	list, err := e.store.QueryDatasets(ctx, models.DatasetQuery{CreatedAfter: &since})
	if err != nil {
		return nil, ErrUnableToLoad.Err(err)
	}
	months := make(map[string]int)
	for _, d := range list {
		months[d.CreatedAt.UTC().Format("2006-01")]++
	}
	stats := &MonthlyStats{Labels: []string{}, Values: []int{}}
	for m := range months {
		stats.Labels = append(stats.Labels, m)
	}
	sort.Strings(stats.Labels)
	for _, m := range stats.Labels {
		stats.Values = append(stats.Values, months[m])
	}
	return stats, nil
}

// Now returns the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}
