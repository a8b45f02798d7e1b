package intake

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"caseintake/internal/models"
)

// CategorySource serves the active case categories of a country.
type CategorySource interface {
	CaseCategories(ctx context.Context, token, country string) ([]models.CaseCategoryOption, error)
}

// CategoryCache memoizes category lookups per country and collapses
// concurrent lookups of the same country into one request.
type CategoryCache struct {
	source CategorySource
	cache  *expirable.LRU[string, []models.CaseCategoryOption]
	group  singleflight.Group
}

func NewCategoryCache(source CategorySource, ttl time.Duration) *CategoryCache {
	return &CategoryCache{
		source: source,
		cache:  expirable.NewLRU[string, []models.CaseCategoryOption](256, nil, ttl),
	}
}

func (c *CategoryCache) CaseCategories(ctx context.Context, token, country string) ([]models.CaseCategoryOption, error) {
	if v, ok := c.cache.Get(country); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(country, func() (any, error) {
		opts, err := c.source.CaseCategories(ctx, token, country)
		if err != nil {
			return nil, err
		}
		c.cache.Add(country, opts)
		return opts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.CaseCategoryOption), nil
}
