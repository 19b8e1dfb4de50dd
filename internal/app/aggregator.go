package app

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"playreviews/internal/domain"
)

// PartialPolicy decides what FetchAggregated returns when a page request
// fails after some pages were already collected.
type PartialPolicy int

const (
	// PartialDiscard drops everything collected so far.
	PartialDiscard PartialPolicy = iota
	// PartialKeep returns the collected items together with the SourceError.
	PartialKeep
)

func ParsePartialPolicy(s string) PartialPolicy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep", "true", "1", "yes":
		return PartialKeep
	}
	return PartialDiscard
}

type Aggregator struct {
	source  domain.ReviewSource
	partial PartialPolicy
}

func NewAggregator(src domain.ReviewSource, p PartialPolicy) *Aggregator {
	return &Aggregator{source: src, partial: p}
}

// FetchAggregated requests pages one at a time until targetCount items are
// collected or the source runs dry, then truncates to targetCount.
func (a *Aggregator) FetchAggregated(ctx context.Context, appID string, targetCount int, sort domain.SortOrder) ([]domain.AggregatedReview, error) {
	if strings.TrimSpace(appID) == "" {
		return nil, &domain.ValidationError{Field: "appId", Reason: "must not be empty"}
	}
	if targetCount <= 0 {
		return nil, &domain.ValidationError{Field: "targetCount", Reason: "must be a positive integer"}
	}
	if !sort.Valid() {
		return nil, &domain.ValidationError{Field: "sortOrder", Reason: "must be one of NEWEST, RATING, HELPFUL"}
	}

	var (
		out   []domain.AggregatedReview
		token domain.PageToken
		pages int
	)
	for {
		if err := ctx.Err(); err != nil {
			return a.fail(out, &domain.SourceError{AppID: appID, Page: pages, Err: err})
		}
		page, err := a.source.GetPage(ctx, appID, sort, token)
		if err != nil {
			var se *domain.SourceError
			if !errors.As(err, &se) {
				se = &domain.SourceError{AppID: appID, Page: pages, Err: err}
			}
			log.Warn().Err(err).Str("app_id", appID).Int("page", pages).Int("collected", len(out)).Msg("page request failed")
			return a.fail(out, se)
		}
		pages++

		// an empty page ends the walk even when it carries a token
		if len(page.Items) == 0 {
			break
		}
		for _, it := range page.Items {
			out = append(out, domain.AggregatedReview{ReviewItem: it, Month: domain.MonthKey(it.Date)})
		}
		token = page.NextToken
		if token == "" || len(out) >= targetCount {
			break
		}
	}

	if len(out) > targetCount {
		out = out[:targetCount]
	}
	log.Debug().Str("app_id", appID).Str("sort", string(sort)).Int("pages", pages).Int("count", len(out)).Msg("reviews aggregated")
	return out, nil
}

func (a *Aggregator) fail(collected []domain.AggregatedReview, err *domain.SourceError) ([]domain.AggregatedReview, error) {
	if a.partial == PartialKeep && len(collected) > 0 {
		return collected, err
	}
	return nil, err
}
