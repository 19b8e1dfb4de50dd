package app_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"playreviews/internal/domain"
)

// ---- fakes ----

// pagedSource serves fixed pages in order; page i is returned for the i-th
// request. failAt (1-based) makes that request fail instead.
type pagedSource struct {
	mu     sync.Mutex
	pages  []domain.Page
	failAt int
	calls  int
	tokens []domain.PageToken
	delay  time.Duration
}

func (s *pagedSource) GetPage(ctx context.Context, appID string, sort domain.SortOrder, token domain.PageToken) (domain.Page, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.Page{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.failAt == n {
		return domain.Page{}, fmt.Errorf("boom on request %d", n)
	}
	if n > len(s.pages) {
		return domain.Page{}, nil
	}
	return s.pages[n-1], nil
}

func (s *pagedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// items returns n reviews named u<start>..u<start+n-1>, one day apart.
func items(start, n int) []domain.ReviewItem {
	out := make([]domain.ReviewItem, 0, n)
	for i := start; i < start+n; i++ {
		out = append(out, domain.ReviewItem{
			UserName: fmt.Sprintf("u%d", i),
			Score:    1 + i%5,
			Text:     fmt.Sprintf("review %d", i),
			Date:     time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			ThumbsUp: i,
		})
	}
	return out
}

// chain splits total items into pages of size, linking them with tokens;
// the last page has no token.
func chain(total, size int) []domain.Page {
	var pages []domain.Page
	for start := 0; start < total; start += size {
		n := size
		if start+n > total {
			n = total - start
		}
		p := domain.Page{Items: items(start, n)}
		if start+n < total {
			p.NextToken = domain.PageToken(fmt.Sprintf("T%d", start+n))
		}
		pages = append(pages, p)
	}
	return pages
}
