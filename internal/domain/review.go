package domain

import (
	"strings"
	"time"
)

// ReviewItem is one review as returned by a paged source.
type ReviewItem struct {
	ID        string
	UserName  string
	Score     int // 1..5
	Text      string
	Date      time.Time
	ThumbsUp  int
	Version   string
	ReplyText string
	ReplyDate *time.Time
}

// AggregatedReview is a ReviewItem keyed by calendar month.
type AggregatedReview struct {
	ReviewItem
	Month string // YYYY-MM in Date's own location
}

// MonthKey formats t as YYYY-MM without normalizing its location.
func MonthKey(t time.Time) string { return t.Format("2006-01") }

// PageToken is an opaque continuation handle; "" means no further pages.
type PageToken string

type Page struct {
	Items     []ReviewItem
	NextToken PageToken
}

type SortOrder string

const (
	SortNewest  SortOrder = "NEWEST"
	SortRating  SortOrder = "RATING"
	SortHelpful SortOrder = "HELPFUL"
)

func (s SortOrder) Valid() bool {
	switch s {
	case SortNewest, SortRating, SortHelpful:
		return true
	}
	return false
}

// ParseSortOrder accepts the three sort names in any case.
func ParseSortOrder(s string) (SortOrder, error) {
	so := SortOrder(strings.ToUpper(strings.TrimSpace(s)))
	if !so.Valid() {
		return "", &ValidationError{Field: "sortOrder", Reason: "must be one of NEWEST, RATING, HELPFUL"}
	}
	return so, nil
}
