package app

import "playreviews/internal/domain"

type MonthSummary struct {
	Month         string  `json:"month"`
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
	ThumbsUp      int     `json:"thumbsUp"`
}

// GroupByMonth summarizes reviews per month key, in first-seen order.
func GroupByMonth(items []domain.AggregatedReview) []MonthSummary {
	idx := make(map[string]int)
	var out []MonthSummary
	sums := make([]int, 0)
	for _, r := range items {
		i, ok := idx[r.Month]
		if !ok {
			i = len(out)
			idx[r.Month] = i
			out = append(out, MonthSummary{Month: r.Month})
			sums = append(sums, 0)
		}
		out[i].Count++
		out[i].ThumbsUp += r.ThumbsUp
		sums[i] += r.Score
	}
	for i := range out {
		out[i].AverageRating = float64(sums[i]) / float64(out[i].Count)
	}
	return out
}

// FilterMonth keeps reviews of one month; "" and "all" keep everything.
func FilterMonth(items []domain.AggregatedReview, month string) []domain.AggregatedReview {
	if month == "" || month == "all" {
		return items
	}
	out := make([]domain.AggregatedReview, 0, len(items))
	for _, r := range items {
		if r.Month == month {
			out = append(out, r)
		}
	}
	return out
}
