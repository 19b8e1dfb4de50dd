package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"playreviews/internal/app"
	"playreviews/internal/domain"
)

func TestFetchAggregated_ExactCountInSourceOrder(t *testing.T) {
	src := &pagedSource{pages: chain(10, 3)}
	agg := app.NewAggregator(src, app.PartialDiscard)

	out, err := agg.FetchAggregated(context.Background(), "com.example", 7, domain.SortNewest)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 7 {
		t.Fatalf("expected 7 reviews, got %d", len(out))
	}
	for i, r := range out {
		if want := items(i, 1)[0].UserName; r.UserName != want {
			t.Fatalf("position %d: got %s want %s", i, r.UserName, want)
		}
	}
	if src.Calls() != 3 {
		t.Fatalf("expected 3 page requests, got %d", src.Calls())
	}
}

func TestFetchAggregated_StopsWhenSourceIsExhausted(t *testing.T) {
	src := &pagedSource{pages: chain(4, 3)}
	agg := app.NewAggregator(src, app.PartialDiscard)

	out, err := agg.FetchAggregated(context.Background(), "com.example", 1000, domain.SortRating)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected all 4 available reviews, got %d", len(out))
	}
	if src.Calls() != 2 {
		t.Fatalf("expected 2 page requests, got %d", src.Calls())
	}
}

func TestFetchAggregated_TokenChainAB(t *testing.T) {
	src := &pagedSource{pages: []domain.Page{
		{Items: items(0, 2), NextToken: "A"},
		{Items: items(2, 2), NextToken: "B"},
		{Items: items(4, 2)},
	}}
	agg := app.NewAggregator(src, app.PartialDiscard)

	out, err := agg.FetchAggregated(context.Background(), "com.example", 5, domain.SortNewest)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 5 || out[0].UserName != "u0" || out[4].UserName != "u4" {
		t.Fatalf("unexpected result: %+v", out)
	}
	if src.Calls() != 3 {
		t.Fatalf("expected exactly 3 page requests, got %d", src.Calls())
	}
	want := []domain.PageToken{"", "A", "B"}
	for i, tok := range want {
		if src.tokens[i] != tok {
			t.Fatalf("request %d used token %q, want %q", i, src.tokens[i], tok)
		}
	}
}

func TestFetchAggregated_EmptyPageWithTokenEndsWalk(t *testing.T) {
	src := &pagedSource{pages: []domain.Page{
		{Items: items(0, 2), NextToken: "A"},
		{NextToken: "B"},
		{Items: items(2, 2)},
	}}
	agg := app.NewAggregator(src, app.PartialDiscard)

	out, err := agg.FetchAggregated(context.Background(), "com.example", 10, domain.SortNewest)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 2 || src.Calls() != 2 {
		t.Fatalf("expected 2 reviews from 2 requests, got %d from %d", len(out), src.Calls())
	}
}

func TestFetchAggregated_MonthKey(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	src := &pagedSource{pages: []domain.Page{{Items: []domain.ReviewItem{
		{UserName: "a", Score: 4, Date: time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC)},
		// 2023-04-01 00:30 in Tokyo is still March in UTC
		{UserName: "b", Score: 4, Date: time.Date(2023, 4, 1, 0, 30, 0, 0, tokyo)},
		{UserName: "c", Score: 4, Date: time.Date(2024, 11, 30, 23, 0, 0, 0, time.UTC)},
	}}}}
	agg := app.NewAggregator(src, app.PartialDiscard)

	out, err := agg.FetchAggregated(context.Background(), "com.example", 3, domain.SortNewest)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	for i, want := range []string{"2023-03", "2023-04", "2024-11"} {
		if out[i].Month != want {
			t.Fatalf("review %d: month %q, want %q", i, out[i].Month, want)
		}
	}
}

func TestFetchAggregated_SecondPageFailureDiscards(t *testing.T) {
	src := &pagedSource{pages: chain(6, 2), failAt: 2}
	agg := app.NewAggregator(src, app.PartialDiscard)

	out, err := agg.FetchAggregated(context.Background(), "com.example", 6, domain.SortNewest)
	var se *domain.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected SourceError, got %v", err)
	}
	if se.Page != 1 || se.AppID != "com.example" {
		t.Fatalf("unexpected source error: %+v", se)
	}
	if out != nil {
		t.Fatalf("expected no partial result, got %d items", len(out))
	}
}

func TestFetchAggregated_SecondPageFailureKeepsPartial(t *testing.T) {
	src := &pagedSource{pages: chain(6, 2), failAt: 2}
	agg := app.NewAggregator(src, app.PartialKeep)

	out, err := agg.FetchAggregated(context.Background(), "com.example", 6, domain.SortNewest)
	var se *domain.SourceError
	if !errors.As(err, &se) {
		t.Fatalf("expected SourceError, got %v", err)
	}
	if len(out) != 2 || out[1].UserName != "u1" {
		t.Fatalf("expected first page as partial result, got %+v", out)
	}
}

func TestFetchAggregated_ValidationBeforeAnyRequest(t *testing.T) {
	cases := []struct {
		name  string
		appID string
		count int
		sort  domain.SortOrder
	}{
		{"zero count", "com.example", 0, domain.SortNewest},
		{"negative count", "com.example", -3, domain.SortNewest},
		{"bad sort", "com.example", 5, domain.SortOrder("OLDEST")},
		{"blank app", "  ", 5, domain.SortNewest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &pagedSource{pages: chain(5, 5)}
			_, err := app.NewAggregator(src, app.PartialDiscard).FetchAggregated(context.Background(), tc.appID, tc.count, tc.sort)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if src.Calls() != 0 {
				t.Fatalf("expected no page request, got %d", src.Calls())
			}
		})
	}
}

func TestFetchAggregated_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &pagedSource{pages: chain(5, 5)}

	_, err := app.NewAggregator(src, app.PartialDiscard).FetchAggregated(ctx, "com.example", 5, domain.SortNewest)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if src.Calls() != 0 {
		t.Fatalf("expected no page request, got %d", src.Calls())
	}
}

func TestParsePartialPolicy(t *testing.T) {
	if app.ParsePartialPolicy("keep") != app.PartialKeep || app.ParsePartialPolicy("TRUE") != app.PartialKeep {
		t.Fatalf("keep variants should parse to PartialKeep")
	}
	if app.ParsePartialPolicy("") != app.PartialDiscard || app.ParsePartialPolicy("discard") != app.PartialDiscard {
		t.Fatalf("default should be PartialDiscard")
	}
}
