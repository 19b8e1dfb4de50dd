package app_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"playreviews/internal/app"
	"playreviews/internal/domain"
)

// perApp routes page requests to a source per app ID.
type perApp map[string]*pagedSource

func (p perApp) GetPage(ctx context.Context, appID string, sort domain.SortOrder, token domain.PageToken) (domain.Page, error) {
	return p[appID].GetPage(ctx, appID, sort, token)
}

func TestExporter_WritesOneFilePerApp(t *testing.T) {
	dir := t.TempDir()
	src := perApp{
		"com.ok":  {pages: chain(3, 2)},
		"com.bad": {pages: chain(3, 2), failAt: 1},
	}
	exp := app.NewExporter(app.NewAggregator(src, app.PartialDiscard))

	res := exp.ExportAll(context.Background(), []string{"com.ok", "com.bad"}, app.BatchOptions{
		Count: 10, Sort: domain.SortNewest, Layout: app.LayoutBasic, OutDir: dir, Workers: 2,
	})
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if res[0].AppID != "com.ok" || res[0].Err != nil || res[0].Count != 3 {
		t.Fatalf("unexpected ok result: %+v", res[0])
	}
	if res[1].AppID != "com.bad" || res[1].Err == nil {
		t.Fatalf("expected failure for com.bad: %+v", res[1])
	}

	b, err := os.ReadFile(filepath.Join(dir, "com.ok_reviews.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 4 || lines[0] != "User,Rating,Review,Month" {
		t.Fatalf("unexpected csv: %q", string(b))
	}
	if _, err := os.Stat(filepath.Join(dir, "com.bad_reviews.csv")); !os.IsNotExist(err) {
		t.Fatalf("no file expected for failed app, stat err=%v", err)
	}
}

func TestExporter_DuplicateAndCollidingApps(t *testing.T) {
	dir := t.TempDir()
	src := perApp{
		"com.a b": {pages: chain(3, 3)},
		"com.a_b": {pages: chain(1, 1)},
	}
	exp := app.NewExporter(app.NewAggregator(src, app.PartialDiscard))

	res := exp.ExportAll(context.Background(), []string{"com.a b", "com.a_b", "com.a b"}, app.BatchOptions{
		Count: 10, Sort: domain.SortNewest, Layout: app.LayoutBasic, OutDir: dir, Workers: 2,
	})
	if len(res) != 2 {
		t.Fatalf("expected duplicates dropped, got %d results", len(res))
	}
	if res[0].AppID != "com.a b" || res[0].Err != nil || res[0].Count != 3 {
		t.Fatalf("unexpected first result: %+v", res[0])
	}
	if res[1].AppID != "com.a_b" || res[1].Err == nil || res[1].File != "" {
		t.Fatalf("expected file name collision to fail: %+v", res[1])
	}
	if src["com.a_b"].Calls() != 0 {
		t.Fatalf("colliding app should not be fetched")
	}

	b, err := os.ReadFile(filepath.Join(dir, "com.a_b_reviews.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(b)), "\n"); len(lines) != 4 {
		t.Fatalf("expected the first app's 3 rows, got %q", string(b))
	}
}

func TestExporter_PartialIsReported(t *testing.T) {
	dir := t.TempDir()
	src := perApp{"com.part": {pages: chain(3, 2), failAt: 2}}
	exp := app.NewExporter(app.NewAggregator(src, app.PartialKeep))

	res := exp.ExportAll(context.Background(), []string{"com.part"}, app.BatchOptions{
		Count: 10, Sort: domain.SortNewest, Layout: app.LayoutBasic, OutDir: dir,
	})
	r := res[0]
	if !r.Partial || r.Err == nil || r.Count != 2 || r.File == "" {
		t.Fatalf("unexpected partial result: %+v", r)
	}
	if _, err := os.Stat(r.File); err != nil {
		t.Fatalf("partial file should be written: %v", err)
	}
}
