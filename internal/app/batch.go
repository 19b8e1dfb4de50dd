package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"playreviews/internal/domain"
)

type BatchOptions struct {
	Count   int
	Sort    domain.SortOrder
	Layout  CSVLayout
	OutDir  string
	Workers int
}

// BatchResult reports one app. A Partial result has its File written from
// the reviews collected before Err.
type BatchResult struct {
	AppID   string
	File    string
	Count   int
	Partial bool
	Err     error
}

// Exporter writes one CSV per app. Apps run concurrently up to Workers;
// the pages of a single app are still requested one after another.
type Exporter struct{ agg *Aggregator }

func NewExporter(agg *Aggregator) *Exporter { return &Exporter{agg: agg} }

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func csvFileName(appID string) string {
	return unsafeName.ReplaceAllString(appID, "_") + "_reviews.csv"
}

// ExportAll returns one result per distinct app, in the order given. A
// failing app does not stop the others. An app whose file name collides with
// an earlier app's fails without fetching.
func (e *Exporter) ExportAll(ctx context.Context, appIDs []string, o BatchOptions) []BatchResult {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	appIDs = dedupe(appIDs)
	results := make([]BatchResult, len(appIDs))
	owner := make(map[string]string, len(appIDs)) // file -> app
	sem := semaphore.NewWeighted(int64(o.Workers))
	var wg sync.WaitGroup

	for i, id := range appIDs {
		file := filepath.Join(o.OutDir, csvFileName(id))
		if prev, taken := owner[file]; taken {
			results[i] = BatchResult{AppID: id, Err: fmt.Errorf("output file %s already used by %s", file, prev)}
			continue
		}
		owner[file] = id

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(appIDs); j++ {
				results[j] = BatchResult{AppID: appIDs[j], Err: err}
			}
			break
		}
		wg.Add(1)
		go func(i int, appID, file string) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = e.exportOne(ctx, appID, file, o)
		}(i, id, file)
	}

	wg.Wait()
	return results
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (e *Exporter) exportOne(ctx context.Context, appID, file string, o BatchOptions) BatchResult {
	res := BatchResult{AppID: appID}
	items, err := e.agg.FetchAggregated(ctx, appID, o.Count, o.Sort)
	if err != nil && len(items) == 0 {
		res.Err = err
		return res
	}
	if err != nil {
		log.Warn().Err(err).Str("app_id", appID).Int("count", len(items)).Msg("writing partial result")
		res.Partial = true
	}
	fetchErr := err

	res.File = file
	f, err := os.Create(res.File)
	if err != nil {
		res.Err = err
		return res
	}
	if err := WriteCSV(f, items, o.Layout); err != nil {
		_ = f.Close()
		res.Err = fmt.Errorf("write %s: %w", res.File, err)
		return res
	}
	if err := f.Close(); err != nil {
		res.Err = err
		return res
	}
	res.Count = len(items)
	res.Err = fetchErr
	return res
}
