// internal/adapters/gplay/client.go
package gplay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

const (
	DefaultBaseURL  = "https://play.google.com"
	DefaultPageSize = 150

	rpcID = "UsvDTd"
)

type Options struct {
	BaseURL  string
	Lang     string
	Country  string
	PageSize int
	// Location is the calendar review dates are expressed in.
	Location *time.Location
	Timeout  time.Duration
}

// Client requests single review pages from Google Play's batchexecute RPC.
// It does not retry; failures are returned to the caller as-is.
type Client struct {
	base     string
	hc       *http.Client
	lang     string
	country  string
	pageSize int
	loc      *time.Location
}

func New(o Options) (*Client, error) {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(o.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Lang == "" {
		o.Lang = "en"
	}
	if o.Country == "" {
		o.Country = "us"
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	return &Client{
		base:     strings.TrimRight(o.BaseURL, "/"),
		hc:       &http.Client{Timeout: o.Timeout},
		lang:     o.Lang,
		country:  o.Country,
		pageSize: o.PageSize,
		loc:      o.Location,
	}, nil
}

func sortCode(s domain.SortOrder) (int, error) {
	switch s {
	case domain.SortHelpful:
		return 1, nil
	case domain.SortNewest:
		return 2, nil
	case domain.SortRating:
		return 3, nil
	}
	return 0, &domain.ValidationError{Field: "sortOrder", Reason: fmt.Sprintf("unsupported %q", s)}
}

// GetPage fetches one page. An absent NextToken means the app has no more
// reviews for this sort order.
func (c *Client) GetPage(ctx context.Context, appID string, sort domain.SortOrder, token domain.PageToken) (domain.Page, error) {
	code, err := sortCode(sort)
	if err != nil {
		return domain.Page{}, err
	}
	body, err := requestBody(appID, code, c.pageSize, token)
	if err != nil {
		return domain.Page{}, err
	}

	q := url.Values{}
	q.Set("rpcids", rpcID)
	q.Set("hl", c.lang)
	q.Set("gl", c.country)
	q.Set("soc-app", "121")
	q.Set("soc-platform", "1")
	q.Set("soc-device", "1")
	u := c.base + "/_/PlayStoreUi/data/batchexecute?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(body))
	if err != nil {
		return domain.Page{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
	req.Header.Set("User-Agent", "playreviews/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("gplay", "reviews", 0, time.Since(start))
		if ctx.Err() != nil {
			return domain.Page{}, ctx.Err()
		}
		return domain.Page{}, err
	}
	defer resp.Body.Close()
	observability.ObserveExternal("gplay", "reviews", resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusOK:
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if err != nil {
			return domain.Page{}, err
		}
		return decodePage(raw, c.loc)

	case http.StatusNotFound:
		return domain.Page{}, fmt.Errorf("app %q: %w", appID, domain.ErrNotFound)

	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.Page{}, fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrForbidden)

	default:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.Page{}, fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

// requestBody builds the form-encoded f.req envelope. The RPC arguments are
// themselves a JSON document embedded as a string.
func requestBody(appID string, sort, num int, token domain.PageToken) (string, error) {
	appJSON, err := json.Marshal(appID)
	if err != nil {
		return "", err
	}
	tok := "null"
	if token != "" {
		b, err := json.Marshal(string(token))
		if err != nil {
			return "", err
		}
		tok = string(b)
	}
	args := fmt.Sprintf(`[null,null,[2,%d,[%d,null,%s],null,[]],[%s,7]]`, sort, num, tok, appJSON)

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode([][][]any{{{rpcID, args, nil, "generic"}}}); err != nil {
		return "", err
	}
	return url.Values{"f.req": {strings.TrimSpace(buf.String())}}.Encode(), nil
}
