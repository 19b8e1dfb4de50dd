package gplay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"playreviews/internal/domain"
)

var errMalformed = errors.New("gplay: malformed response")

// node is one element of the positional arrays Google Play answers with.
type node = json.RawMessage

// at walks nested arrays by index. Missing elements and JSON nulls yield nil.
func at(n node, path ...int) node {
	cur := n
	for _, i := range path {
		if isNull(cur) {
			return nil
		}
		var arr []node
		if err := json.Unmarshal(cur, &arr); err != nil || i < 0 || i >= len(arr) {
			return nil
		}
		cur = arr[i]
	}
	if isNull(cur) {
		return nil
	}
	return cur
}

func isNull(n node) bool {
	t := bytes.TrimSpace(n)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// wire is the typed form of one review entry, validated before it reaches
// the domain.
type wire struct {
	ID        string
	UserName  string
	Score     int
	Text      string
	Seconds   int64
	Nanos     int64
	ThumbsUp  int
	Version   string
	ReplyText string
	ReplySecs int64
}

func optional(n node, dst any) error {
	if n == nil {
		return nil
	}
	return json.Unmarshal(n, dst)
}

func decodeReview(n node) (wire, error) {
	var w wire
	if err := optional(at(n, 0), &w.ID); err != nil {
		return w, fmt.Errorf("id: %w", err)
	}
	if err := optional(at(n, 1, 0), &w.UserName); err != nil {
		return w, fmt.Errorf("userName: %w", err)
	}
	score := at(n, 2)
	if score == nil {
		return w, fmt.Errorf("review %q: missing score", w.ID)
	}
	if err := json.Unmarshal(score, &w.Score); err != nil {
		return w, fmt.Errorf("score: %w", err)
	}
	if w.Score < 1 || w.Score > 5 {
		return w, fmt.Errorf("review %q: score %d out of range", w.ID, w.Score)
	}
	if err := optional(at(n, 4), &w.Text); err != nil {
		return w, fmt.Errorf("text: %w", err)
	}
	secs := at(n, 5, 0)
	if secs == nil {
		return w, fmt.Errorf("review %q: missing date", w.ID)
	}
	if err := json.Unmarshal(secs, &w.Seconds); err != nil {
		return w, fmt.Errorf("date: %w", err)
	}
	if err := optional(at(n, 5, 1), &w.Nanos); err != nil {
		return w, fmt.Errorf("date nanos: %w", err)
	}
	if err := optional(at(n, 6), &w.ThumbsUp); err != nil {
		return w, fmt.Errorf("thumbsUp: %w", err)
	}
	if w.ThumbsUp < 0 {
		w.ThumbsUp = 0
	}
	if err := optional(at(n, 10), &w.Version); err != nil {
		return w, fmt.Errorf("version: %w", err)
	}
	if err := optional(at(n, 7, 1), &w.ReplyText); err != nil {
		return w, fmt.Errorf("replyText: %w", err)
	}
	if err := optional(at(n, 7, 2, 0), &w.ReplySecs); err != nil {
		return w, fmt.Errorf("replyDate: %w", err)
	}
	return w, nil
}

func (w wire) item(loc *time.Location) domain.ReviewItem {
	it := domain.ReviewItem{
		ID:        w.ID,
		UserName:  w.UserName,
		Score:     w.Score,
		Text:      w.Text,
		Date:      time.Unix(w.Seconds, w.Nanos).In(loc),
		ThumbsUp:  w.ThumbsUp,
		Version:   w.Version,
		ReplyText: w.ReplyText,
	}
	if w.ReplySecs > 0 {
		rd := time.Unix(w.ReplySecs, 0).In(loc)
		it.ReplyDate = &rd
	}
	return it
}

// decodePage parses a batchexecute response: an anti-XSSI prefix line, then
// an envelope whose [0][2] element is the RPC payload encoded as a string.
func decodePage(raw []byte, loc *time.Location) (domain.Page, error) {
	body := bytes.TrimSpace(raw)
	if bytes.HasPrefix(body, []byte(")]}'")) {
		body = bytes.TrimSpace(body[len(")]}'"):])
	}
	if !json.Valid(body) {
		return domain.Page{}, fmt.Errorf("%w: envelope is not JSON", errMalformed)
	}

	inner := at(body, 0, 2)
	if inner == nil {
		// the RPC answers null once an app has nothing (more) to return
		return domain.Page{}, nil
	}
	var payload string
	if err := json.Unmarshal(inner, &payload); err != nil {
		return domain.Page{}, fmt.Errorf("%w: payload: %v", errMalformed, err)
	}
	data := node(payload)
	if !json.Valid(data) {
		return domain.Page{}, fmt.Errorf("%w: payload is not JSON", errMalformed)
	}

	var entries []node
	if list := at(data, 0); list != nil {
		if err := json.Unmarshal(list, &entries); err != nil {
			return domain.Page{}, fmt.Errorf("%w: reviews: %v", errMalformed, err)
		}
	}
	page := domain.Page{Items: make([]domain.ReviewItem, 0, len(entries))}
	for _, e := range entries {
		w, err := decodeReview(e)
		if err != nil {
			return domain.Page{}, fmt.Errorf("%w: %v", errMalformed, err)
		}
		page.Items = append(page.Items, w.item(loc))
	}

	var tok string
	if err := optional(at(data, 1, 1), &tok); err != nil {
		return domain.Page{}, fmt.Errorf("%w: token: %v", errMalformed, err)
	}
	page.NextToken = domain.PageToken(tok)
	return page, nil
}
