package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"playreviews/internal/domain"
)

type CSVLayout string

const (
	LayoutBasic    CSVLayout = "basic"    // User,Rating,Review,Month
	LayoutDetailed CSVLayout = "detailed" // the month-wise table columns
)

func ParseCSVLayout(s string) (CSVLayout, error) {
	switch l := CSVLayout(strings.ToLower(strings.TrimSpace(s))); l {
	case "":
		return LayoutBasic, nil
	case LayoutBasic, LayoutDetailed:
		return l, nil
	}
	return "", &domain.ValidationError{Field: "layout", Reason: "must be basic or detailed"}
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// FlattenText turns every line break in s into a single space.
func FlattenText(s string) string { return newlines.Replace(s) }

// WriteCSV renders items with a header row. Quotes inside a field are
// doubled; line breaks in review text become spaces.
func WriteCSV(w io.Writer, items []domain.AggregatedReview, layout CSVLayout) error {
	cw := csv.NewWriter(w)
	var header []string
	var row func(r domain.AggregatedReview) []string
	switch layout {
	case LayoutBasic, "":
		header = []string{"User", "Rating", "Review", "Month"}
		row = func(r domain.AggregatedReview) []string {
			return []string{r.UserName, strconv.Itoa(r.Score), FlattenText(r.Text), r.Month}
		}
	case LayoutDetailed:
		header = []string{"Month", "User", "Rating", "Date", "ThumbsUp", "Review"}
		row = func(r domain.AggregatedReview) []string {
			return []string{
				r.Month, r.UserName, strconv.Itoa(r.Score),
				r.Date.Format("2006-01-02"), strconv.Itoa(r.ThumbsUp),
				FlattenText(r.Text),
			}
		}
	default:
		return fmt.Errorf("unknown csv layout %q", layout)
	}

	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range items {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
