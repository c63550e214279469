package downloader

import (
	"fmt"
	"time"
)

// Period is a (year, month) pair identifying one monthly document.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Quarter derives the 1-indexed calendar quarter from the month.
func (p Period) Quarter() int {
	return (p.Month-1)/3 + 1
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Validate rejects months outside 1..12 and non-positive years.
func (p Period) Validate() error {
	if p.Year <= 0 {
		return fmt.Errorf("year must be > 0, got %d", p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("month must be within 1..12, got %d", p.Month)
	}
	return nil
}

// String formats the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%d-%02d", p.Year, p.Month)
}

// Abbrev formats the period as YYYY-Mon, e.g. 2025-Jan.
func (p Period) Abbrev() string {
	return fmt.Sprintf("%d-%s", p.Year, time.Month(p.Month).String()[:3])
}
