package index

import (
	"cmp"
	"strings"
)

// LocationRecord is one page's contribution to a term's entry: the term occurs
// OccurrenceCount times on page PageNumber of DocumentName.
type LocationRecord struct {
	DocumentName    string `json:"document_name"`
	PageNumber      int    `json:"page_number"`
	OccurrenceCount int    `json:"occurrence_count"`
}

// Compare orders records by OccurrenceCount descending, then DocumentName and
// PageNumber ascending.
func Compare(a, b LocationRecord) int {
	if c := cmp.Compare(b.OccurrenceCount, a.OccurrenceCount); c != 0 {
		return c
	}
	if c := strings.Compare(a.DocumentName, b.DocumentName); c != 0 {
		return c
	}
	return cmp.Compare(a.PageNumber, b.PageNumber)
}

// PageCounts maps each term on a single page to its number of occurrences.
type PageCounts map[string]int

// Stats summarises a built index.
type Stats struct {
	Terms     int `json:"terms"`
	Documents int `json:"documents"`
	Pages     int `json:"pages"`
	Records   int `json:"records"`
}
