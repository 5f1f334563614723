// Package index holds the in-memory inverted index. A Builder accumulates
// per-page term counts during the corpus scan and produces an immutable Index
// whose posting lists are sorted once, at build time.
package index

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"slices"
	"sync"
)

// Builder accumulates page counts. AddPage and AddDocument are safe for
// concurrent use; Build must be called once, after all pages are added.
type Builder struct {
	mu        sync.Mutex
	postings  map[string][]LocationRecord
	documents map[string]int
	pages     int
	built     bool
}

func NewBuilder() *Builder {
	return &Builder{
		postings:  make(map[string][]LocationRecord),
		documents: make(map[string]int),
	}
}

// AddDocument folds every page of one document. pages[i] holds the counts of
// page i+1. A document name may only be added once.
func (b *Builder) AddDocument(name string, pages []PageCounts) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.built {
		return fmt.Errorf("adding document %q: builder already built", name)
	}
	if _, exists := b.documents[name]; exists {
		return fmt.Errorf("adding document %q: already indexed", name)
	}
	b.documents[name] = len(pages)
	for i, counts := range pages {
		b.addPageLocked(name, i+1, counts)
	}
	return nil
}

func (b *Builder) addPageLocked(name string, page int, counts PageCounts) {
	for term, count := range counts {
		if count <= 0 {
			continue
		}
		b.postings[term] = append(b.postings[term], LocationRecord{
			DocumentName:    name,
			PageNumber:      page,
			OccurrenceCount: count,
		})
	}
	b.pages++
}

// Build sorts every posting list and freezes the result. The Builder must not
// be used afterwards.
func (b *Builder) Build() *Index {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.built = true
	records := 0
	for _, list := range b.postings {
		slices.SortFunc(list, Compare)
		records += len(list)
	}
	idx := &Index{
		postings: b.postings,
		stats: Stats{
			Terms:     len(b.postings),
			Documents: len(b.documents),
			Pages:     b.pages,
			Records:   records,
		},
	}
	idx.fingerprint = idx.computeFingerprint()
	b.postings = nil
	return idx
}

// Index is an immutable term -> sorted LocationRecord mapping. It is safe for
// any number of concurrent readers.
type Index struct {
	postings    map[string][]LocationRecord
	stats       Stats
	fingerprint string
}

// Lookup returns a copy of the posting list for term, or an empty slice.
// The term is matched exactly.
func (idx *Index) Lookup(term string) []LocationRecord {
	list, ok := idx.postings[term]
	if !ok {
		return []LocationRecord{}
	}
	return slices.Clone(list)
}

// Contains reports whether term has at least one record.
func (idx *Index) Contains(term string) bool {
	_, ok := idx.postings[term]
	return ok
}

// Terms returns every indexed term in ascending order.
func (idx *Index) Terms() []string {
	terms := make([]string, 0, len(idx.postings))
	for term := range idx.postings {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	return terms
}

func (idx *Index) Stats() Stats {
	return idx.stats
}

// Fingerprint identifies the index content: two indexes with the same terms
// and posting lists share a fingerprint.
func (idx *Index) Fingerprint() string {
	return idx.fingerprint
}

func (idx *Index) computeFingerprint() string {
	h := sha256.New()
	var num [8]byte
	for _, term := range idx.Terms() {
		h.Write([]byte(term))
		h.Write([]byte{0})
		for _, rec := range idx.postings[term] {
			h.Write([]byte(rec.DocumentName))
			h.Write([]byte{0})
			binary.LittleEndian.PutUint64(num[:], uint64(rec.PageNumber))
			h.Write(num[:])
			binary.LittleEndian.PutUint64(num[:], uint64(rec.OccurrenceCount))
			h.Write(num[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
