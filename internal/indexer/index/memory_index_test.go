package index

import (
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SingleDocument(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddDocument("a.pdf", []PageCounts{{"cat": 2, "dog": 1}}))
	idx := b.Build()

	assert.Equal(t, []LocationRecord{{"a.pdf", 1, 2}}, idx.Lookup("cat"))
	assert.Equal(t, []LocationRecord{{"a.pdf", 1, 1}}, idx.Lookup("dog"))
	assert.Equal(t, Stats{Terms: 2, Documents: 1, Pages: 1, Records: 2}, idx.Stats())
}

func TestBuilder_SortsByCountThenNameThenPage(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddDocument("b.pdf", []PageCounts{{"fox": 3}, {"fox": 5}}))
	require.NoError(t, b.AddDocument("a.pdf", []PageCounts{{"fox": 3}, {}, {"fox": 3}}))
	idx := b.Build()

	assert.Equal(t, []LocationRecord{
		{"b.pdf", 2, 5},
		{"a.pdf", 1, 3},
		{"a.pdf", 3, 3},
		{"b.pdf", 1, 3},
	}, idx.Lookup("fox"))
}

func TestBuilder_OrderIndependentOfInsertion(t *testing.T) {
	docs := map[string][]PageCounts{
		"x.pdf": {{"w": 1}, {"w": 2}},
		"y.pdf": {{"w": 2}},
		"z.pdf": {{"w": 1}},
	}
	orders := [][]string{
		{"x.pdf", "y.pdf", "z.pdf"},
		{"z.pdf", "y.pdf", "x.pdf"},
		{"y.pdf", "x.pdf", "z.pdf"},
	}
	var first []LocationRecord
	for _, order := range orders {
		b := NewBuilder()
		for _, name := range order {
			require.NoError(t, b.AddDocument(name, docs[name]))
		}
		got := b.Build().Lookup("w")
		if first == nil {
			first = got
			continue
		}
		assert.Equal(t, first, got)
	}
}

func TestBuilder_RejectsDuplicateDocument(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddDocument("a.pdf", []PageCounts{{"cat": 1}}))
	assert.Error(t, b.AddDocument("a.pdf", []PageCounts{{"cat": 1}}))
}

func TestBuilder_RejectsAddAfterBuild(t *testing.T) {
	b := NewBuilder()
	b.Build()
	assert.Error(t, b.AddDocument("late.pdf", nil))
}

func TestBuilder_IgnoresNonPositiveCounts(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddDocument("a.pdf", []PageCounts{{"ghost": 0, "real": 1}}))
	idx := b.Build()
	assert.False(t, idx.Contains("ghost"))
	assert.True(t, idx.Contains("real"))
}

func TestBuilder_ConcurrentAdds(t *testing.T) {
	b := NewBuilder()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("doc-%02d.pdf", n)
			assert.NoError(t, b.AddDocument(name, []PageCounts{{"shared": n + 1}}))
		}(i)
	}
	wg.Wait()
	idx := b.Build()

	list := idx.Lookup("shared")
	require.Len(t, list, 32)
	assert.True(t, slices.IsSortedFunc(list, Compare))
	assert.Equal(t, 32, list[0].OccurrenceCount)
}

func TestIndex_LookupMissAndExactness(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddDocument("a.pdf", []PageCounts{{"cat": 1}}))
	idx := b.Build()

	miss := idx.Lookup("dog")
	assert.NotNil(t, miss)
	assert.Empty(t, miss)
	assert.Empty(t, idx.Lookup("Cat"))
	assert.Empty(t, idx.Lookup("ca"))
}

func TestIndex_LookupReturnsCopy(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddDocument("a.pdf", []PageCounts{{"cat": 4}}))
	idx := b.Build()

	got := idx.Lookup("cat")
	got[0].OccurrenceCount = 99
	assert.Equal(t, 4, idx.Lookup("cat")[0].OccurrenceCount)
}

func TestIndex_Terms(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddDocument("a.pdf", []PageCounts{{"zebra": 1, "apple": 1}, {"mango": 2}}))
	assert.Equal(t, []string{"apple", "mango", "zebra"}, b.Build().Terms())
}

func TestIndex_Fingerprint(t *testing.T) {
	build := func(count int) *Index {
		b := NewBuilder()
		require.NoError(t, b.AddDocument("a.pdf", []PageCounts{{"cat": count}}))
		return b.Build()
	}
	assert.Equal(t, build(2).Fingerprint(), build(2).Fingerprint())
	assert.NotEqual(t, build(2).Fingerprint(), build(3).Fingerprint())
	assert.Len(t, build(1).Fingerprint(), 16)
}

func TestCompare(t *testing.T) {
	a := LocationRecord{"a.pdf", 1, 2}
	assert.Negative(t, Compare(LocationRecord{"z.pdf", 9, 3}, a))
	assert.Negative(t, Compare(a, LocationRecord{"b.pdf", 1, 2}))
	assert.Negative(t, Compare(a, LocationRecord{"a.pdf", 2, 2}))
	assert.Zero(t, Compare(a, a))
}

func BenchmarkIndexLookup(b *testing.B) {
	builder := NewBuilder()
	for i := 0; i < 2000; i++ {
		_ = builder.AddDocument(fmt.Sprintf("doc-%d.pdf", i), []PageCounts{
			{"search": i%7 + 1, "engine": 1},
			{"search": 1},
		})
	}
	idx := builder.Build()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = idx.Lookup("search")
		}
	})
}
