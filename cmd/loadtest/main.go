package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/lineproto"
)

type Config struct {
	Addr        string
	Concurrency int
	Duration    time.Duration
	Words       []string
}

// Stats counts query outcomes: found (at least one record), empty and
// failed.
type Stats struct {
	total     atomic.Int64
	found     atomic.Int64
	empty     atomic.Int64
	failed    atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (s *Stats) Record(d time.Duration, records int, err error) {
	s.total.Add(1)
	switch {
	case err != nil:
		s.failed.Add(1)
		return
	case records == 0:
		s.empty.Add(1)
	default:
		s.found.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.mu.Unlock()
}

func main() {
	addr := flag.String("addr", "localhost:8989", "query server address")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	words := flag.String("words", "the,and,index,search,page,document,zyzzyva", "comma-separated query words")
	flag.Parse()

	cfg := Config{
		Addr:        *addr,
		Concurrency: *concurrency,
		Duration:    *duration,
		Words:       strings.Split(*words, ","),
	}

	fmt.Println("=== pagesearch load test ===")
	fmt.Printf("Target:      %s\n", cfg.Addr)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Words:       %d unique\n", len(cfg.Words))
	fmt.Println()

	client := lineproto.NewClient(cfg.Addr, lineproto.ClientOptions{Timeout: 10 * time.Second})
	stats := drive(context.Background(), cfg, clientLookup(client))
	if ok := printReport(os.Stdout, stats, cfg.Duration); !ok {
		os.Exit(1)
	}
}

type lookupFunc func(ctx context.Context, word string) (int, error)

func clientLookup(c *lineproto.Client) lookupFunc {
	return func(ctx context.Context, word string) (int, error) {
		records, err := lineproto.Lookup[index.LocationRecord](ctx, c, word)
		return len(records), err
	}
}

// drive runs Concurrency workers cycling through Words until Duration
// elapses.
func drive(ctx context.Context, cfg Config, lookup lookupFunc) *Stats {
	stats := &Stats{}
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				word := cfg.Words[next%len(cfg.Words)]
				next++
				start := time.Now()
				n, err := lookup(ctx, word)
				if ctx.Err() != nil {
					return
				}
				stats.Record(time.Since(start), n, err)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

// printReport writes the summary and reports whether any query completed.
func printReport(w io.Writer, stats *Stats, duration time.Duration) bool {
	total := stats.total.Load()
	failed := stats.failed.Load()

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total queries:  %d\n", total)
	fmt.Fprintf(w, "With records:   %d\n", stats.found.Load())
	fmt.Fprintf(w, "Empty:          %d\n", stats.empty.Load())
	fmt.Fprintf(w, "Failed:         %d\n", failed)
	if total > 0 {
		fmt.Fprintf(w, "Failure rate:   %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Fprintf(w, "Queries/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.mu.Lock()
	latencies := slices.Clone(stats.latencies)
	stats.mu.Unlock()
	if len(latencies) > 0 {
		slices.Sort(latencies)
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", avg)
		fmt.Fprintf(w, "P50:    %s\n", percentile(latencies, 50))
		fmt.Fprintf(w, "P95:    %s\n", percentile(latencies, 95))
		fmt.Fprintf(w, "P99:    %s\n", percentile(latencies, 99))
		fmt.Fprintf(w, "Max:    %s\n", latencies[len(latencies)-1])
	}

	if total == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WARNING: no queries completed. Is searchd running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
