package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/pagesearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/lineproto"
	"github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/logger"
)

const prompt = "Enter a word to search:"

// querier is satisfied by *lineproto.Client.
type querier interface {
	Lines(ctx context.Context, word string) ([]string, error)
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	addr := flag.String("addr", "", "server address (overrides client.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitInvalidArgs)
	}
	if *addr != "" {
		cfg.Client.Addr = *addr
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := lineproto.NewClient(cfg.Client.Addr, lineproto.ClientOptions{
		Timeout:      cfg.Client.QueryTimeout,
		DialAttempts: cfg.Client.DialAttempts,
	})
	if err := run(ctx, os.Stdin, os.Stdout, client); err != nil {
		slog.Error("client stopped", "error", err)
		os.Exit(apperrors.ExitCode(err))
	}
}

// run prompts for words on in and prints every response line to out. It
// returns nil on end of input, quit, exit or cancellation of ctx. A failed
// query is reported and the loop continues.
func run(ctx context.Context, in io.Reader, out io.Writer, q querier) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprintln(out, prompt)
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("reading input: %w", err)
					}
				default:
				}
				return nil
			}
			line = l
		}

		switch strings.TrimSpace(line) {
		case "quit", "exit":
			return nil
		}
		word := tokenizer.Normalize(strings.TrimSuffix(line, "\r"))
		resp, err := q.Lines(ctx, word)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "query failed: %v\n", err)
			continue
		}
		for _, l := range resp {
			fmt.Fprintln(out, l)
		}
	}
}
