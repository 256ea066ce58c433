// Command forecast looks up cities against the forecast service's GET /weather endpoint and
// prints current conditions plus the next three days.
//
//	forecast [-api URL] [-unit C|F] [-timeout 10s] [city ...]
//
// With no city arguments it reads one query per line from stdin. A line "unit F" (or C)
// switches the display unit and redraws the last result; "quit" exits.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-service/internal/backend"
	"github.com/kjstillabower/weather-forecast-service/internal/forecast"
	"github.com/kjstillabower/weather-forecast-service/internal/search"
)

const defaultAPIURL = "http://localhost:8080"

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run returns the process exit code: 0 when every lookup succeeded, 1 when any failed,
// 2 for usage errors.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", envOr("FORECAST_API_URL", defaultAPIURL), "forecast service base URL")
	unitFlag := fs.String("unit", "C", "temperature unit: C or F")
	timeout := fs.Duration("timeout", 10*time.Second, "per-lookup timeout")
	debug := fs.Bool("debug", false, "log session events to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	unit, err := forecast.ParseUnit(*unitFlag)
	if err != nil {
		fmt.Fprintf(stderr, "forecast: %v\n", err)
		return 2
	}

	api, err := backend.NewClient(*apiURL, *timeout)
	if err != nil {
		fmt.Fprintf(stderr, "forecast: %v\n", err)
		return 2
	}

	logger := zap.NewNop()
	if *debug {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	defer func() { _ = logger.Sync() }()

	session := search.NewSession(api, logger)
	session.SetUnit(unit)

	c := &cli{session: session, out: stdout, now: time.Now}
	if fs.NArg() > 0 {
		for _, city := range fs.Args() {
			c.lookup(ctx, city)
		}
		return c.exitCode()
	}
	if err := c.interactive(ctx, stdin); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "forecast: %v\n", err)
		return 1
	}
	return c.exitCode()
}

type cli struct {
	session *search.Session
	out     io.Writer
	now     func() time.Time
	failed  bool
}

func (c *cli) lookup(ctx context.Context, city string) {
	st := c.session.Search(ctx, city)
	if st.Phase == search.Error {
		c.failed = true
	}
	render(c.out, st, c.now())
}

func (c *cli) interactive(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit"):
			return nil
		case len(fields) == 2 && strings.EqualFold(fields[0], "unit"):
			unit, err := forecast.ParseUnit(fields[1])
			if err != nil {
				fmt.Fprintln(c.out, err)
				continue
			}
			st := c.session.SetUnit(unit)
			if st.Phase == search.Success {
				render(c.out, st, c.now())
			}
		default:
			c.lookup(ctx, line)
		}
	}
	return scanner.Err()
}

func (c *cli) exitCode() int {
	if c.failed {
		return 1
	}
	return 0
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
