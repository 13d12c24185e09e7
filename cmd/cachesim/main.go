// Command cachesim replays cache traces against eviction policies and
// prints miss ratios for every (policy, size) combination.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(log.NewSyncWriter(consoleOutput))
)

func main() {
	var verbose bool
	app := kingpin.New(filepath.Base(os.Args[0]), "Cache replacement policy simulator.").UsageWriter(os.Stdout)
	app.Version(version.Print("cachesim"))
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable verbose logging.").Short('v').Default("false").BoolVar(&verbose)

	runCmd := app.Command("run", "Replay a trace against policies and cache sizes.")
	runParams := addRunParams(runCmd)

	policiesCmd := app.Command("policies", "List the available policies and their parameters.")

	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	if !verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch parsedCmd {
	case runCmd.FullCommand():
		if err := run(ctx, runParams, os.Stdout); err != nil {
			os.Exit(checkError(err))
		}
	case policiesCmd.FullCommand():
		listPolicies(os.Stdout)
	default:
		level.Error(logger).Log("msg", "unknown command", "cmd", parsedCmd)
	}
}

func checkError(err error) int {
	switch err {
	case nil:
		return 0
	case context.Canceled:
		// Interrupted; partial results are not printed.
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return 1
}
