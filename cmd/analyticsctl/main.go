// Command analyticsctl is the operator CLI for the analytics dashboard.
//
//	analyticsctl top [--json] [--ephemeral]   compute or load the ranking and print it
//	analyticsctl clear-cache                  forget the stored ranking and token
//	analyticsctl token [--show]               describe the stored bearer token
//
// It reads the same environment (and .env) as the server and opens the same
// store, so `clear-cache` here is what makes the next server start recompute.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sakif/social-analytics/internal/app"
	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/auth"
	"github.com/sakif/social-analytics/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCLI(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "analyticsctl",
		Usage:     "inspect and manage the social analytics dashboard",
		Writer:    stdout,
		ErrWriter: stderr,
		// main prints the error; urfave/cli must not exit the process itself.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			{
				Name:  "top",
				Usage: "print the top users (loads the cached ranking if one is stored)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print the snapshot as JSON"},
					&cli.BoolFlag{Name: "ephemeral", Usage: "use an in-memory store; nothing is read or written on disk"},
				},
				Action: runTop,
			},
			{
				Name:   "clear-cache",
				Usage:  "delete the stored ranking and access token",
				Action: runClearCache,
			},
			{
				Name:  "token",
				Usage: "describe the stored access token",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "show", Usage: "also print the raw token"},
				},
				Action: runToken,
			},
		},
	}
}

// open loads configuration and builds the application graph. Logs go to
// stderr so stdout stays clean for --json.
func open(c *cli.Context, ephemeral bool) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return app.Build(cfg, logger, app.Options{Ephemeral: ephemeral})
}

func runTop(c *cli.Context) error {
	a, err := open(c, c.Bool("ephemeral"))
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.Service.Initialize(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("initialization failed: %v", err), 1)
	}

	out := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Fprintln(out, "Top Users")
	if len(snap.Users) == 0 {
		fmt.Fprintln(out, "No data available.")
		return nil
	}
	for i, u := range snap.Users {
		fmt.Fprintf(out, "%d. %s (id %s): %d posts\n", i+1, u.Name, u.ID, u.PostCount)
	}
	fmt.Fprintf(out, "source: %s\n", snap.Source)
	return nil
}

func runClearCache(c *cli.Context) error {
	a, err := open(c, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Service.ClearCache(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "cache cleared")
	return nil
}

func runToken(c *cli.Context) error {
	a, err := open(c, false)
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := a.Service.StoredToken(c.Context)
	if errors.Is(err, apperror.ErrNotFound) {
		return cli.Exit("no access token stored", 1)
	}
	if err != nil {
		return err
	}

	out := c.App.Writer
	info := auth.Inspect(token)
	if info.Opaque {
		fmt.Fprintln(out, "format:  opaque (not a JWT)")
	} else {
		fmt.Fprintln(out, "format:  JWT (signature not verified)")
		printClaim(out, "subject", info.Subject)
		printClaim(out, "issuer", info.Issuer)
		printTime(out, "issued", info.IssuedAt)
		printTime(out, "expires", info.ExpiresAt)
		fmt.Fprintf(out, "expired: %t\n", info.Expired(time.Now()))
	}
	if c.Bool("show") {
		fmt.Fprintf(out, "token:   %s\n", token)
	}
	return nil
}

func printClaim(w io.Writer, name, value string) {
	if value == "" {
		value = "-"
	}
	fmt.Fprintf(w, "%-8s %s\n", name+":", value)
}

func printTime(w io.Writer, name string, t time.Time) {
	value := "-"
	if !t.IsZero() {
		value = t.UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(w, "%-8s %s\n", name+":", value)
}
