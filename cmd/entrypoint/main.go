// Command entrypoint is a container ENTRYPOINT. It runs the migrate and
// collectstatic setup steps, ignoring how they end, then replaces itself
// with the command it was given:
//
//	ENTRYPOINT ["/usr/local/bin/entrypoint"]
//	CMD ["gunicorn", "app.wsgi", "--bind", "0.0.0.0:8000"]
//
// It takes no flags; every argument belongs to the delegated command.
// Configuration comes from the file named by ENTRYPOINT_CONFIG and from
// ENTRYPOINT_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/psantana5/entrypoint/internal/app"
	"github.com/psantana5/entrypoint/internal/config"
	"github.com/psantana5/entrypoint/internal/handoff"
)

func main() {
	ctx := context.Background()
	argv := os.Args[1:]

	cfg, err := app.LoadConfig(os.Getenv(config.EnvConfigPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "entrypoint: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(ctx, cfg, argv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "entrypoint: %v\n", err)
		os.Exit(1)
	}

	// Returns only if the handoff failed.
	os.Exit(handoff.ExitCode(a.Run(ctx, argv)))
}
