package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/librarian/internal"
	pkgconfig "github.com/starford/librarian/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	// The config file is optional: defaults plus env expansion cover
	// the common local setup.
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func action(run func(context.Context, ...internal.Option) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := run(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("LIBRARIAN_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "librarian",
		Usage: "Automated vault librarian: files approved proposals, turns captures into proposals, and keeps the vault tidy",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "One full pass: file approved proposals, ingest captures, commit",
				Action: action(internal.RunPipeline),
			},
			{
				Name:   "file",
				Usage:  "Execute approved proposals from the review queue",
				Action: action(internal.RunFiler),
			},
			{
				Name:   "maintain",
				Usage:  "Scan the vault and propose fixes for the worst offenders",
				Action: action(internal.RunMaintenance),
			},
			{
				Name:   "audit",
				Usage:  "Score the vault without proposing anything",
				Action: action(internal.RunAudit),
			},
			{
				Name:   "registry",
				Usage:  "Rebuild the code-registry note from the index",
				Action: action(internal.RunRegistry),
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, vault watcher and maintenance schedule",
				Action: action(internal.Run),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: action(internal.RunMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
