package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/glanxiv/internal"
	pkgconfig "github.com/starford/glanxiv/pkg/config"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// action adapts an internal entry point to a cli action.
func action(entry func(context.Context, ...internal.Option) error, name string) func(context.Context, *cli.Command) error {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := entry(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("%s error: %w", name, err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "glanxiv",
		Usage:  "Search and filter a scraped arXiv paper corpus over HTTP and MCP",
		Action: action(internal.Run, "app run"),
		Flags:  []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the query tools over MCP stdio",
				Flags:  []cli.Flag{configFlag()},
				Action: action(internal.RunMCP, "mcp"),
			},
			{
				Name:   "import",
				Usage:  "Sync snapshot partitions into the SQLite database and exit",
				Flags:  []cli.Flag{configFlag()},
				Action: action(internal.Import, "import"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
