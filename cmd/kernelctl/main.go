// Command kernelctl drives the connectors from the command line: it chats
// with a provider through the function-calling loop, ingests files into a
// vector store and searches them.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:  "kernelctl",
		Usage: "Chat, ingest and search with the AI connectors",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"f"},
				Usage:   "Path to a yaml configuration file",
				EnvVars: []string{"KERNELCTL_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Environment file loaded before the configuration",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warning, error), overrides logger.level",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			chatCommand,
			ingestCommand,
			searchCommand,
		},
	}
}

// setup loads the environment file and the configuration and builds the
// shared app for the command.
func setup(c *cli.Context) error {
	if err := godotenv.Load(c.String("env-file")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logger.Level = lvl
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	c.App.Metadata["app"] = newApp(cfg)
	return nil
}

func teardown(c *cli.Context) error {
	a, ok := c.App.Metadata["app"].(*app)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := a.close(ctx)
	_ = a.log.Zap.Sync()
	return err
}

func appFrom(c *cli.Context) *app {
	return c.App.Metadata["app"].(*app)
}
