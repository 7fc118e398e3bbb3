package main

import (
	"fmt"
	"os"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/booktracker/pkg/config"
	"github.com/shishobooks/booktracker/pkg/database"
	"github.com/shishobooks/booktracker/pkg/seed"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	app := &cli.App{
		Name:        "seed",
		Usage:       "fill the books table with random sample data",
		Description: "Wipes the books table (unless --keep) and inserts random books in one transaction.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "count",
				Usage: "number of books to insert",
				Value: seed.DefaultCount,
			},
			&cli.BoolFlag{
				Name:  "keep",
				Usage: "keep existing books instead of wiping the table",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}

			db, err := database.New(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := log.WithContext(c.Context)
			if cfg.DatabaseDebug {
				ctx = database.WithLogging(ctx)
			}

			books, err := seed.New(db).Seed(ctx, seed.Options{
				Count: c.Int("count"),
				Keep:  c.Bool("keep"),
			})
			if err != nil {
				return err
			}

			fmt.Printf("Seeded %d books into %s\n", len(books), cfg.DatabaseFilePath)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("seed error")
	}
}
