package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/booktracker/pkg/client"
	"github.com/shishobooks/booktracker/pkg/prefs"
	"github.com/shishobooks/booktracker/pkg/tracker"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "tracker",
		Usage: "keep track of the books you're reading",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "base URL of the books API",
				EnvVars: []string{"BOOKTRACKER_API_URL"},
			},
			&cli.StringFlag{
				Name:  "prefs",
				Usage: "preferences file",
				Value: prefs.DefaultPath(),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "show the timeline",
				Action: func(c *cli.Context) error {
					tr, err := newTracker(c)
					if err != nil {
						return err
					}
					if _, err := tr.Refresh(c.Context); err != nil {
						return cli.Exit("", 1)
					}
					fmt.Print(tracker.Render(tr.Timeline(time.Now())))
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "add a book",
				ArgsUsage: "<title> <author>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: tracker add <title> <author>", 2)
					}
					tr, err := newTracker(c)
					if err != nil {
						return err
					}
					book, err := tr.Create(c.Context, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return cli.Exit("", 1)
					}
					fmt.Printf("#%d %s\n", book.ID, book.Title)
					return nil
				},
			},
			{
				Name:      "edit",
				Usage:     "change the title and author of a book",
				ArgsUsage: "<id> <title> <author>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 3 {
						return cli.Exit("usage: tracker edit <id> <title> <author>", 2)
					}
					id, err := parseID(c.Args().Get(0))
					if err != nil {
						return err
					}
					tr, err := newTracker(c)
					if err != nil {
						return err
					}
					if _, err := tr.Edit(c.Context, id, c.Args().Get(1), c.Args().Get(2)); err != nil {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
			toggleCommand("read", "mark a book as read", true),
			toggleCommand("unread", "mark a book as unread", false),
			{
				Name:      "delete",
				Usage:     "delete a book",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					id, err := parseID(c.Args().First())
					if err != nil {
						return err
					}
					tr, err := newTracker(c)
					if err != nil {
						return err
					}
					if err := tr.Delete(c.Context, id); err != nil {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
			{
				Name:      "use",
				Usage:     "save the API base URL to the preferences file",
				ArgsUsage: "<url>",
				Action: func(c *cli.Context) error {
					baseURL, err := useBaseURL(c.String("prefs"), c.Args().First(), os.Stderr)
					if err != nil {
						return cli.Exit(err.Error(), 2)
					}
					fmt.Printf("Using %s\n", baseURL)
					return nil
				},
			},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// useBaseURL stores the normalized form of rawURL in the preferences file at
// path. An unreadable file is replaced, with a warning written to warn.
func useBaseURL(path, rawURL string, warn io.Writer) (string, error) {
	cl, err := client.New(rawURL)
	if err != nil {
		return "", err
	}

	p, err := prefs.Load(path)
	if err != nil {
		fmt.Fprintf(warn, "replacing unreadable preferences: %v\n", err)
	}
	p.APIBaseURL = cl.BaseURL()
	if err := prefs.Save(path, p); err != nil {
		return "", err
	}
	return p.APIBaseURL, nil
}

func toggleCommand(name, usage string, read bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := parseID(c.Args().First())
			if err != nil {
				return err
			}
			tr, err := newTracker(c)
			if err != nil {
				return err
			}
			if err := tr.ToggleRead(c.Context, id, read); err != nil {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// newTracker builds a tracker from --api, falling back to the preferences
// file, and loads the current list so optimistic updates have a base.
func newTracker(c *cli.Context) (*tracker.Tracker, error) {
	baseURL := c.String("api")
	if baseURL == "" {
		p, err := prefs.Load(c.String("prefs"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "ignoring preferences: %v\n", err)
		}
		baseURL = p.APIBaseURL
	}

	cl, err := client.New(baseURL)
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}

	tr := tracker.New(cl, &tracker.ConsoleNotifier{W: os.Stderr})
	if c.Command.Name != "list" {
		if _, err := tr.Refresh(c.Context); err != nil {
			return nil, cli.Exit("", 1)
		}
	}
	return tr, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, cli.Exit(errors.Errorf("invalid book id %q", s).Error(), 2)
	}
	return id, nil
}

