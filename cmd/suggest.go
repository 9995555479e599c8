package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

// SuggestCommand creates the suggest command
func SuggestCommand() *cli.Command {
	return &cli.Command{
		Name:      "suggest",
		Usage:     "Show search suggestions from past queries",
		ArgsUsage: "[partial query]",
		Commands: []*cli.Command{
			{
				Name:  "clear",
				Usage: "Forget all remembered queries",
				Action: func(ctx context.Context, c *cli.Command) error {
					return clearSuggestions(c.String("config"))
				},
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return listSuggestions(c.String("config"), strings.Join(c.Args().Slice(), " "))
		},
	}
}

func listSuggestions(configPath, partial string) error {
	app, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Printf("Warning: closing store: %v\n", err)
		}
	}()

	suggestions := app.filter.Filter(partial)
	if len(suggestions) == 0 {
		if partial == "" {
			fmt.Println("No search history yet")
		} else {
			fmt.Printf("No suggestions for %q\n", partial)
		}
		return nil
	}

	for i, s := range suggestions {
		fmt.Printf("%d. %s (%d results, %s)\n",
			i+1, s.Query, s.ResultCount, s.Timestamp.Format("2006-01-02 15:04"))
	}
	return nil
}

func clearSuggestions(configPath string) error {
	app, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Printf("Warning: closing store: %v\n", err)
		}
	}()

	app.ledger.Clear()
	fmt.Println("Search history cleared")
	return nil
}
