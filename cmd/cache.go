package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// CacheCommand creates the cache command
func CacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and manage the local query cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cache statistics",
				Action: func(ctx context.Context, c *cli.Command) error {
					return cacheStats(c.String("config"))
				},
			},
			{
				Name:  "clear",
				Usage: "Drop all cached searches",
				Action: func(ctx context.Context, c *cli.Command) error {
					return cacheClear(c.String("config"))
				},
			},
		},
	}
}

func cacheStats(configPath string) error {
	app, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Printf("Warning: closing store: %v\n", err)
		}
	}()

	stats := app.cache.Stats()
	fmt.Printf("Cached searches: %d\n", stats.Entries)
	fmt.Printf("Stored bytes:    %d\n", stats.TotalBytes)
	if stats.Entries > 0 {
		fmt.Printf("Oldest entry:    %s\n", stats.Oldest.Format("2006-01-02 15:04:05"))
		fmt.Printf("Newest entry:    %s\n", stats.Newest.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func cacheClear(configPath string) error {
	app, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Printf("Warning: closing store: %v\n", err)
		}
	}()

	app.cache.Clear()
	fmt.Println("Query cache cleared")
	return nil
}
