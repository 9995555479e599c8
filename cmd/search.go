package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/lumenshop/searchkit/pkg/search"
	"github.com/lumenshop/searchkit/pkg/session"
)

// Define styles using lipgloss
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	productStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	priceStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32")).
			Margin(1, 0, 1, 0)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search products",
		ArgsUsage: "[query...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "page",
				Usage: "Page to fetch",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "retailer",
				Usage: "Restrict results to one retailer",
			},
			&cli.StringFlag{
				Name:  "min-price",
				Usage: "Minimum price filter",
			},
			&cli.StringFlag{
				Name:  "max-price",
				Usage: "Maximum price filter",
			},
			&cli.IntFlag{
				Name:  "load-more",
				Usage: "Fetch this many additional pages after the first",
			},
			&cli.StringFlag{
				Name:  "from-url",
				Usage: "Take search parameters from a URL query string instead of flags",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			params, err := paramsFromCommand(c)
			if err != nil {
				return err
			}
			return runSearch(ctx, c.String("config"), params, c.Int("load-more"))
		},
	}
}

// paramsFromCommand assembles search parameters from either --from-url or
// the individual flags.
func paramsFromCommand(c *cli.Command) (search.SearchParams, error) {
	if raw := c.String("from-url"); raw != "" {
		raw = strings.TrimPrefix(raw, "?")
		if idx := strings.IndexByte(raw, '?'); idx >= 0 {
			raw = raw[idx+1:]
		}
		values, err := url.ParseQuery(raw)
		if err != nil {
			return search.SearchParams{}, fmt.Errorf("parsing --from-url: %w", err)
		}
		return search.ParseParams(values), nil
	}

	values := url.Values{}
	values.Set("q", strings.Join(c.Args().Slice(), " "))
	values.Set("page", fmt.Sprintf("%d", c.Int("page")))
	if r := c.String("retailer"); r != "" {
		values.Set("retailer", r)
	}
	if v := c.String("min-price"); v != "" {
		values.Set("min_price", v)
	}
	if v := c.String("max-price"); v != "" {
		values.Set("max_price", v)
	}
	return search.ParseParams(values), nil
}

func runSearch(ctx context.Context, configPath string, params search.SearchParams, extraPages int) error {
	if search.FoldQuery(params.Query) == "" {
		return fmt.Errorf("empty query")
	}

	app, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Printf("Warning: closing store: %v\n", err)
		}
	}()

	if err := app.controller.Search(ctx, params); err != nil {
		return fmt.Errorf("searching %q: %w", params.Query, err)
	}

	for i := 0; i < extraPages; i++ {
		if !app.controller.Snapshot().HasMore {
			break
		}
		if err := app.controller.LoadMore(ctx); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("load more failed: %v", err)))
			break
		}
	}

	renderState(params, app.controller.Snapshot())
	return nil
}

func renderState(params search.SearchParams, state session.State) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("🛍  %s", params.Query)))

	if state.Err != nil {
		fmt.Println(errorStyle.Render(fmt.Sprintf("search failed: %v", state.Err)))
		return
	}
	if len(state.Products) == 0 {
		fmt.Println(noDataStyle.Render("No products found"))
		return
	}

	for _, p := range state.Products {
		var b strings.Builder
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(p.Title))
		b.WriteString("\n")
		price := fmt.Sprintf("%.2f", p.Price)
		if p.Currency != "" {
			price += " " + p.Currency
		}
		b.WriteString(priceStyle.Render(price))
		if p.Retailer != "" {
			b.WriteString(metaStyle.Render("  " + p.Retailer))
		}
		if p.URL != "" {
			b.WriteString("\n")
			b.WriteString(metaStyle.Render(p.URL))
		}
		fmt.Println(productStyle.Render(b.String()))
	}

	summary := fmt.Sprintf("%d of %d results (page %d/%d)",
		len(state.Products), state.TotalResults, state.CurrentPage, state.TotalPages)
	if state.HasMore {
		summary += " · more available"
	}
	fmt.Println(summaryStyle.Render(summary))
}
