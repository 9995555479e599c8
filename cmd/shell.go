package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/lumenshop/searchkit/pkg/config"
	"github.com/lumenshop/searchkit/pkg/log"
	"github.com/lumenshop/searchkit/pkg/schedule"
	"github.com/lumenshop/searchkit/pkg/search"
	"github.com/lumenshop/searchkit/pkg/suggestui"
)

var shellLogger = log.ForComponent("shell")

// ShellCommand creates the shell command
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Interactive search session with suggestions",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runShell(ctx, c.String("config"))
		},
	}
}

// shellSession holds the pieces of the interactive loop that config reloads
// may replace.
type shellSession struct {
	mu  sync.Mutex
	app *app
	ui  *suggestui.Controller
}

func (s *shellSession) controller() *suggestui.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui
}

// setPopular rebuilds the suggestion panel with a fresh popular list. Ledger,
// cache and session survive; only the panel is replaced.
func (s *shellSession) setPopular(ctx context.Context, popular []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.Escape()
	s.ui = newPanel(ctx, s.app, popular)
}

func newPanel(ctx context.Context, a *app, popular []string) *suggestui.Controller {
	sink := suggestui.SinkFunc(func(query string) {
		params := search.SearchParams{Query: query, Retailer: a.cfg.DefaultRetailer}
		if err := a.controller.Search(ctx, params); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("search failed: %v", err)))
			return
		}
		renderState(params, a.controller.Snapshot())
	})

	ui := suggestui.New(a.filter, sink,
		schedule.NewImmediate(),
		schedule.NewDeferred(200*time.Millisecond),
		popular)
	ui.Focus()
	return ui
}

func runShell(ctx context.Context, configPath string) error {
	app, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			fmt.Printf("Warning: closing store: %v\n", err)
		}
	}()

	session := &shellSession{app: app}
	session.ui = newPanel(ctx, app, app.cfg.PopularSuggestions)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		shellLogger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				shellLogger.Warnf("failed to close config file watcher: %v", err)
			}
		}()

		if err := watcher.Add(configPath); err != nil {
			shellLogger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			shellLogger.Infof("watching config file for changes: %s", configPath)
		}
	}

	fmt.Println("Type to search, :help for commands")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	prompt()
	for {
		var events chan fsnotify.Event
		var watchErrs chan error
		if watcher != nil {
			events = watcher.Events
			watchErrs = watcher.Errors
		}

		select {
		case <-sigCh:
			fmt.Println("\nBye")
			return nil

		case event, ok := <-events:
			if !ok {
				continue
			}
			// Editors often replace files atomically, so rename and
			// remove count as changes too.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				reloadShellConfig(ctx, configPath, session, watcher, event)
			}

		case err, ok := <-watchErrs:
			if !ok {
				continue
			}
			shellLogger.Warnf("config watcher error: %v", err)

		case line, ok := <-lines:
			if !ok {
				fmt.Println("Bye")
				return nil
			}
			if quit := handleLine(session, line); quit {
				fmt.Println("Bye")
				return nil
			}
			prompt()
		}
	}
}

func prompt() {
	fmt.Print("search> ")
}

// handleLine dispatches one line of input. Returns true when the session
// should end.
func handleLine(s *shellSession, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, ":") {
		return handleCommand(s, line)
	}

	ui := s.controller()
	ui.SetInput(line)
	showSuggestions(ui)
	ui.Enter()
	return false
}

func handleCommand(s *shellSession, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":q", ":quit", ":exit":
		return true

	case ":help":
		fmt.Println("  <text>      search for products")
		fmt.Println("  :s <text>   show suggestions without searching")
		fmt.Println("  :more       load the next page of the last search")
		fmt.Println("  :clear      clear the current results")
		fmt.Println("  :history    show remembered queries")
		fmt.Println("  :quit       leave the shell")

	case ":s":
		partial := strings.Join(fields[1:], " ")
		ui := s.controller()
		ui.SetInput(partial)
		showSuggestions(ui)

	case ":more":
		if err := s.app.controller.LoadMore(context.Background()); err != nil {
			fmt.Println(errorStyle.Render(fmt.Sprintf("load more failed: %v", err)))
			break
		}
		state := s.app.controller.Snapshot()
		if state.LastParams == nil {
			fmt.Println("Nothing to load, search first")
			break
		}
		renderState(*state.LastParams, state)

	case ":clear":
		s.app.controller.ClearResults()
		fmt.Println("Results cleared")

	case ":history":
		for i, entry := range s.app.ledger.List() {
			fmt.Printf("%d. %s (%d results)\n", i+1, entry.Query, entry.ResultCount)
		}

	default:
		fmt.Printf("Unknown command %s, try :help\n", fields[0])
	}
	return false
}

func showSuggestions(ui *suggestui.Controller) {
	snap := ui.Snapshot()
	if !snap.Visible || len(snap.Items) == 0 {
		return
	}
	for _, item := range snap.Items {
		switch item.Kind {
		case suggestui.KindHistory:
			fmt.Printf("  ↺ %s (%d results)\n", item.Query, item.ResultCount)
		case suggestui.KindPopular:
			fmt.Printf("  ★ %s\n", item.Query)
		case suggestui.KindQuery:
			fmt.Printf("  ⏎ %s\n", item.Query)
		}
	}
}

func reloadShellConfig(ctx context.Context, configPath string, s *shellSession, watcher *fsnotify.Watcher, event fsnotify.Event) {
	// Re-add after atomic replaces, the watch follows the old inode.
	if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
		if err := watcher.Add(configPath); err != nil {
			shellLogger.Warnf("re-watching config file: %v", err)
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		shellLogger.Warnf("reloading config: %v", err)
		return
	}

	s.mu.Lock()
	s.app.cfg = cfg
	s.mu.Unlock()
	s.setPopular(ctx, cfg.PopularSuggestions)
	shellLogger.Infof("configuration reloaded")
}
