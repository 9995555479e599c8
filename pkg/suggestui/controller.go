// Package suggestui binds raw input events (keystrokes, focus, blur,
// arrow/enter/escape keys) to the suggestion filter, without storage or
// network chatter on every keystroke.
//
// Filter passes are scheduled through a frame scheduler: several input
// changes within one frame coalesce into a single pass, and a pending pass
// superseded by a newer keystroke is discarded, so a stale result can never
// overwrite a fresher one. Blur hides the panel only after a short grace
// delay, giving a click on a suggestion time to land before the panel goes
// away.
package suggestui

import (
	"sync"

	"github.com/lumenshop/searchkit/pkg/schedule"
	"github.com/lumenshop/searchkit/pkg/search"
	"github.com/lumenshop/searchkit/pkg/suggest"
)

// ItemKind distinguishes the rows of the suggestion panel.
type ItemKind int

const (
	// KindHistory is a ranked suggestion from the ledger.
	KindHistory ItemKind = iota
	// KindPopular is a static fallback suggestion.
	KindPopular
	// KindQuery is the literal current-input-as-search row.
	KindQuery
)

// Item is one selectable row of the suggestion panel.
type Item struct {
	Kind        ItemKind
	Query       string
	ResultCount int
}

// Source produces ranked suggestions for a partial query. suggest.Filter
// satisfies it.
type Source interface {
	Filter(query string) []suggest.Suggestion
}

// Sink receives the query chosen by selection or submission; in practice
// the session controller's search entry point.
type Sink interface {
	Submit(query string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(query string)

func (f SinkFunc) Submit(query string) { f(query) }

// Snapshot is the render-ready view of the panel.
type Snapshot struct {
	Text     string
	Visible  bool
	Items    []Item
	Selected int
}

// Controller owns the suggestion panel state for one input box.
type Controller struct {
	source  Source
	sink    Sink
	frames  schedule.Scheduler
	blur    schedule.Scheduler
	popular []string

	mu       sync.Mutex
	text     string
	inputGen uint64
	focused  bool
	visible  bool
	ranked   []suggest.Suggestion
	selected int
}

// New creates a controller. frames coalesces filter passes; blurGrace delays
// the hide on focus loss. popular is the static fallback suggestion list,
// shown after ranked history matches.
func New(source Source, sink Sink, frames, blurGrace schedule.Scheduler, popular []string) *Controller {
	return &Controller{
		source:   source,
		sink:     sink,
		frames:   frames,
		blur:     blurGrace,
		popular:  popular,
		selected: -1,
	}
}

// SetInput records a changed input text and schedules a filter pass for the
// next frame. Rapid successive calls within one frame collapse into a single
// pass for the newest text.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.text = text
	c.inputGen++
	generation := c.inputGen
	c.selected = -1
	c.mu.Unlock()

	c.frames.Schedule(func() {
		ranked := c.source.Filter(text)

		c.mu.Lock()
		defer c.mu.Unlock()
		if generation != c.inputGen {
			// A newer keystroke arrived while this pass was running.
			return
		}
		c.ranked = ranked
		c.refreshVisibilityLocked()
	})
}

// Focus marks the input focused and shows the panel when the visibility
// rule allows it. A pending blur-grace hide is cancelled.
func (c *Controller) Focus() {
	c.blur.Stop()

	c.mu.Lock()
	c.focused = true
	c.refreshVisibilityLocked()
	c.mu.Unlock()
}

// Blur schedules the panel to hide after the grace delay, so a click on a
// suggestion can still register. Focus before the delay fires cancels the
// hide.
func (c *Controller) Blur() {
	c.blur.Schedule(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.focused = false
		c.visible = false
		c.selected = -1
	})
}

// Escape hides the panel without touching focus.
func (c *Controller) Escape() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = false
	c.selected = -1
}

// MoveDown advances the selection, wrapping past the last item to the first.
func (c *Controller) MoveDown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.itemsLocked()
	if len(items) == 0 {
		return
	}
	c.selected = (c.selected + 1) % len(items)
}

// MoveUp moves the selection backwards, wrapping past the first item to the
// last. From the unselected state it lands on the last item.
func (c *Controller) MoveUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.itemsLocked()
	if len(items) == 0 {
		return
	}
	if c.selected <= 0 {
		c.selected = len(items) - 1
		return
	}
	c.selected--
}

// Enter submits the highlighted item, or the raw typed text when nothing is
// highlighted. The panel hides on submission.
func (c *Controller) Enter() {
	c.mu.Lock()
	items := c.itemsLocked()
	var query string
	if c.selected >= 0 && c.selected < len(items) {
		query = items[c.selected].Query
	} else {
		query = c.text
	}
	c.visible = false
	c.selected = -1
	c.mu.Unlock()

	if search.FoldQuery(query) == "" {
		return
	}
	c.sink.Submit(query)
}

// Choose submits the item at index directly (a suggestion click).
func (c *Controller) Choose(index int) {
	c.mu.Lock()
	items := c.itemsLocked()
	if index < 0 || index >= len(items) {
		c.mu.Unlock()
		return
	}
	query := items[index].Query
	c.visible = false
	c.selected = -1
	c.mu.Unlock()

	c.sink.Submit(query)
}

// Snapshot returns the current render state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Text:     c.text,
		Visible:  c.visible,
		Items:    c.itemsLocked(),
		Selected: c.selected,
	}
}

// itemsLocked concatenates ranked suggestions, popular fallbacks not already
// ranked, and the literal query row.
func (c *Controller) itemsLocked() []Item {
	items := make([]Item, 0, len(c.ranked)+len(c.popular)+1)
	seen := make(map[string]bool, len(c.ranked))
	for _, s := range c.ranked {
		items = append(items, Item{Kind: KindHistory, Query: s.Query, ResultCount: s.ResultCount})
		seen[s.Query] = true
	}
	for _, p := range c.popular {
		folded := search.FoldQuery(p)
		if seen[folded] {
			continue
		}
		items = append(items, Item{Kind: KindPopular, Query: p})
	}
	if search.FoldQuery(c.text) != "" {
		items = append(items, Item{Kind: KindQuery, Query: c.text})
	}
	return items
}

// refreshVisibilityLocked applies the visibility rule: shown iff focused and
// there is either something to suggest or a non-empty input.
func (c *Controller) refreshVisibilityLocked() {
	c.visible = c.focused && (len(c.ranked) > 0 || c.text != "")
	if !c.visible {
		c.selected = -1
	}
}
