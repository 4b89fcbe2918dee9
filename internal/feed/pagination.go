package feed

import (
	"context"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FetchResult is a page of messages plus the exhaustion flags reported by the
// backing service.
type FetchResult[T any] struct {
	Messages         []T
	NoMessagesBefore bool
	NoMessagesAfter  bool
}

// SearchResult holds matched messages and the total match count.
type SearchResult[T any] struct {
	Results    []T
	TotalCount int
}

// MessageSource is the external persistence collaborator the controller
// paginates against. Implementations decide the backing store; the controller
// only assumes anchors follow the same ordering as compare.
type MessageSource[T any] interface {
	FetchMessages(ctx context.Context, roomID string, count int, before, after *T) (FetchResult[T], error)
	SearchMessages(ctx context.Context, roomID string, criteria string) (SearchResult[T], error)
}

// ControllerConfig configures a Controller.
type ControllerConfig[T any] struct {
	Source              MessageSource[T]
	RoomID              string
	GetKey              func(T) string
	Compare             func(a, b T) int
	InitialChunkSize    int
	AdditionalChunkSize int
	MaxChunkSize        int

	// OnChange is invoked after every window mutation with the new window
	// contents and the focused item, if any. Nil is allowed.
	OnChange func(items []T, focused *T)
}

// Controller orchestrates pagination of a room's message window: edge
// fetches, focus jumps, and live arrivals. All window mutations run under a
// single mutex so pagination and live inserts never interleave mid-mutation.
type Controller[T any] struct {
	mu     sync.Mutex
	source MessageSource[T]
	roomID string

	getKey  func(T) string
	compare func(a, b T) int

	window *Window[T]
	frame  Frame

	noMessagesBefore bool
	noMessagesAfter  bool
	fetchingTop      bool
	fetchingBottom   bool

	// generation changes on every committed window mutation. Edge fetches
	// capture it before fetching and discard their page when the window
	// moved underneath them.
	generation uint64

	initialChunkSize    int
	additionalChunkSize int

	searchResults []T
	searchIndex   int
	focused       *T

	onChange func(items []T, focused *T)
}

// NewController creates a controller with an empty window. Call Load to
// populate it.
func NewController[T any](cfg ControllerConfig[T]) *Controller[T] {
	onChange := cfg.OnChange
	if onChange == nil {
		onChange = func([]T, *T) {}
	}

	return &Controller[T]{
		source:              cfg.Source,
		roomID:              cfg.RoomID,
		getKey:              cfg.GetKey,
		compare:             cfg.Compare,
		window:              NewWindow[T](cfg.MaxChunkSize),
		frame:               EmptyFrame,
		noMessagesAfter:     true,
		initialChunkSize:    cfg.InitialChunkSize,
		additionalChunkSize: cfg.AdditionalChunkSize,
		onChange:            onChange,
	}
}

// Messages returns the current window contents. Callers must not mutate the
// returned slice.
func (c *Controller[T]) Messages() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window.Items()
}

// Exhausted reports the before/after exhaustion flags.
func (c *Controller[T]) Exhausted() (noBefore, noAfter bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noMessagesBefore, c.noMessagesAfter
}

// OnFrameChange records the currently visible index range. The frame decides
// which edge a live-arrival clip preserves.
func (c *Controller[T]) OnFrameChange(frame Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = frame
}

// Load performs the initial anchorless fetch.
func (c *Controller[T]) Load(ctx context.Context) error {
	result, err := c.source.FetchMessages(ctx, c.roomID, c.initialChunkSize, nil, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.window.Set(result.Messages, KeepEnding)
	c.generation++
	c.noMessagesBefore = result.NoMessagesBefore
	c.noMessagesAfter = result.NoMessagesAfter
	c.focused = nil
	c.mu.Unlock()

	c.notify()
	return nil
}

// TopReached fetches the page before the current first item. Triggers while a
// top fetch is in flight, or once the top is exhausted, are ignored.
func (c *Controller[T]) TopReached(ctx context.Context) error {
	c.mu.Lock()
	first, ok := c.window.At(0)
	if c.noMessagesBefore || c.fetchingTop || !ok {
		c.mu.Unlock()
		return nil
	}
	c.fetchingTop = true
	gen := c.generation
	c.mu.Unlock()

	result, err := c.source.FetchMessages(ctx, c.roomID, c.additionalChunkSize, &first, nil)

	c.mu.Lock()
	c.fetchingTop = false
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if gen != c.generation {
		// The window was replaced while the fetch was in flight; the page
		// is anchored to a head that no longer exists.
		c.mu.Unlock()
		return nil
	}

	clipped := c.window.Unshift(result.Messages)
	c.generation++
	c.noMessagesBefore = result.NoMessagesBefore
	// An unshift clips the tail; content beyond it may exist again.
	c.noMessagesAfter = !clipped && c.noMessagesAfter
	c.mu.Unlock()

	c.notify()
	return nil
}

// BottomReached fetches the page after the current last item. Symmetric to
// TopReached.
func (c *Controller[T]) BottomReached(ctx context.Context) error {
	c.mu.Lock()
	last, ok := c.window.At(-1)
	if c.noMessagesAfter || c.fetchingBottom || !ok {
		c.mu.Unlock()
		return nil
	}
	c.fetchingBottom = true
	gen := c.generation
	c.mu.Unlock()

	result, err := c.source.FetchMessages(ctx, c.roomID, c.additionalChunkSize, nil, &last)

	c.mu.Lock()
	c.fetchingBottom = false
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if gen != c.generation {
		c.mu.Unlock()
		return nil
	}

	clipped := c.window.Push(result.Messages)
	c.generation++
	c.noMessagesAfter = result.NoMessagesAfter
	c.noMessagesBefore = !clipped && c.noMessagesBefore
	c.mu.Unlock()

	c.notify()
	return nil
}

// FocusMessage replaces the window with a chunk centered on item, fetching
// the pages strictly before and strictly after it concurrently. Used to jump
// to a search result far from the loaded window.
func (c *Controller[T]) FocusMessage(ctx context.Context, item T) error {
	var before, after FetchResult[T]

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		before, err = c.source.FetchMessages(groupCtx, c.roomID, c.additionalChunkSize, &item, nil)
		return err
	})
	group.Go(func() error {
		var err error
		after, err = c.source.FetchMessages(groupCtx, c.roomID, c.additionalChunkSize, nil, &item)
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}

	joined := make([]T, 0, len(before.Messages)+1+len(after.Messages))
	joined = append(joined, before.Messages...)
	joined = append(joined, item)
	joined = append(joined, after.Messages...)

	c.mu.Lock()
	c.window.Set(joined, KeepBeginning)
	c.generation++
	c.noMessagesBefore = before.NoMessagesBefore
	c.noMessagesAfter = after.NoMessagesAfter
	focused := item
	c.focused = &focused
	c.mu.Unlock()

	c.notify()
	return nil
}

// Apply inserts a live-arrived message into the window. Arrivals for other
// rooms, arrivals while the newest edge is not loaded, and duplicate keys are
// dropped. The clip direction follows whichever edge the visible frame is
// nearer, so the content the user is looking at stays put.
func (c *Controller[T]) Apply(roomID string, message T) {
	c.mu.Lock()

	if roomID != c.roomID {
		c.mu.Unlock()
		return
	}

	if !c.noMessagesAfter {
		// Not at the live edge; the message will arrive via pagination.
		c.mu.Unlock()
		return
	}

	key := c.getKey(message)
	for _, existing := range c.window.Items() {
		if c.getKey(existing) == key {
			c.mu.Unlock()
			log.Printf("feed: dropping duplicate live message %s in room %s", key, roomID)
			return
		}
	}

	items := c.window.Items()
	index := sort.Search(len(items), func(i int) bool {
		return c.compare(message, items[i]) < 0
	})

	keep := KeepEnding
	if c.frame.Begin < c.frame.End {
		keep = KeepBeginning
	}

	clipped := c.window.Insert(message, index, keep)
	c.generation++
	if clipped {
		if keep == KeepBeginning {
			c.noMessagesAfter = false
		} else {
			c.noMessagesBefore = false
		}
	}
	c.mu.Unlock()

	c.notify()
}

// Search runs a message search and focuses the first result. Zero results is
// a no-op navigate, not an error.
func (c *Controller[T]) Search(ctx context.Context, criteria string) (SearchResult[T], error) {
	result, err := c.source.SearchMessages(ctx, c.roomID, criteria)
	if err != nil {
		return SearchResult[T]{}, err
	}

	c.mu.Lock()
	c.searchResults = result.Results
	c.searchIndex = 0
	c.mu.Unlock()

	if len(result.Results) == 0 {
		return result, nil
	}

	return result, c.FocusMessage(ctx, result.Results[0])
}

// NextSearchResult focuses the next search match, clamped to the result list.
func (c *Controller[T]) NextSearchResult(ctx context.Context) error {
	return c.stepSearch(ctx, 1)
}

// PreviousSearchResult focuses the previous search match.
func (c *Controller[T]) PreviousSearchResult(ctx context.Context) error {
	return c.stepSearch(ctx, -1)
}

func (c *Controller[T]) stepSearch(ctx context.Context, delta int) error {
	c.mu.Lock()
	if len(c.searchResults) == 0 {
		c.mu.Unlock()
		return nil
	}

	c.searchIndex = clamp(c.searchIndex+delta, 0, len(c.searchResults)-1)
	item := c.searchResults[c.searchIndex]
	c.mu.Unlock()

	return c.FocusMessage(ctx, item)
}

// Focused returns the currently focused item, if any.
func (c *Controller[T]) Focused() *T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

func (c *Controller[T]) notify() {
	c.mu.Lock()
	items := c.window.Items()
	focused := c.focused
	c.mu.Unlock()

	c.onChange(items, focused)
}
