package feed

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrSuperseded is the cancellation cause used when a newer animation
// replaces an in-flight one.
var ErrSuperseded = errors.New("scroll animation superseded")

// View is the scrollable surface an Anchor drives. The bubbles viewport
// adapter implements it in the client UI; tests use fakes.
type View interface {
	// ScrollTop returns the current scroll offset.
	ScrollTop() int
	// SetScrollTop moves the viewport to the given offset.
	SetScrollTop(offset int)
	// Height returns the visible height of the viewport.
	Height() int
	// ContentHeight returns the total height of the rendered content.
	ContentHeight() int
	// ItemBounds returns the top offset and height of the rendered item with
	// the given key, or ok=false if it is not rendered.
	ItemBounds(key string) (top, height int, ok bool)
}

// AnimationParams control the scroll interpolation.
type AnimationParams struct {
	// Easing maps elapsed fraction [0,1] to progress [0,1].
	Easing func(t float64) float64
	// Duration maps the remaining scroll distance, always non-negative, to
	// the animation length. Supports constant and content-aware durations.
	Duration func(distance float64) time.Duration
	// FrameInterval is the tick between interpolation steps. Defaults to
	// 16ms when zero.
	FrameInterval time.Duration
}

// Anchor animates a viewport so a designated focus item ends up centered.
// Only one animation may be in flight per anchor; starting a new one aborts
// the previous with ErrSuperseded. Start and Abort may be called from
// different goroutines.
type Anchor struct {
	mu     sync.Mutex
	cancel context.CancelCauseFunc
}

// NewAnchor creates an idle anchor.
func NewAnchor() *Anchor {
	return &Anchor{}
}

// Start aborts any in-flight animation and runs a new one to center the item
// with the given key. The returned error is the abort cause when the
// animation was cancelled; callers treat ErrSuperseded as expected.
func (a *Anchor) Start(ctx context.Context, view View, key string, params AnimationParams) error {
	a.Abort(ErrSuperseded)

	ctx, cancel := context.WithCancelCause(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel(nil)

	return AnimateTo(ctx, view, key, params)
}

// Abort cancels the in-flight animation, if any, with the given cause.
func (a *Anchor) Abort(cause error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		a.cancel(cause)
		a.cancel = nil
	}
}

// AnimateTo scrolls view so the item identified by key is centered, clamped
// to the valid scroll range. Resolves immediately when no movement is needed.
// Returns the cancellation cause if ctx is aborted mid-animation.
func AnimateTo(ctx context.Context, view View, key string, params AnimationParams) error {
	top, height, ok := view.ItemBounds(key)
	if !ok {
		return errors.Errorf("item %q is not rendered", key)
	}

	start := view.ScrollTop()
	maxScroll := view.ContentHeight() - view.Height()
	if maxScroll < 0 {
		maxScroll = 0
	}

	end := clamp(top+height/2-view.Height()/2, 0, maxScroll)
	if start == end {
		return nil
	}

	distance := float64(end - start)
	if distance < 0 {
		distance = -distance
	}

	duration := params.Duration(distance)
	interval := params.FrameInterval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	began := time.Now()
	for {
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case now := <-ticker.C:
			elapsed := now.Sub(began)
			if elapsed >= duration {
				view.SetScrollTop(end)
				return nil
			}

			t := float64(elapsed) / float64(duration)
			view.SetScrollTop(start + int(float64(end-start)*params.Easing(t)))
		}
	}
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}

	return value
}
