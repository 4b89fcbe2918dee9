package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScrollView struct {
	mu      sync.Mutex
	top     int
	height  int
	content int
	bounds  map[string][2]int
}

func (v *fakeScrollView) ScrollTop() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.top
}

func (v *fakeScrollView) SetScrollTop(offset int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.top = offset
}

func (v *fakeScrollView) Height() int        { return v.height }
func (v *fakeScrollView) ContentHeight() int { return v.content }

func (v *fakeScrollView) ItemBounds(key string) (int, int, bool) {
	b, ok := v.bounds[key]
	return b[0], b[1], ok
}

func fastParams() AnimationParams {
	return AnimationParams{
		Easing:        func(t float64) float64 { return t },
		Duration:      func(float64) time.Duration { return 30 * time.Millisecond },
		FrameInterval: 5 * time.Millisecond,
	}
}

func TestAnimateToCentersItem(t *testing.T) {
	view := &fakeScrollView{
		height:  10,
		content: 100,
		bounds:  map[string][2]int{"x": {50, 4}},
	}

	err := AnimateTo(context.Background(), view, "x", fastParams())
	require.NoError(t, err)

	// end = 50 + 4/2 - 10/2 = 47
	assert.Equal(t, 47, view.ScrollTop())
}

func TestAnimateToClampsToScrollRange(t *testing.T) {
	view := &fakeScrollView{
		height:  10,
		content: 100,
		bounds:  map[string][2]int{"x": {95, 5}},
	}

	err := AnimateTo(context.Background(), view, "x", fastParams())
	require.NoError(t, err)
	assert.Equal(t, 90, view.ScrollTop())
}

func TestAnimateToUsesAbsoluteDistanceScrollingUp(t *testing.T) {
	view := &fakeScrollView{
		top:     80,
		height:  10,
		content: 100,
		bounds:  map[string][2]int{"x": {10, 4}},
	}

	var got float64
	params := fastParams()
	params.Duration = func(distance float64) time.Duration {
		got = distance
		return 30 * time.Millisecond
	}

	err := AnimateTo(context.Background(), view, "x", params)
	require.NoError(t, err)

	// end = 10 + 4/2 - 10/2 = 7, so the distance is 73 upward.
	assert.Equal(t, float64(73), got)
	assert.Equal(t, 7, view.ScrollTop())
}

func TestAnimateToResolvesImmediatelyWhenCentered(t *testing.T) {
	view := &fakeScrollView{
		top:     47,
		height:  10,
		content: 100,
		bounds:  map[string][2]int{"x": {50, 4}},
	}

	params := fastParams()
	params.Duration = func(float64) time.Duration { return time.Hour }

	done := make(chan error, 1)
	go func() { done <- AnimateTo(context.Background(), view, "x", params) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("animation did not resolve immediately")
	}
	assert.Equal(t, 47, view.ScrollTop())
}

func TestAnimateToUnknownKey(t *testing.T) {
	view := &fakeScrollView{height: 10, content: 100, bounds: map[string][2]int{}}

	err := AnimateTo(context.Background(), view, "missing", fastParams())
	assert.Error(t, err)
}

func TestAnchorAbortCarriesCause(t *testing.T) {
	view := &fakeScrollView{
		height:  10,
		content: 1000,
		bounds:  map[string][2]int{"x": {900, 5}},
	}

	params := fastParams()
	params.Duration = func(float64) time.Duration { return 2 * time.Second }

	cause := errors.New("user scrolled")
	anchor := NewAnchor()

	done := make(chan error, 1)
	go func() { done <- anchor.Start(context.Background(), view, "x", params) }()

	time.Sleep(30 * time.Millisecond)
	anchor.Abort(cause)

	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
}

func TestAnchorStartSupersedesPrevious(t *testing.T) {
	view := &fakeScrollView{
		height:  10,
		content: 1000,
		bounds: map[string][2]int{
			"slow": {900, 5},
			"fast": {100, 5},
		},
	}

	slow := fastParams()
	slow.Duration = func(float64) time.Duration { return 2 * time.Second }

	anchor := NewAnchor()

	first := make(chan error, 1)
	go func() { first <- anchor.Start(context.Background(), view, "slow", slow) }()
	time.Sleep(30 * time.Millisecond)

	err := anchor.Start(context.Background(), view, "fast", fastParams())
	require.NoError(t, err)

	assert.True(t, errors.Is(<-first, ErrSuperseded))
	// end = 100 + 2 - 5 = 97
	assert.Equal(t, 97, view.ScrollTop())
}
