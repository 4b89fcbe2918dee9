package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func keyAt(keys []string) func(int) string {
	return func(i int) string { return keys[i] }
}

func TestTrackerVisibleFrame(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e"}

	tr := NewTracker()
	for _, k := range keys {
		tr.Observe(k)
	}

	assert.Equal(t, EmptyFrame, tr.VisibleFrame(len(keys), keyAt(keys)))

	tr.SetVisible("b", true)
	tr.SetVisible("c", true)
	tr.SetVisible("d", true)
	assert.Equal(t, Frame{Begin: 1, End: 3}, tr.VisibleFrame(len(keys), keyAt(keys)))

	tr.SetVisible("b", false)
	tr.SetVisible("d", false)
	assert.Equal(t, Frame{Begin: 2, End: 2}, tr.VisibleFrame(len(keys), keyAt(keys)))
}

func TestTrackerDropsUnobservedUpdates(t *testing.T) {
	tr := NewTracker()
	tr.SetVisible("ghost", true)
	assert.Empty(t, tr.VisibleKeys())
}

func TestTrackerObserveIsIdempotent(t *testing.T) {
	tr := NewTracker()
	tr.Observe("a")
	tr.Observe("a")
	tr.SetVisible("a", true)
	assert.True(t, tr.VisibleKeys()["a"])

	tr.Unobserve("a")
	tr.Unobserve("a")
	assert.False(t, tr.VisibleKeys()["a"])

	// Visibility set before unobserve must not survive.
	tr.Observe("a")
	assert.False(t, tr.VisibleKeys()["a"])
}
