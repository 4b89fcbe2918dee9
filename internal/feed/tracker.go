package feed

// Frame is the contiguous logical index range of currently visible items.
// Begin or End is -1 when no visible item is found on that scan.
type Frame struct {
	Begin int
	End   int
}

// EmptyFrame is the sentinel "nothing visible yet" frame.
var EmptyFrame = Frame{Begin: -1, End: -1}

// Tracker records which rendered item keys are currently within the viewport.
// The UI layer feeds it intersection updates; the pagination layer reads the
// derived frame to decide edge triggers and clip direction.
type Tracker struct {
	visible  map[string]bool
	observed map[string]struct{}
}

// NewTracker creates an empty visibility tracker.
func NewTracker() *Tracker {
	return &Tracker{
		visible:  make(map[string]bool),
		observed: make(map[string]struct{}),
	}
}

// Observe registers a rendered key for visibility tracking. Idempotent.
func (t *Tracker) Observe(key string) {
	t.observed[key] = struct{}{}
}

// Unobserve removes a key from tracking. Idempotent.
func (t *Tracker) Unobserve(key string) {
	delete(t.observed, key)
	delete(t.visible, key)
}

// SetVisible marks an observed key visible or not visible. Updates for keys
// that were never observed are dropped.
func (t *Tracker) SetVisible(key string, visible bool) {
	if _, ok := t.observed[key]; !ok {
		return
	}

	if visible {
		t.visible[key] = true
	} else {
		delete(t.visible, key)
	}
}

// VisibleKeys returns the live set of visible keys. The map is mutated in
// place by SetVisible; callers must not modify or retain it across updates.
func (t *Tracker) VisibleKeys() map[string]bool {
	return t.visible
}

// VisibleFrame computes the visible index range against the logical item
// order. keyAt maps a logical index to its item key. Scans front-to-back for
// Begin and back-to-front for End, returning -1 for a bound with no visible
// item.
func (t *Tracker) VisibleFrame(length int, keyAt func(int) string) Frame {
	frame := EmptyFrame

	for i := 0; i < length; i++ {
		if t.visible[keyAt(i)] {
			frame.Begin = i
			break
		}
	}

	for i := length - 1; i >= 0; i-- {
		if t.visible[keyAt(i)] {
			frame.End = i
			break
		}
	}

	return frame
}
