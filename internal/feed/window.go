package feed

// KeepDirection selects which edge of the window survives a clip.
type KeepDirection int

const (
	// KeepBeginning clips from the end.
	KeepBeginning KeepDirection = iota
	// KeepEnding clips from the beginning.
	KeepEnding
)

// Window is a capacity-limited ordered buffer of items. It holds the bounded
// in-memory subset of the full logical message sequence: pagination grows it
// at either edge, live arrivals splice into it, and jumps replace it
// wholesale. After every mutation len(items) <= maxSize.
type Window[T any] struct {
	items   []T
	maxSize int
}

// NewWindow creates an empty window with the given capacity.
func NewWindow[T any](maxSize int) *Window[T] {
	return &Window[T]{maxSize: maxSize}
}

func clipItems[T any](items []T, maxSize int, keep KeepDirection) []T {
	if len(items) <= maxSize {
		return items
	}

	if keep == KeepBeginning {
		return items[:maxSize]
	}

	return items[len(items)-maxSize:]
}

// Set replaces the window contents, clipping per keep. Returns true if any
// element was clipped away.
func (w *Window[T]) Set(items []T, keep KeepDirection) bool {
	clipped := clipItems(items, w.maxSize, keep)
	w.items = clipped

	return len(items) > len(clipped)
}

// Push appends items at the tail, clipping from the head if over capacity.
// The newly pushed tail element is always retained.
func (w *Window[T]) Push(items []T) bool {
	joined := make([]T, 0, len(w.items)+len(items))
	joined = append(joined, w.items...)
	joined = append(joined, items...)

	return w.Set(joined, KeepEnding)
}

// Unshift prepends items at the head, clipping from the tail if over
// capacity. The first prepended element is always retained.
func (w *Window[T]) Unshift(items []T) bool {
	joined := make([]T, 0, len(w.items)+len(items))
	joined = append(joined, items...)
	joined = append(joined, w.items...)

	return w.Set(joined, KeepBeginning)
}

// Insert splices a single item in at index, clipping per keep.
func (w *Window[T]) Insert(item T, index int, keep KeepDirection) bool {
	joined := make([]T, 0, len(w.items)+1)
	joined = append(joined, w.items[:index]...)
	joined = append(joined, item)
	joined = append(joined, w.items[index:]...)

	return w.Set(joined, keep)
}

// At returns the element at index. Negative indices count from the end.
func (w *Window[T]) At(index int) (T, bool) {
	if index < 0 {
		index += len(w.items)
	}

	if index < 0 || index >= len(w.items) {
		var zero T
		return zero, false
	}

	return w.items[index], true
}

// Items returns the backing slice. Callers must not mutate it.
func (w *Window[T]) Items() []T {
	return w.items
}

// Len returns the number of items currently held.
func (w *Window[T]) Len() int {
	return len(w.items)
}
