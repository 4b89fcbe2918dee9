package feed

import (
	"fmt"

	"github.com/pkg/errors"
)

// RenderItem is a single entry of a render list: either a real message or a
// gap placeholder standing in for content that is not loaded yet.
type RenderItem[T any] struct {
	// Key uniquely identifies the item within the render list.
	Key string
	// Placeholder marks a synthetic gap entry. Value, Index and Segment are
	// meaningless when set.
	Placeholder bool
	// Value is the underlying message.
	Value T
	// Index is the position within the item's segment.
	Index int
	// Segment indexes into RenderList.Segments. Grouping logic (message
	// borders, avatars) needs the containing run, but items hold an index
	// rather than a slice reference so segments can be replaced safely.
	Segment int
	// Focused marks the single item a jump scrolls to.
	Focused bool
}

// RenderList is the output of a reconciliation pass: the items to render in
// order, plus the table of contiguous segments they belong to. A settled list
// has exactly one segment and no placeholder; a jumping list has two segments
// separated by exactly one placeholder.
type RenderList[T any] struct {
	Items    []RenderItem[T]
	Segments [][]T
}

// Validate checks render list invariants: at most one placeholder and no
// duplicate keys among real items. Intended for debug paths and tests; the
// reconciler is expected to never produce a violating list.
func (l RenderList[T]) Validate() error {
	placeholders := 0
	seen := make(map[string]struct{}, len(l.Items))

	for _, item := range l.Items {
		if item.Placeholder {
			placeholders++
			continue
		}

		if _, ok := seen[item.Key]; ok {
			return errors.Errorf("duplicate key %q in render list", item.Key)
		}
		seen[item.Key] = struct{}{}
	}

	if placeholders > 1 {
		return errors.Errorf("%d placeholders in render list", placeholders)
	}

	return nil
}

// Keys returns the keys of all real items in list order.
func (l RenderList[T]) Keys() []string {
	keys := make([]string, 0, len(l.Items))
	for _, item := range l.Items {
		if !item.Placeholder {
			keys = append(keys, item.Key)
		}
	}

	return keys
}

func placeholderKey(seq int) string {
	return fmt.Sprintf("gap:%d", seq)
}
