package feed

import "sort"

// span is an intermediate run of contiguous values, or a gap placeholder,
// used while computing the next render list.
type span[T any] struct {
	gap    bool
	gapKey string
	values []T
}

// Reconciler decides how the rendered list follows the logical window. It is
// the state machine behind the endless list: Settled means the render list
// mirrors the window one-to-one; Jumping means two real segments are shown
// around a single placeholder while the viewport animates to the new segment.
//
// All methods must be called from a single goroutine; the reconciler reads
// the visibility set synchronously within a pass, never across one.
type Reconciler[T any] struct {
	getKey      func(T) string
	compare     func(a, b T) int
	visibleKeys func() map[string]bool

	spans    []span[T]
	rendered RenderList[T]
	target   []T
	jumping  bool
	gapSeq   int
}

// NewReconciler creates a reconciler. visibleKeys returns the live visibility
// set (typically Tracker.VisibleKeys); it is read only during Reconcile.
func NewReconciler[T any](
	getKey func(T) string,
	compare func(a, b T) int,
	visibleKeys func() map[string]bool,
) *Reconciler[T] {
	if visibleKeys == nil {
		visibleKeys = func() map[string]bool { return nil }
	}

	return &Reconciler[T]{
		getKey:      getKey,
		compare:     compare,
		visibleKeys: visibleKeys,
	}
}

// Rendered returns the last committed render list.
func (r *Reconciler[T]) Rendered() RenderList[T] {
	return r.rendered
}

// Jumping reports whether a discontinuous transition is in progress.
func (r *Reconciler[T]) Jumping() bool {
	return r.jumping
}

// Reset snaps directly to items, discarding any in-flight jump. Used when the
// identity of the backing sequence changes (room switch).
func (r *Reconciler[T]) Reset(items []T) RenderList[T] {
	r.target = items
	return r.snap(items, "")
}

// Settle collapses a completed jump to the plain target window. Must only be
// called when the jump animation finished without being aborted; a superseded
// jump stays in the Jumping state instead.
func (r *Reconciler[T]) Settle() RenderList[T] {
	return r.snap(r.target, "")
}

// Reconcile computes the render list for a new target window. focusedKey is
// the caller-declared focused item, or empty. After Reconcile the caller must
// check Jumping: a jumping list requires (re)starting the scroll animation,
// aborting any previous one first.
func (r *Reconciler[T]) Reconcile(target []T, focusedKey string) RenderList[T] {
	defer func() { r.target = target }()

	if len(r.rendered.Items) == 0 || len(target) == 0 {
		return r.snap(target, focusedKey)
	}

	if r.jumping {
		fixed := r.fixup()
		if !hasReal(fixed) {
			return r.snap(target, focusedKey)
		}

		if list, ok := r.splice(fixed, target, focusedKey); ok {
			return list
		}

		// No overlap with what the user still sees: the fixed-up list is
		// the baseline for a fresh jump.
		return r.jump(fixed, target, focusedKey)
	}

	oldKeys := r.keySet(realValues(r.spans))
	targetKeys := r.keySet(target)

	oldFirst := r.getKey(firstReal(r.spans))
	oldLast := r.getKey(lastReal(r.spans))

	// Continuity is checked independently in both directions; only when both
	// fail is the transition discontinuous.
	moveForward := !oldKeys[r.getKey(target[0])] || !targetKeys[oldLast]
	moveBackward := !targetKeys[oldFirst] || !oldKeys[r.getKey(target[len(target)-1])]

	if !(moveForward && moveBackward) {
		return r.snap(target, focusedKey)
	}

	return r.jump(r.spans, target, focusedKey)
}

// snap transitions directly to the Settled state with the given items.
func (r *Reconciler[T]) snap(items []T, focusedKey string) RenderList[T] {
	r.jumping = false
	r.spans = []span[T]{{values: items}}
	r.rendered = r.materialize(r.spans, focusedKey)

	return r.rendered
}

// jump enters the Jumping state: the target becomes one segment, the baseline
// the other, placed in compare order around a single placeholder.
func (r *Reconciler[T]) jump(baseline []span[T], target []T, focusedKey string) RenderList[T] {
	forward := r.compare(target[0], firstReal(baseline)) > 0

	var spans []span[T]
	if forward {
		spans = append(spans, baseline...)
		if !spans[len(spans)-1].gap {
			spans = append(spans, r.freshGap())
		}
		spans = append(spans, span[T]{values: target})
	} else {
		spans = append(spans, span[T]{values: target})
		if !baseline[0].gap {
			spans = append(spans, r.freshGap())
		}
		spans = append(spans, baseline...)
	}

	spans = dropExtraGaps(spans, forward)

	r.jumping = true
	r.spans = spans
	r.rendered = r.materialize(spans, r.focusKey(target, focusedKey))

	return r.rendered
}

// fixup filters the currently rendered items down to what the user can still
// see: real items that are visible or adjacent to a visible real item, and
// placeholders that are themselves visible. Contiguity breaks become span
// boundaries.
func (r *Reconciler[T]) fixup() []span[T] {
	items := r.rendered.Items
	vis := r.visibleKeys()

	keep := make([]bool, len(items))
	for i, item := range items {
		if item.Placeholder {
			keep[i] = vis[item.Key]
			continue
		}

		if vis[item.Key] {
			keep[i] = true
			continue
		}

		if i > 0 && !items[i-1].Placeholder && vis[items[i-1].Key] {
			keep[i] = true
			continue
		}

		if i+1 < len(items) && !items[i+1].Placeholder && vis[items[i+1].Key] {
			keep[i] = true
		}
	}

	var spans []span[T]
	var run []T
	flush := func() {
		if len(run) > 0 {
			spans = append(spans, span[T]{values: run})
			run = nil
		}
	}

	previousKept := -2
	for i, item := range items {
		if !keep[i] {
			continue
		}

		if item.Placeholder {
			flush()
			spans = append(spans, span[T]{gap: true, gapKey: item.Key})
			previousKept = i
			continue
		}

		if i != previousKept+1 {
			flush()
		}
		run = append(run, item.Value)
		previousKept = i
	}
	flush()

	return spans
}

// splice merges the target into the fixed-up baseline at the pivot where
// their key sets intersect, deduplicating by key with the earliest occurrence
// winning. Returns false when no pivot exists.
func (r *Reconciler[T]) splice(fixed []span[T], target []T, focusedKey string) (RenderList[T], bool) {
	targetKeys := r.keySet(target)

	spanIdx, valIdx := -1, -1
search:
	for si, sp := range fixed {
		if sp.gap {
			continue
		}
		for vi, v := range sp.values {
			if targetKeys[r.getKey(v)] {
				spanIdx, valIdx = si, vi
				break search
			}
		}
	}

	if spanIdx == -1 {
		spanIdx, valIdx = r.searchPivot(fixed, target[0])
		if spanIdx == -1 {
			return RenderList[T]{}, false
		}
	}

	spans := make([]span[T], len(fixed))
	copy(spans, fixed)

	run := spans[spanIdx].values
	merged := make([]T, 0, len(run)+len(target))
	merged = append(merged, run[:valIdx]...)
	merged = append(merged, target...)
	merged = append(merged, run[valIdx:]...)
	spans[spanIdx] = span[T]{values: merged}

	r.dedupe(spans)

	r.spans = spans
	r.rendered = r.materialize(spans, r.focusKey(target, focusedKey))

	return r.rendered, true
}

// searchPivot binary-searches the insertion point of value among the baseline
// reals. Only a position strictly inside a run is a usable pivot; boundary
// positions mean the target belongs beyond an edge and needs a fresh jump.
func (r *Reconciler[T]) searchPivot(spans []span[T], value T) (int, int) {
	for si, sp := range spans {
		if sp.gap || len(sp.values) == 0 {
			continue
		}

		idx := sort.Search(len(sp.values), func(i int) bool {
			return r.compare(value, sp.values[i]) <= 0
		})

		if idx > 0 && idx < len(sp.values) {
			return si, idx
		}
	}

	return -1, -1
}

// dedupe removes later duplicate keys across all runs, in list order.
func (r *Reconciler[T]) dedupe(spans []span[T]) {
	seen := make(map[string]struct{})

	for si := range spans {
		if spans[si].gap {
			continue
		}

		kept := spans[si].values[:0:0]
		for _, v := range spans[si].values {
			key := r.getKey(v)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			kept = append(kept, v)
		}
		spans[si].values = kept
	}
}

// focusKey resolves the focused key of a jump: the caller's focused item if
// it is part of the target, otherwise the target's middle element.
func (r *Reconciler[T]) focusKey(target []T, focusedKey string) string {
	if focusedKey != "" && r.keySet(target)[focusedKey] {
		return focusedKey
	}

	return r.getKey(target[len(target)/2])
}

func (r *Reconciler[T]) freshGap() span[T] {
	r.gapSeq++
	return span[T]{gap: true, gapKey: placeholderKey(r.gapSeq)}
}

func (r *Reconciler[T]) keySet(items []T) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, v := range items {
		set[r.getKey(v)] = true
	}

	return set
}

func (r *Reconciler[T]) materialize(spans []span[T], focusKey string) RenderList[T] {
	var list RenderList[T]

	for _, sp := range spans {
		if sp.gap {
			list.Items = append(list.Items, RenderItem[T]{
				Key:         sp.gapKey,
				Placeholder: true,
				Index:       -1,
				Segment:     -1,
			})
			continue
		}

		if len(sp.values) == 0 {
			continue
		}

		segment := len(list.Segments)
		list.Segments = append(list.Segments, sp.values)

		for i, v := range sp.values {
			key := r.getKey(v)
			list.Items = append(list.Items, RenderItem[T]{
				Key:     key,
				Value:   v,
				Index:   i,
				Segment: segment,
				Focused: key == focusKey,
			})
		}
	}

	return list
}

// dropExtraGaps enforces the single-placeholder invariant when a superseded
// baseline still carried its own gap: the gap bordering the target segment
// wins, older gaps collapse. forward means the target segment is last.
func dropExtraGaps[T any](spans []span[T], forward bool) []span[T] {
	gaps := 0
	for _, sp := range spans {
		if sp.gap {
			gaps++
		}
	}

	if gaps <= 1 {
		return spans
	}

	kept := spans[:0:0]
	if forward {
		// Keep only the last gap.
		seen := 0
		for _, sp := range spans {
			if sp.gap {
				seen++
				if seen < gaps {
					continue
				}
			}
			kept = append(kept, sp)
		}
	} else {
		// Keep only the first gap.
		seen := 0
		for _, sp := range spans {
			if sp.gap {
				seen++
				if seen > 1 {
					continue
				}
			}
			kept = append(kept, sp)
		}
	}

	return kept
}

func hasReal[T any](spans []span[T]) bool {
	for _, sp := range spans {
		if !sp.gap && len(sp.values) > 0 {
			return true
		}
	}

	return false
}

func firstReal[T any](spans []span[T]) T {
	for _, sp := range spans {
		if !sp.gap && len(sp.values) > 0 {
			return sp.values[0]
		}
	}

	var zero T
	return zero
}

func lastReal[T any](spans []span[T]) T {
	for i := len(spans) - 1; i >= 0; i-- {
		if !spans[i].gap && len(spans[i].values) > 0 {
			return spans[i].values[len(spans[i].values)-1]
		}
	}

	var zero T
	return zero
}

func realValues[T any](spans []span[T]) []T {
	var values []T
	for _, sp := range spans {
		if !sp.gap {
			values = append(values, sp.values...)
		}
	}

	return values
}
