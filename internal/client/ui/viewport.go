package ui

// itemExtent records where a rendered feed item landed in the viewport
// content, in lines.
type itemExtent struct {
	key    string
	top    int
	height int
}

// feedView is a snapshot of the viewport geometry taken on the update loop.
// It satisfies the scroll animation's view interface; SetScrollTop forwards
// offsets through a channel back into the program instead of mutating the
// bubbles viewport from the animation goroutine.
type feedView struct {
	scrollTop     int
	viewHeight    int
	contentHeight int
	extents       []itemExtent
	setOffset     func(offset int)
}

func (v *feedView) ScrollTop() int {
	return v.scrollTop
}

func (v *feedView) SetScrollTop(offset int) {
	v.scrollTop = offset
	v.setOffset(offset)
}

func (v *feedView) Height() int {
	return v.viewHeight
}

func (v *feedView) ContentHeight() int {
	return v.contentHeight
}

func (v *feedView) ItemBounds(key string) (top, height int, ok bool) {
	for _, extent := range v.extents {
		if extent.key == key {
			return extent.top, extent.height, true
		}
	}

	return 0, 0, false
}
