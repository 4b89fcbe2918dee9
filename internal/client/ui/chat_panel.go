package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/chatstream/internal/feed"
	"github.com/yourusername/chatstream/internal/memstore"
)

// renderFeed turns the reconciled render list into viewport content and a
// line layout. Each message takes one line; placeholders take one line too so
// the gap is visible while history loads.
func renderFeed(list feed.RenderList[memstore.ChatMessage], selfUserID string, width int) (content string, extents []itemExtent) {
	var lines []string
	extents = make([]itemExtent, 0, len(list.Items))

	for _, item := range list.Items {
		var rendered string
		if item.Placeholder {
			rendered = placeholderStyle.Width(width).Render("· · · loading · · ·")
		} else {
			rendered = renderMessage(item.Value, selfUserID, item.Focused, width)
		}

		height := lipgloss.Height(rendered)
		extents = append(extents, itemExtent{
			key:    item.Key,
			top:    len(lines),
			height: height,
		})
		lines = append(lines, strings.Split(rendered, "\n")...)
	}

	return strings.Join(lines, "\n"), extents
}

func renderMessage(msg memstore.ChatMessage, selfUserID string, focused bool, width int) string {
	sender := senderStyle
	if msg.UserID == selfUserID {
		sender = ownSenderStyle
	}

	body := messageStyle
	if focused {
		body = focusedMessageStyle
	}

	header := fmt.Sprintf("%s %s",
		sender.Render(msg.UserID),
		timestampStyle.Render(msg.SentAt.Format("15:04")),
	)

	text := body.Width(width).Render(msg.Text)
	return header + "\n" + text
}
