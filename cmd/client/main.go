package main

import (
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yourusername/chatstream/internal/client"
	"github.com/yourusername/chatstream/internal/client/ui"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "WebSocket server URL")
	historyURL := flag.String("history", "http://localhost:8080", "history API base URL")
	roomID := flag.String("room", "general", "Room ID to join")
	userID := flag.String("user", "alice", "User ID to connect as")
	flag.Parse()

	api := client.NewHistoryAPI(*historyURL)
	model := ui.NewModel(*serverURL+"?user="+*userID, *roomID, *userID, api)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
