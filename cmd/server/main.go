package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/chatstream/internal/memstore"
	"github.com/yourusername/chatstream/internal/server"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP service address")
	room := flag.String("room", "general", "demo room to create")
	users := flag.String("users", "alice,bob", "comma-separated demo room participants")
	flag.Parse()

	store := memstore.NewStore()
	store.AddRoom(*room, strings.Split(*users, ",")...)
	store.Seed(*room, memstore.ChatMessage{
		ID:     "welcome",
		UserID: "alice",
		Text:   "welcome to " + *room,
		SentAt: time.Now().Add(-time.Minute),
	})

	srv := server.NewServer(store)
	srv.Run(context.Background())

	http.HandleFunc("/ws", srv.HandleWebSocket)
	http.Handle("/api/", memstore.NewHandler(store))

	log.Printf("Starting server on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}
