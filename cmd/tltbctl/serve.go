package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"tltb-go/types"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Re-publish decoded snapshots as JSON over WebSocket",
	Long: `Decode telemetry from the serial port and serve it on a WebSocket
endpoint at /telemetry. Every connected client receives each snapshot as
a JSON object; a new client immediately gets the most recent one.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "listen", ":8720", "HTTP listen address")
	rootCmd.AddCommand(serveCmd)
}

// wsHub fans snapshots out to every connected WebSocket client. Writes
// happen on the reader goroutine; a slow client is dropped rather than
// allowed to stall the others.
type wsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	last    []byte
}

func newWsHub() *wsHub {
	return &wsHub{clients: make(map[*websocket.Conn]struct{})}
}

func (h *wsHub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.WriteMessage(websocket.TextMessage, h.last)
	}
}

func (h *wsHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	c.Close()
}

func (h *wsHub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = payload
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.clients, c)
			c.Close()
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	port, err := openPort()
	if err != nil {
		return err
	}
	defer port.Close()

	hub := newWsHub()
	upgrader := websocket.Upgrader{
		// Bench tool on a trusted network; browsers on other hosts are fine.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/telemetry", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.add(conn)
		// Drain client messages so pings and close frames are handled.
		go func() {
			defer hub.remove(conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	errCh := make(chan error, 2)
	go func() {
		errCh <- http.ListenAndServe(serveAddr, mux)
	}()
	go func() {
		errCh <- readFrames(port,
			func(s types.Snapshot) {
				payload, err := json.Marshal(s)
				if err != nil {
					return
				}
				hub.broadcast(payload)
			},
			func(error) {})
	}()

	fmt.Printf("serving ws://%s/telemetry from %s @ %d\n", serveAddr, portName, baudRate)
	return <-errCh
}
