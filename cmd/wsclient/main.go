// Command wsclient is a manual test peer that plays the browser-extension
// side of the bridge protocol. It connects to a running bridge, prints
// every command frame it receives, and forwards stdin lines to the bridge
// as event frames:
//
//	{"command":"ActiveTab","data":{"url":"https://example.com"}}
//
// Usage: go run ./cmd/wsclient ws://localhost:8000
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	url := "ws://localhost:8000"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	fmt.Printf("Connecting to %s...\n", url)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Println("Connected! Commands from the bridge will print below.")
	fmt.Println("Type event frames (JSON) to send them to the bridge.")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Read commands from the bridge
	done := make(chan struct{})
	commandCount := 0

	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					fmt.Printf("Read error: %v\n", err)
				}
				return
			}

			commandCount++

			var msg map[string]interface{}
			if err := json.Unmarshal(data, &msg); err != nil {
				fmt.Printf("[%d] Raw: %s\n", commandCount, string(data))
				continue
			}

			command, _ := msg["command"].(string)
			fmt.Printf("[%d] command=%s", commandCount, command)
			if params, ok := msg["parameters"].(map[string]interface{}); ok {
				if url, ok := params["url"].(string); ok {
					fmt.Printf(" url=%q", url)
				}
				if target, ok := params["target"].(float64); ok {
					fmt.Printf(" target=%d", int(target))
				}
			}
			if index, ok := msg["data"].(float64); ok {
				fmt.Printf(" index=%d", int(index))
			}
			fmt.Println()
		}
	}()

	// Forward stdin lines to the bridge as event frames
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
				return
			}
		}
	}()

	select {
	case <-done:
		fmt.Println("Connection closed")
	case <-interrupt:
		fmt.Println("Interrupted")
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}

	fmt.Printf("Total commands received: %d\n", commandCount)
}
