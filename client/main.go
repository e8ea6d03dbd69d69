package main

import (
	"bufio"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// send formats and sends a named event to the lobby server.
func send(c *websocket.Conn, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.WriteJSON(envelope{Event: event, Data: data})
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	host := os.Getenv("LOBBY_HOST")
	if host == "" {
		host = "localhost:3000"
	}
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			var env envelope
			if err := c.ReadJSON(&env); err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- RECV %s: %s", env.Event, string(env.Data))
		}
	}()

	log.Println("Commands: register <username> [email] | create [name] | join <CODE>")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(text)
			if len(fields) == 0 {
				continue
			}

			var err error
			switch fields[0] {
			case "register":
				if len(fields) < 2 {
					log.Println("usage: register <username> [email]")
					continue
				}
				email := ""
				if len(fields) > 2 {
					email = fields[2]
				}
				err = send(c, "register", map[string]string{"username": fields[1], "email": email})
			case "create":
				name := strings.Join(fields[1:], " ")
				err = send(c, "create_room", map[string]interface{}{"name": name})
			case "join":
				if len(fields) < 2 {
					log.Println("usage: join <CODE>")
					continue
				}
				err = send(c, "join_room", map[string]string{"roomId": strings.ToUpper(fields[1])})
			default:
				log.Printf("Unknown command %q", fields[0])
				continue
			}

			if err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT %s", fields[0])
		}
	}
}
