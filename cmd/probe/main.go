// Probe is a terminal client for poking a running relay: emit events on
// the HTTP bridge, or watch a room and tally what arrives.
//
// Emit a check-in:
//
//	probe -addr localhost:4001 -emit attendance:checkin -data '{"employee_id":"emp42"}'
//
// Watch an employee's timer room until Ctrl-C:
//
//	probe -addr localhost:4001 -employee emp42
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	addr := flag.String("addr", "localhost:4001", "relay host:port")
	room := flag.String("room", "", "conversation room to join")
	employee := flag.String("employee", "", "employee id to watch attendance for")
	emitEvent := flag.String("emit", "", "event name to emit instead of watching")
	data := flag.String("data", "{}", "JSON payload for -emit")
	flag.Parse()

	if *emitEvent != "" {
		if err := emit(*addr, *emitEvent, *data); err != nil {
			color.Red.Println(err)
			os.Exit(1)
		}
		return
	}

	if err := watch(*addr, *room, *employee); err != nil {
		color.Red.Println(err)
		os.Exit(1)
	}
}

func emit(addr, event, data string) error {
	body, err := json.Marshal(map[string]json.RawMessage{
		"event": json.RawMessage(fmt.Sprintf("%q", event)),
		"data":  json.RawMessage(data),
	})
	if err != nil {
		return fmt.Errorf("invalid -data payload: %w", err)
	}

	resp, err := http.Post(fmt.Sprintf("http://%s/emit", addr), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("emit failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay refused the event: %s", resp.Status)
	}
	color.Green.Printf("Emitted %s\n", event)
	return nil
}

func watch(addr, room, employee string) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer conn.Close()

	if room != "" {
		send(conn, "join_conversation", map[string]string{"conversation_id": room})
		color.Cyan.Printf("Joined room %s\n", room)
	}
	if employee != "" {
		send(conn, "attendance:subscribe", map[string]string{"employee_id": employee})
		color.Cyan.Printf("Watching attendance for %s\n", employee)
	}

	counts := map[string]int{}
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			counts[f.Event]++
			color.Yellow.Printf("%-28s", f.Event)
			fmt.Println(string(f.Data))
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	select {
	case <-interrupt:
	case <-done:
	}

	summarize(counts)
	return nil
}

func send(conn *websocket.Conn, action string, data any) {
	_ = conn.WriteJSON(map[string]any{"action": action, "data": data})
}

func summarize(counts map[string]int) {
	if len(counts) == 0 {
		color.Gray.Println("No events received")
		return
	}

	events := make([]string, 0, len(counts))
	for event := range counts {
		events = append(events, event)
	}
	sort.Strings(events)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Event", "Count"})
	for _, event := range events {
		table.Append([]string{event, fmt.Sprintf("%d", counts[event])})
	}
	table.Render()
}
