package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bravo-music/live/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func Listen(ctx context.Context, c *cobra.Command) error {
	addr, _ := c.Flags().GetString("addr")
	roomID, _ := c.Flags().GetString("room")

	if strings.TrimSpace(roomID) == "" {
		prompt := promptui.Prompt{
			Label: "Room ID",
			Validate: func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("room id is required")
				}
				return nil
			},
		}

		id, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("prompt.Run: %w", err)
		}
		roomID = id
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("websocket.DialContext: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	if err := send(conn, domain.EventJoinRoom, domain.JoinRoom{RoomID: strings.TrimSpace(roomID)}); err != nil {
		return err
	}

	err = receiveMessages(conn, os.Stdout)
	if ctx.Err() != nil {
		return nil
	}

	return err
}

func send(conn *websocket.Conn, eventType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := conn.WriteJSON(envelope{Type: eventType, Payload: b}); err != nil {
		return fmt.Errorf("conn.WriteJSON: %w", err)
	}

	return nil
}

// receiveMessages prints the room until the host ends the session or the
// connection drops. Initial snapshots are acknowledged.
func receiveMessages(conn *websocket.Conn, out io.Writer) error {
	for {
		var msg envelope
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("conn.ReadJSON: %w", err)
		}

		switch msg.Type {
		case domain.MessageRoomJoined:
			fmt.Fprintln(out, "You joined the room")
		case domain.MessageSessionNotFound:
			return domain.ErrSessionNotFound
		case domain.MessageLiveSync:
			var p domain.LiveSyncPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return fmt.Errorf("json.Unmarshal: %w", err)
			}

			if p.Track == nil {
				fmt.Fprintf(out, "%s ended the session\n", hostName(p.User))
				return nil
			}

			fmt.Fprintf(out, "%s is playing %s by %s at %s\n", hostName(p.User), p.Track.Name, p.Track.Artist, position(p.CurrentTime))

			if p.InitialSync {
				if err := send(conn, domain.EventSyncReceived, domain.SyncReceived{RoomID: p.RoomID}); err != nil {
					return err
				}
			}
		case domain.MessagePlayStateChanged:
			var p domain.PlayStatePayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return fmt.Errorf("json.Unmarshal: %w", err)
			}

			if p.IsPaused {
				fmt.Fprintln(out, "Paused")
			} else {
				fmt.Fprintln(out, "Playing")
			}
		case domain.MessageTimeUpdate:
			var p domain.TimeUpdatePayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return fmt.Errorf("json.Unmarshal: %w", err)
			}

			fmt.Fprintf(out, "Seeked to %s\n", position(p.CurrentTime))
		}
	}
}

func hostName(u domain.User) string {
	if u.Name != "" {
		return u.Name
	}

	return u.Email
}

func position(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
