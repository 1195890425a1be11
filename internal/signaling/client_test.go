package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts one client, answers its registration and hands every
// later message to the test.
func fakeServer(t *testing.T, script func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		script(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRegisterAndRelay(t *testing.T) {
	got := make(chan Message, 4)
	url := fakeServer(t, func(conn *websocket.Conn) {
		var reg Message
		if err := conn.ReadJSON(&reg); err != nil {
			return
		}
		got <- reg
		conn.WriteJSON(Message{Type: TypeRegistered})
		conn.WriteJSON(Message{Type: TypeSourcesUpdated, List: []SourceInfo{{ID: "cam", Online: true}}})
		conn.WriteJSON(Message{Type: TypeOffer, From: "viewer-1", Payload: json.RawMessage(`{"sdp":"x"}`)})

		var answer Message
		if err := conn.ReadJSON(&answer); err != nil {
			return
		}
		got <- answer
	})

	registered := make(chan struct{})
	sources := make(chan []SourceInfo, 1)
	offers := make(chan string, 1)
	var c *Client
	c = NewClient(url, "source-1", ClientTypeSource, Handler{
		OnRegistered:     func() { close(registered) },
		OnSourcesUpdated: func(list []SourceInfo) { sources <- list },
		OnOffer: func(from string, payload json.RawMessage) {
			offers <- from
			c.SendAnswer(from, payload)
		},
	})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	reg := <-got
	assert.Equal(t, TypeRegister, reg.Type)
	assert.Equal(t, "source-1", reg.ID)
	assert.Equal(t, ClientTypeSource, reg.ClientType)

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("not registered")
	}
	assert.Equal(t, []SourceInfo{{ID: "cam", Online: true}}, <-sources)
	assert.Equal(t, "viewer-1", <-offers)

	answer := <-got
	assert.Equal(t, TypeAnswer, answer.Type)
	assert.Equal(t, "viewer-1", answer.Target)
	assert.JSONEq(t, `{"sdp":"x"}`, string(answer.Payload))
}

func TestDoneOnServerClose(t *testing.T) {
	url := fakeServer(t, func(conn *websocket.Conn) {
		var reg Message
		conn.ReadJSON(&reg)
	})
	c := NewClient(url, "viewer-1", ClientTypeViewer, Handler{})
	require.NoError(t, c.Connect(context.Background()))

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done not closed after server hung up")
	}
	assert.ErrorIs(t, c.SendOffer("x", nil), ErrNotConnected)
	c.Close()
}

func TestConnectFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c := NewClient("ws://127.0.0.1:1", "v", ClientTypeViewer, Handler{})
	assert.ErrorContains(t, c.Connect(ctx), "signaling dial")
	assert.ErrorIs(t, c.RequestSourceList(), ErrNotConnected)
}
