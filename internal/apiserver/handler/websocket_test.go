package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantierhq/chantier/internal/apiserver/database"
	"github.com/chantierhq/chantier/internal/apiserver/realtime"
)

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *realtime.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg realtime.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return &msg
}

func TestWebSocketHandshakeRequiresToken(t *testing.T) {
	e := newTestEnv(t)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestWebSocketRoomBroadcast(t *testing.T) {
	e := newTestEnv(t)
	owner, ownerToken := e.createUser("owner", database.RoleMember)
	buddy, buddyToken := e.createUser("buddy", database.RoleMember)
	p := e.createProject("site", owner.ID)
	require.NoError(t, e.db.AddProjectMember(context.Background(), &database.ProjectMember{
		ProjectID: p.ID, UserID: buddy.ID, Permissions: database.Permissions{Read: true},
	}))

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ownerConn := dialWS(t, srv, ownerToken)
	buddyConn := dialWS(t, srv, buddyToken)

	join := func(conn *websocket.Conn) {
		require.NoError(t, conn.WriteJSON(realtime.Message{
			Event: "join-project",
			Data:  map[string]any{"projectId": p.ID},
		}))
	}
	join(ownerConn)
	join(buddyConn)

	// joins are processed asynchronously by the read loop
	require.Eventually(t, func() bool {
		return e.hub.RoomSize(p.ID) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ownerConn.WriteJSON(realtime.Message{
		Event: "task-update",
		Data:  map[string]any{"projectId": p.ID, "taskId": 12},
	}))

	msg := readEvent(t, buddyConn)
	assert.Equal(t, "task-updated", msg.Event)
	assert.Equal(t, float64(p.ID), msg.Data["projectId"])

	// the sender does not get its own frame back
	require.NoError(t, ownerConn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var echo realtime.Message
	assert.Error(t, ownerConn.ReadJSON(&echo))
}

func TestWebSocketCursorMoveStampsSender(t *testing.T) {
	e := newTestEnv(t)
	owner, ownerToken := e.createUser("owner", database.RoleMember)
	buddy, buddyToken := e.createUser("buddy", database.RoleMember)
	p := e.createProject("site", owner.ID)
	require.NoError(t, e.db.AddProjectMember(context.Background(), &database.ProjectMember{
		ProjectID: p.ID, UserID: buddy.ID, Permissions: database.Permissions{Read: true},
	}))

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	ownerConn := dialWS(t, srv, ownerToken)
	buddyConn := dialWS(t, srv, buddyToken)
	for _, conn := range []*websocket.Conn{ownerConn, buddyConn} {
		require.NoError(t, conn.WriteJSON(realtime.Message{
			Event: "join-project",
			Data:  map[string]any{"projectId": p.ID},
		}))
	}
	require.Eventually(t, func() bool {
		return e.hub.RoomSize(p.ID) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ownerConn.WriteJSON(realtime.Message{
		Event: "cursor-move",
		Data:  map[string]any{"projectId": p.ID, "x": 10, "y": 20},
	}))

	msg := readEvent(t, buddyConn)
	assert.Equal(t, "cursor-moved", msg.Event)
	assert.Equal(t, float64(owner.ID), msg.Data["userId"])
	assert.Equal(t, "owner", msg.Data["username"])
}

func TestWebSocketJoinDeniedForOutsiders(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.createUser("owner", database.RoleMember)
	_, strangerToken := e.createUser("stranger", database.RoleMember)
	p := e.createProject("site", owner.ID)

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	conn := dialWS(t, srv, strangerToken)
	require.NoError(t, conn.WriteJSON(realtime.Message{
		Event: "join-project",
		Data:  map[string]any{"projectId": p.ID},
	}))

	// the join is refused, so the room stays empty
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, e.hub.RoomSize(p.ID))
}
