// Package websocket pushes drawing changes to connected Socket.IO clients.
package websocket

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	// DrawingsRoom is joined by every client on connection.
	DrawingsRoom = socketio.Room("drawings")
	// ChangedEvent carries a ChangeMessage.
	ChangedEvent = "drawing-changed"
)

type ChangeMessage struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

var connected atomic.Int64

// ConnectedClients returns the number of clients in DrawingsRoom.
func ConnectedClients() int64 {
	return connected.Load()
}

func SetupSocketIO(allowedOrigins []string) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	origins := make([]any, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins = append(origins, o)
	}
	opts.SetCors(&types.Cors{
		Origin:      origins,
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		socket.Join(DrawingsRoom)
		n := connected.Add(1)
		utils.Log().Printf("socket %v joined %v (%d connected)\n", socket.Id(), DrawingsRoom, n)

		//nolint:errcheck
		socket.On("disconnect", func(...any) {
			connected.Add(-1)
			socket.RemoveAllListeners("")
		})
	})
	return srv
}

// Notifier emits ChangedEvent to DrawingsRoom.
type Notifier struct {
	emit func(event string, payload any) error
}

func NewNotifier(srv *socketio.Server) *Notifier {
	return newNotifier(func(event string, payload any) error {
		return srv.To(DrawingsRoom).Emit(event, payload)
	})
}

func newNotifier(emit func(event string, payload any) error) *Notifier {
	return &Notifier{emit: emit}
}

func (n *Notifier) DrawingChanged(action, id string) {
	msg := ChangeMessage{Action: action, ID: id}
	if err := n.emit(ChangedEvent, msg); err != nil {
		logrus.WithFields(logrus.Fields{"action": action, "drawing_id": id}).WithError(err).Warn("Failed to broadcast drawing change")
	}
}
