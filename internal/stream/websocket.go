package stream

import (
	"time"

	"github.com/gorilla/websocket"
)

// WSEmitter writes each event as one JSON text message.
type WSEmitter struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// NewWSEmitter creates an emitter on an upgraded connection. A zero
// writeTimeout means writes never time out.
func NewWSEmitter(conn *websocket.Conn, writeTimeout time.Duration) *WSEmitter {
	return &WSEmitter{conn: conn, writeTimeout: writeTimeout}
}

func (e *WSEmitter) Emit(ev Event) error {
	if e.writeTimeout > 0 {
		if err := e.conn.SetWriteDeadline(time.Now().Add(e.writeTimeout)); err != nil {
			return err
		}
	}
	return e.conn.WriteJSON(ev)
}
