package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"playerworld.gg/internal/protocol"
	"playerworld.gg/internal/sim/game"
)

// Server adapts websocket connections to the game's channel API. It never
// touches game state directly: handshakes go through Connect(), traffic
// through Inbox(), teardown through Leave().
type Server struct {
	game *game.Game
	log  *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(g *game.Game, logger *log.Logger) *Server {
	return &Server{
		game: g,
		log:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out := make(chan []byte, 64)
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		authenticated := false
		var clientID uint64

		for {
			deadline := 10 * time.Second
			if authenticated {
				deadline = 60 * time.Second
			}
			_ = conn.SetReadDeadline(time.Now().Add(deadline))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}

			if !authenticated {
				// Anything but a handshake from an unauthenticated
				// connection is dropped silently.
				if base.Type != protocol.TypeHandshake {
					continue
				}
				var hs protocol.HandshakeMsg
				if err := json.Unmarshal(msg, &hs); err != nil {
					continue
				}
				resp := s.handshake(hs, out)
				if b, err := json.Marshal(resp.Resp); err == nil {
					select {
					case out <- b:
					case <-ctx.Done():
					}
				}
				if resp.Resp.Success {
					authenticated = true
					clientID = resp.ClientID
				}
				// On failure the connection stays open; the client may
				// retry or close.
				continue
			}

			if base.Type == protocol.TypeHandshake {
				continue // already authenticated
			}
			s.game.Inbox() <- game.ClientEnvelope{ClientID: clientID, Base: base, Raw: msg}
			if base.Type == protocol.TypeDisconnect {
				return // Leave is handled by the game on DISCONNECT
			}
		}

		if authenticated {
			s.game.Leave() <- clientID
		}
	}
}

func (s *Server) handshake(hs protocol.HandshakeMsg, out chan []byte) game.ConnectResponse {
	respCh := make(chan game.ConnectResponse, 1)
	s.game.Connect() <- game.ConnectRequest{Handshake: hs, Out: out, Resp: respCh}
	return <-respCh
}
