// Package ws serves observers and controllers over WebSocket: one HELLO,
// then a stream of SYNC/EFFECT/HUD with CMD/ACK interleaved.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelforge.ai/internal/protocol"
	"voxelforge.ai/internal/sim/world"
)

const (
	defaultQueue = 64
	maxQueue     = 1024
	ackQueue     = 64

	handshakeTimeout = 5 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second
)

type Server struct {
	world *world.World
	log   zerolog.Logger

	// cmdSchema, when set, validates every CMD before it reaches the world.
	cmdSchema *jsonschema.Schema

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, log zerolog.Logger, cmdSchema *jsonschema.Schema) *Server {
	return &Server{
		world:     w,
		log:       log.With().Str("component", "ws").Logger(),
		cmdSchema: cmdSchema,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// LoadCommandSchema compiles cmd.schema.json from dir.
func LoadCommandSchema(dir string) (*jsonschema.Schema, error) {
	s, err := jsonschema.Compile(filepath.Join(dir, "cmd.schema.json"))
	if err != nil {
		return nil, eris.Wrapf(err, "compile command schema in %s", dir)
	}
	return s, nil
}

type bootstrapResponse struct {
	Welcome      protocol.WelcomeMsg `json:"welcome"`
	BlockPalette []string            `json:"block_palette"`
	ItemPalette  []string            `json:"item_palette"`
}

// BootstrapHandler lets tools fetch world params and palettes over plain HTTP.
func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		resp := bootstrapResponse{
			Welcome:      s.world.Bootstrap(),
			BlockPalette: s.world.BlockPalette(),
			ItemPalette:  s.world.ItemPalette(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}
		log := s.log.With().Str("session", sessionID).Logger()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		acks := make(chan protocol.AckMsg, ackQueue)

		// Writer goroutine: the only goroutine that writes to conn after the handshake.
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-out:
					if !ok {
						return
					}
					b = msg
				case ack := <-acks:
					enc, err := json.Marshal(ack)
					if err != nil {
						log.Error().Err(err).Msg("encode ack")
						continue
					}
					b = enc
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			if reject, ok := s.admit(sessionID, msg, acks); !ok {
				pushAck(acks, reject)
				log.Debug().Str("code", reject.Code).Str("cmd_id", reject.AckFor).Msg("command rejected at transport")
			}
		}

		// Cleanup.
		select {
		case s.world.Leave() <- sessionID:
		case <-time.After(time.Second):
			log.Warn().Msg("leave not delivered")
		}
	}
}

// admit decodes one client message and forwards CMDs to the world. When it
// returns false the ACK it returns must be sent to the client instead.
func (s *Server) admit(sessionID string, msg []byte, acks chan<- protocol.AckMsg) (protocol.AckMsg, bool) {
	tick := s.world.CurrentTick()
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.RejectAck("", tick, protocol.ErrProtoBadRequest, "bad message"), false
	}
	if base.Type != protocol.TypeCmd {
		// Observers may send other frames (e.g. a repeated HELLO); they carry no command.
		return protocol.AckMsg{}, true
	}
	var cmd protocol.CommandMsg
	if err := json.Unmarshal(msg, &cmd); err != nil {
		return protocol.RejectAck("", tick, protocol.ErrProtoBadRequest, "bad CMD"), false
	}
	if cmd.ProtocolVersion != protocol.Version {
		return protocol.RejectAck(cmd.ID, tick, protocol.ErrProtoBadRequest, "bad protocol_version"), false
	}
	if cmd.ID == "" {
		return protocol.RejectAck("", tick, protocol.ErrProtoBadRequest, "missing id"), false
	}
	if s.cmdSchema != nil {
		var generic any
		if err := json.Unmarshal(msg, &generic); err != nil {
			return protocol.RejectAck(cmd.ID, tick, protocol.ErrProtoBadRequest, "bad CMD"), false
		}
		if err := s.cmdSchema.Validate(generic); err != nil {
			return protocol.RejectAck(cmd.ID, tick, protocol.ErrProtoBadRequest, err.Error()), false
		}
	}

	select {
	case s.world.Inbox() <- world.CommandEnvelope{SessionID: sessionID, Cmd: cmd, Resp: acks}:
		return protocol.AckMsg{}, true
	default:
		return protocol.RejectAck(cmd.ID, tick, protocol.ErrWorldBusy, "world inbox full"), false
	}
}

func pushAck(acks chan<- protocol.AckMsg, ack protocol.AckMsg) {
	select {
	case acks <- ack:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", nil
	}
	if hello.ObserverName == "" {
		hello.ObserverName = "observer"
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = defaultQueue
	}
	if maxQ > maxQueue {
		maxQ = maxQueue
	}
	out = make(chan []byte, maxQ)

	sessionID = uuid.NewString()
	respCh := make(chan world.JoinResponse, 1)
	select {
	case s.world.Join() <- world.JoinRequest{SessionID: sessionID, Name: hello.ObserverName, Out: out, Resp: respCh}:
	case <-time.After(handshakeTimeout):
		closeWith(conn, "world unavailable")
		return "", nil
	}
	var resp world.JoinResponse
	select {
	case resp = <-respCh:
	case <-time.After(handshakeTimeout):
		closeWith(conn, "world unavailable")
		return "", nil
	}

	if err := writeJSON(conn, resp.Welcome); err != nil {
		return "", nil
	}
	s.log.Info().Str("session", sessionID).Str("name", hello.ObserverName).Int("max_queue", maxQ).Msg("session open")
	return sessionID, out
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "encode")
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return eris.Wrap(conn.WriteMessage(websocket.TextMessage, b), "write")
}
