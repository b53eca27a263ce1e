package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"tasktracker/internal/models"
	"tasktracker/pkg/logger"
	"tasktracker/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	EventTaskMoved       = "task_moved"
	EventReceiveTaskMove = "receive_task_move"
)

// Envelope is the frame format on the board channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// MoveRequest is the single-move form of task_moved. Either id or _id names the task.
type MoveRequest struct {
	ID       string            `json:"id"`
	LegacyID string            `json:"_id"`
	Status   models.TaskStatus `json:"status"`
	Index    *int              `json:"index"`
}

func (m MoveRequest) TaskID() string {
	if m.ID != "" {
		return m.ID
	}
	return m.LegacyID
}

type Mode string

const (
	// ModeReplace keeps the server board in step with what clients broadcast.
	ModeReplace Mode = "replace"
	// ModeRelay only retransmits frames and keeps no state.
	ModeRelay Mode = "relay"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeReplace, "":
		return ModeReplace, nil
	case ModeRelay:
		return ModeRelay, nil
	default:
		return "", fmt.Errorf("unknown sync mode %q", s)
	}
}

// Board is the task state the syncer applies moves to.
type Board interface {
	Replace(tasks []models.Task)
	Move(id string, status models.TaskStatus, index *int) ([]models.Task, error)
}

var errBadMove = errors.New("malformed task move")

// Syncer turns inbound task_moved frames into receive_task_move broadcasts.
type Syncer struct {
	hub   *Hub
	board Board
	mode  Mode
}

func NewSyncer(hub *Hub, board Board, mode Mode) *Syncer {
	return &Syncer{hub: hub, board: board, mode: mode}
}

// Handle processes one frame received from a subscriber. Nothing is sent back to from.
func (s *Syncer) Handle(from Subscriber, raw []byte) {
	var env Envelope
	err := json.Unmarshal(raw, &env)
	if s.mode == ModeRelay && (err != nil || env.Event != EventTaskMoved) {
		metrics.TaskMoves.WithLabelValues("relay").Inc()
		s.hub.Broadcast(from, raw)
		return
	}
	if err != nil || env.Event == "" {
		logger.SystemLogger.Warn("Ignoring malformed realtime frame", zap.Int("bytes", len(raw)))
		return
	}
	if env.Event != EventTaskMoved {
		logger.SystemLogger.Info("Ignoring unknown realtime event", zap.String("event", env.Event))
		return
	}

	out := Envelope{Event: EventReceiveTaskMove, Data: env.Data}
	kind := "relay"
	if s.mode == ModeReplace {
		data, k, err := s.apply(env.Data)
		if err != nil {
			logger.SystemLogger.Warn("Rejected task move", zap.Error(err))
			return
		}
		out.Data, kind = data, k
	}

	payload, err := json.Marshal(out)
	if err != nil {
		logger.ErrorLogger.Error("Error encoding task move", zap.Error(err))
		return
	}
	metrics.TaskMoves.WithLabelValues(kind).Inc()
	s.hub.Broadcast(from, payload)
}

// apply updates the board and returns the data to relay. A full list is relayed
// verbatim; a single move is answered with the resulting full list.
func (s *Syncer) apply(data json.RawMessage) (json.RawMessage, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var tasks []models.Task
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			logger.SystemLogger.Warn("Relaying task list the board could not adopt", zap.Error(err))
			return data, "replace", nil
		}
		s.board.Replace(tasks)
		return data, "replace", nil
	}

	var req MoveRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, "", fmt.Errorf("%w: %v", errBadMove, err)
	}
	if req.TaskID() == "" {
		return nil, "", fmt.Errorf("%w: missing task id", errBadMove)
	}
	if req.Status != "" && !req.Status.Valid() {
		return nil, "", fmt.Errorf("%w: invalid status %q", errBadMove, req.Status)
	}
	list, err := s.board.Move(req.TaskID(), req.Status, req.Index)
	if err != nil {
		return nil, "", err
	}
	out, err := json.Marshal(list)
	if err != nil {
		return nil, "", err
	}
	return out, "move", nil
}

// Upgrade lets only websocket upgrade requests through to Handler.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler serves one board connection for its whole lifetime.
func (s *Syncer) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		client := NewClient(c)
		if !s.hub.Register(client) {
			return
		}
		defer s.hub.Unregister(client)

		logger.SystemLogger.Info("Board client connected", zap.String("remote", c.RemoteAddr().String()))
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				break
			}
			if messageType == websocket.TextMessage {
				s.Handle(client, message)
			}
		}
		logger.SystemLogger.Info("Board client disconnected", zap.String("remote", c.RemoteAddr().String()))
	})
}
