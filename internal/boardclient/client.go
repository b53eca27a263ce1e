// Package boardclient is a Go rendition of the browser board view: it keeps a
// local copy of the task list, applies drags optimistically, and converges on
// whatever the realtime channel broadcasts.
package boardclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"tasktracker/internal/models"
	realtime "tasktracker/internal/websocket"
	"tasktracker/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrIndexOutOfRange = errors.New("task index out of range")

// Columns is the render order of the board.
var Columns = []models.TaskStatus{models.StatusToDo, models.StatusInProgress, models.StatusClosed, models.StatusFrozen}

type Client struct {
	baseURL string
	conn    *websocket.Conn
	timeout time.Duration

	mu    sync.RWMutex
	tasks []models.Task

	writeMu sync.Mutex
	patches sync.WaitGroup

	updates chan []models.Task
}

// Dial connects to the board channel of the server at baseURL (http://host:port).
func Dial(ctx context.Context, baseURL string) (*Client, error) {
	wsURL, err := channelURL(baseURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		conn:    conn,
		timeout: 5 * time.Second,
		updates: make(chan []models.Task, 16),
	}, nil
}

func channelURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Refresh replaces the local list with GET /api/tasks.
func (c *Client) Refresh() error {
	var tasks []models.Task
	code, body, errs := fiber.Get(c.baseURL + "/api/tasks").Timeout(c.timeout).Struct(&tasks)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("list tasks: status %d: %s", code, body)
	}
	c.setTasks(tasks)
	return nil
}

// Tasks returns a copy of the local list.
func (c *Client) Tasks() []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Board groups the local list by column, keeping list order inside each column.
func (c *Client) Board() map[models.TaskStatus][]models.Task {
	board := make(map[models.TaskStatus][]models.Task, len(Columns))
	for _, t := range c.Tasks() {
		board[t.Status] = append(board[t.Status], t)
	}
	return board
}

// Updates delivers the list each time a broadcast replaced it. Slow readers miss updates.
func (c *Client) Updates() <-chan []models.Task { return c.updates }

func (c *Client) setTasks(tasks []models.Task) {
	c.mu.Lock()
	c.tasks = tasks
	c.mu.Unlock()
}

// Move drags the task at srcIndex into column status at dstIndex. The local
// list changes at once and is broadcast; the status PATCH runs in the
// background and its failure is only logged.
func (c *Client) Move(srcIndex int, status models.TaskStatus, dstIndex int) error {
	c.mu.Lock()
	if srcIndex < 0 || srcIndex >= len(c.tasks) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}
	task := c.tasks[srcIndex]
	task.Status = status

	rest := make([]models.Task, 0, len(c.tasks))
	rest = append(rest, c.tasks[:srcIndex]...)
	rest = append(rest, c.tasks[srcIndex+1:]...)
	if dstIndex < 0 {
		dstIndex = 0
	}
	if dstIndex > len(rest) {
		dstIndex = len(rest)
	}
	next := make([]models.Task, 0, len(c.tasks))
	next = append(next, rest[:dstIndex]...)
	next = append(next, task)
	next = append(next, rest[dstIndex:]...)
	c.tasks = next
	snapshot := make([]models.Task, len(next))
	copy(snapshot, next)
	c.mu.Unlock()

	if err := c.emit(snapshot); err != nil {
		return err
	}

	c.patches.Add(1)
	go func() {
		defer c.patches.Done()
		if err := c.patchStatus(task.ID, status); err != nil {
			logger.SystemLogger.Warn("Task status patch failed", zap.String("task_id", task.ID), zap.Error(err))
		}
	}()
	return nil
}

func (c *Client) emit(tasks []models.Task) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(realtime.Envelope{Event: realtime.EventTaskMoved, Data: data})
}

func (c *Client) patchStatus(id string, status models.TaskStatus) error {
	code, body, errs := fiber.Patch(c.baseURL + "/api/tasks/" + url.PathEscape(id)).
		Timeout(c.timeout).
		JSON(fiber.Map{"status": status}).
		Bytes()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("patch task: status %d: %s", code, body)
	}
	return nil
}

// WaitPatches blocks until every background PATCH has finished.
func (c *Client) WaitPatches() { c.patches.Wait() }

// Listen applies receive_task_move broadcasts until ctx ends or the connection drops.
func (c *Client) Listen(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.Close()
		case <-stop:
		}
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.apply(raw)
	}
}

func (c *Client) apply(raw []byte) {
	var env realtime.Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event != realtime.EventReceiveTaskMove {
		return
	}
	var tasks []models.Task
	if err := json.Unmarshal(env.Data, &tasks); err != nil {
		logger.SystemLogger.Warn("Ignoring task move without a task list", zap.Error(err))
		return
	}
	c.setTasks(tasks)

	select {
	case c.updates <- tasks:
	default:
	}
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
