package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/eval-bench/eval-bench/internal/progress"
	"github.com/eval-bench/eval-bench/internal/queue"
	"github.com/eval-bench/eval-bench/internal/runstore"
	"github.com/eval-bench/eval-bench/pkg/api"
	"github.com/gorilla/websocket"
)

const (
	messageTypeRunProgress = "run_progress"
	messageTypeQueueState  = "queue_state"
)

// RunProgressEvent is the run level payload pushed over the stream. It is a
// reduced view of the run: subscribers that need the full log fetch the run
// snapshot over REST.
type RunProgressEvent struct {
	RunID     string               `json:"run_id"`
	Status    api.State            `json:"status"`
	Progress  api.ProgressSnapshot `json:"progress"`
	LogLength int                  `json:"log_length"`
	LastLine  string               `json:"last_line,omitempty"`
	Error     *api.MessageInfo     `json:"error,omitempty"`
}

// Gateway is the single read side of the run store and the scheduler. Both
// the snapshot endpoints and the websocket stream are views assembled here,
// from the same source of truth, so the two paths can never disagree about
// anything other than timing.
type Gateway struct {
	logger    *slog.Logger
	store     *runstore.Store
	scheduler *queue.Scheduler
	hub       *Hub
	heartbeat time.Duration
	events    chan outbound
	done      chan struct{}
}

// outbound pairs a stream message with the run id the hub filters on; an
// empty run id marks a queue level message delivered to every subscriber.
type outbound struct {
	runID string
	msg   StreamMessage
}

func NewGateway(logger *slog.Logger, store *runstore.Store, scheduler *queue.Scheduler, heartbeat time.Duration) *Gateway {
	return &Gateway{
		logger:    logger,
		store:     store,
		scheduler: scheduler,
		hub:       newHub(logger),
		heartbeat: heartbeat,
		events:    make(chan outbound, 256),
		done:      make(chan struct{}),
	}
}

// Start launches the broadcast loop. Notify hooks fire while the store or
// scheduler lock is held, so they only enqueue; the actual websocket writes,
// which can block on a slow peer, happen here. Close stops the loop.
func (g *Gateway) Start() {
	go func() {
		ticker := time.NewTicker(g.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case ev := <-g.events:
				g.hub.broadcast(ev.runID, ev.msg)
			case <-ticker.C:
				g.hub.ping()
			case <-g.done:
				return
			}
		}
	}()
}

func (g *Gateway) Close() {
	close(g.done)
}

// RunView assembles the snapshot of a single run: the stored record plus
// progress derived from its log at read time.
func (g *Gateway) RunView(runID string) (*api.RunView, error) {
	record, err := g.store.Get(runID)
	if err != nil {
		return nil, err
	}
	return &api.RunView{
		RunRecord: *record,
		Progress:  progress.Derive(record.Log),
	}, nil
}

// RunViews assembles snapshots for every known run, newest submission last.
func (g *Gateway) RunViews() []api.RunView {
	records := g.store.List()
	views := make([]api.RunView, 0, len(records))
	for _, record := range records {
		views = append(views, api.RunView{
			RunRecord: *record,
			Progress:  progress.Derive(record.Log),
		})
	}
	return views
}

// QueueView returns the scheduler's current queue state.
func (g *Gateway) QueueView() api.QueueState {
	return g.scheduler.State()
}

// OnRunEvent is the run store's notify hook. It reads only the store: the
// hook can fire while the scheduler holds its own lock, so touching the
// scheduler here is off limits. Queue level updates arrive through
// OnQueueChanged instead.
func (g *Gateway) OnRunEvent(ev runstore.Event) {
	record, err := g.store.Get(ev.RunID)
	if err != nil {
		return
	}

	payload := RunProgressEvent{
		RunID:     record.ID,
		Status:    record.Status,
		Progress:  progress.Derive(record.Log),
		LogLength: len(record.Log),
		Error:     record.Error,
	}
	if len(record.Log) > 0 {
		payload.LastLine = record.Log[len(record.Log)-1].Text
	}

	g.enqueue(record.ID, StreamMessage{
		Type:      messageTypeRunProgress,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	})
}

// OnQueueChanged is the scheduler's notify hook, invoked outside the
// scheduler lock whenever queue composition or status changed.
func (g *Gateway) OnQueueChanged() {
	g.enqueue("", StreamMessage{
		Type:      messageTypeQueueState,
		Data:      g.scheduler.State(),
		Timestamp: time.Now().UTC(),
	})
}

// enqueue hands a message to the broadcast loop without blocking the caller.
// When the buffer is full the message is dropped: every message carries a
// full snapshot, so the next event supersedes it and polling clients are
// unaffected either way.
func (g *Gateway) enqueue(runID string, msg StreamMessage) {
	select {
	case g.events <- outbound{runID: runID, msg: msg}:
	default:
		g.logger.Warn("Stream buffer full, dropping update", "type", msg.Type)
	}
}

// HandleWebSocket upgrades the request and registers the subscriber. An
// optional run_id query parameter narrows run_progress messages to one run;
// queue_state messages are always delivered. The initial queue state is
// pushed on connect so the client starts from a consistent baseline.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("Websocket upgrade failed", "error", err.Error())
		return
	}

	c := &client{
		conn:  conn,
		runID: r.URL.Query().Get("run_id"),
	}
	g.hub.add(c)

	initial := StreamMessage{
		Type:      messageTypeQueueState,
		Data:      g.scheduler.State(),
		Timestamp: time.Now().UTC(),
	}
	if data, err := json.Marshal(initial); err == nil {
		if err := c.write(websocket.TextMessage, data); err != nil {
			g.hub.remove(c)
			return
		}
	}

	go g.hub.readPump(c)
}
