// Package designer holds editor sessions: one workflow graph per session,
// edited synchronously, loaded and saved through a persistence client.
//
// At most one save per session is in flight. A save works on the snapshot
// taken when it was requested; edits made meanwhile go into the next save.
// A successful load replaces the graph atomically; a failed one keeps the
// previous graph. Results arriving after Close, or for a load superseded by
// a later one, are discarded.
package designer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/events"
	"github.com/dukex/docflow/pkg/graph"
	"github.com/dukex/docflow/pkg/log"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/otelhelper"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/registry"
	"github.com/dukex/docflow/pkg/serializer"
	"github.com/dukex/docflow/pkg/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Session.
type Option func(*Session)

// WithPublisher sets the bus that receives WorkflowSaved and WorkflowLoaded events.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(s *Session) {
		s.publisher = publisher
	}
}

// WithTracer sets the tracer used for save and load spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) {
		s.tracer = tracer
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithRegistry sets the step type catalogue for the session's graphs.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Session) {
		s.registry = r
	}
}

// WithIDGenerator sets the id generator for steps and connections.
func WithIDGenerator(newID func() string) Option {
	return func(s *Session) {
		s.newID = newID
	}
}

// WithSessionID sets the session id. Defaults to a random UUID.
func WithSessionID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// Status is a point-in-time view of a session.
type Status struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflowId,omitempty"`
	Saving     bool   `json:"saving"`
	Loading    bool   `json:"loading"`
	Dirty      bool   `json:"dirty"`
	LastError  string `json:"lastError,omitempty"`
}

// Session is one editor session over one workflow graph. It is safe for
// concurrent use.
type Session struct {
	id        string
	client    persistence.Client
	publisher eventbus.EventPublisher
	tracer    trace.Tracer
	logger    *slog.Logger
	registry  *registry.Registry
	validator *validation.Validator
	newID     func() string

	mu         sync.Mutex
	graph      *graph.Graph
	workflowID string
	closed     bool
	saving     bool
	loadSeq    uint64 // Incremented per Load; a load applies only if still current
	loading    int
	generation uint64 // Incremented when Load replaces the graph
	revision   uint64 // Incremented per successful Edit
	savedRev   uint64
	lastErr    error
}

// NewSession creates a session holding a new, empty workflow.
func NewSession(client persistence.Client, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		client:   client,
		tracer:   otelhelper.DefaultTracer("docflow/designer"),
		logger:   log.WithModule("designer"),
		registry: registry.Default,
		newID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("session_id", s.id)
	s.validator = validation.New(s.registry)
	s.graph = s.newGraph()

	return s
}

func (s *Session) newGraph() *graph.Graph {
	return graph.New(graph.WithRegistry(s.registry), graph.WithIDGenerator(s.newID))
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Registry returns the step type catalogue of the session.
func (s *Session) Registry() *registry.Registry {
	return s.registry
}

// Status returns the current session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		ID:         s.id,
		WorkflowID: s.workflowID,
		Saving:     s.saving,
		Loading:    s.loading > 0,
		Dirty:      s.revision != s.savedRev,
	}

	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}

	return status
}

// Edit runs fn against the session graph. Edits are serialised with each
// other and with snapshots taken by Save.
func (s *Session) Edit(fn func(g *graph.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	err := fn(s.graph)
	if err != nil {
		return err
	}

	s.revision++

	return nil
}

// View runs fn against the session graph without counting it as an edit.
func (s *Session) View(fn func(g *graph.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}

	return fn(s.graph)
}

// Workflow returns a copy of the workflow being edited.
func (s *Session) Workflow() (*models.Workflow, error) {
	var workflow *models.Workflow

	err := s.View(func(g *graph.Graph) error {
		workflow = g.Workflow()

		return nil
	})

	return workflow, err
}

// Validate runs the validator over the current graph.
func (s *Session) Validate() (validation.Report, error) {
	var report validation.Report

	err := s.View(func(g *graph.Graph) error {
		report = s.validator.Validate(g.Workflow())

		return nil
	})

	return report, err
}

// Persisted returns the current graph in persisted form without validating it.
func (s *Session) Persisted() (*models.PersistedWorkflow, error) {
	var persisted *models.PersistedWorkflow

	err := s.View(func(g *graph.Graph) error {
		var err error

		persisted, err = serializer.ToPersisted(g.Workflow())
		if err != nil {
			return err
		}

		persisted.ID = s.workflowID

		return nil
	})

	return persisted, err
}

type saveSnapshot struct {
	workflowID string
	persisted  *models.PersistedWorkflow
	report     validation.Report
	generation uint64
	revision   uint64
}

// Save validates and stores the current graph, returning the id it was
// stored under. It fails with ErrBusy while another save is in flight and
// with a *SaveRejectedError when validation reports errors.
func (s *Session) Save(ctx context.Context) (string, error) {
	snapshot, err := s.beginSave()
	if err != nil {
		return "", err
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "designer.save",
		attribute.String(otelhelper.SessionIDKey, s.id),
		attribute.String(otelhelper.WorkflowIDKey, snapshot.workflowID),
		attribute.String(otelhelper.WorkflowNameKey, snapshot.persisted.Name),
		attribute.Int(otelhelper.StepCountKey, len(snapshot.persisted.Steps)),
		attribute.Int(otelhelper.ConnectionCountKey, len(snapshot.persisted.Connections)),
	)
	defer span.End()

	id, saveErr := s.client.Save(ctx, snapshot.workflowID, snapshot.persisted)

	err = s.finishSave(snapshot, id, saveErr)
	if err != nil {
		otelhelper.SetError(span, err)
		s.logger.ErrorContext(ctx, "Failed to save workflow", "workflow_id", snapshot.workflowID, "error", err)

		return "", err
	}

	s.logger.InfoContext(ctx, "Saved workflow", "workflow_id", id, "steps", len(snapshot.persisted.Steps))
	s.publish(ctx, id, events.NewWorkflowSaved(
		s.eventID(), id, s.id, snapshot.persisted.Name,
		len(snapshot.persisted.Steps), len(snapshot.persisted.Connections), len(snapshot.report.Warnings),
	))

	return id, nil
}

func (s *Session) beginSave() (*saveSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	if s.saving {
		return nil, ErrBusy
	}

	workflow := s.graph.Workflow()

	report := s.validator.Validate(workflow)
	if !report.Valid() {
		return nil, &SaveRejectedError{Report: report}
	}

	persisted, err := serializer.ToPersisted(workflow)
	if err != nil {
		return nil, err
	}

	s.saving = true

	return &saveSnapshot{
		workflowID: s.workflowID,
		persisted:  persisted,
		report:     report,
		generation: s.generation,
		revision:   s.revision,
	}, nil
}

func (s *Session) finishSave(snapshot *saveSnapshot, id string, saveErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saving = false

	if s.closed {
		return ErrSessionClosed
	}

	if saveErr != nil {
		s.lastErr = saveErr

		return saveErr
	}

	s.lastErr = nil

	// A load that replaced the graph meanwhile owns the workflow id now
	if snapshot.generation == s.generation {
		s.workflowID = id
		s.savedRev = snapshot.revision
	}

	return nil
}

// Load fetches the workflow stored under id and replaces the session graph
// with it. On failure the previous graph is kept and the error returned.
func (s *Session) Load(ctx context.Context, id string) error {
	seq, err := s.beginLoad()
	if err != nil {
		return err
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "designer.load",
		attribute.String(otelhelper.SessionIDKey, s.id),
		attribute.String(otelhelper.WorkflowIDKey, id),
	)
	defer span.End()

	loaded, loadErr := s.fetch(ctx, id)

	err = s.finishLoad(seq, id, loaded, loadErr)
	if err != nil {
		otelhelper.SetError(span, err)
		s.logger.ErrorContext(ctx, "Failed to load workflow", "workflow_id", id, "error", err)

		return err
	}

	workflow := loaded.Workflow()
	span.SetAttributes(
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
		attribute.Int(otelhelper.StepCountKey, len(workflow.Steps)),
	)

	s.logger.InfoContext(ctx, "Loaded workflow", "workflow_id", id, "steps", len(workflow.Steps))
	s.publish(ctx, id, events.NewWorkflowLoaded(
		s.eventID(), id, s.id, workflow.Name, len(workflow.Steps), len(workflow.Connections),
	))

	return nil
}

func (s *Session) fetch(ctx context.Context, id string) (*graph.Graph, error) {
	data, err := s.client.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	return serializer.FromPersisted(data,
		serializer.WithRegistry(s.registry),
		serializer.WithIDGenerator(s.newID),
	)
}

func (s *Session) beginLoad() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSessionClosed
	}

	s.loadSeq++
	s.loading++

	return s.loadSeq, nil
}

func (s *Session) finishLoad(seq uint64, id string, loaded *graph.Graph, loadErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loading--

	if s.closed {
		return ErrSessionClosed
	}

	if seq != s.loadSeq {
		return ErrLoadSuperseded
	}

	if loadErr != nil {
		s.lastErr = loadErr

		return loadErr
	}

	s.graph = loaded
	s.workflowID = id
	s.generation++
	s.revision = 0
	s.savedRev = 0
	s.lastErr = nil

	return nil
}

// Close ends the session. Pending saves and loads still complete against the
// store but their results are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
}

func (s *Session) eventID() string {
	if s.publisher == nil {
		return ""
	}

	return s.publisher.GenerateID()
}

func (s *Session) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
