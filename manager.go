package mpxfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/derektruong/mpxfer/authcache"
	"github.com/derektruong/mpxfer/catalog"
	"github.com/derektruong/mpxfer/executor"
	"github.com/derektruong/mpxfer/internal/fileutils"
	"github.com/derektruong/mpxfer/transaction"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

var (
	// ErrUnauthorized is returned when no acting principal is available.
	ErrUnauthorized = errors.New("mpxfer: no acting principal")

	// ErrTaskNotFound is returned for an unknown task ID.
	ErrTaskNotFound = errors.New("mpxfer: task not found")

	// ErrTaskNotStartable is returned when Start is called on a task
	// that already left StateIdle.
	ErrTaskNotStartable = errors.New("mpxfer: task is not idle")

	// ErrTaskNotRetryable is returned when Retry is called on a task
	// that is not in StateFailed.
	ErrTaskNotRetryable = errors.New("mpxfer: task is not failed")

	// ErrTaskNotTerminal is returned when Dismiss is called on a task
	// that is still active or idle.
	ErrTaskNotTerminal = errors.New("mpxfer: task is not terminal")

	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("mpxfer: manager closed")
)

// IdentityProvider supplies the acting user identity uploads are scoped
// to. The session mechanics behind it live outside this module.
type IdentityProvider interface {
	// Principal returns the acting principal, empty when absent.
	Principal(ctx context.Context) (principal string, err error)
}

// StaticIdentity is an IdentityProvider with a fixed principal.
type StaticIdentity string

func (s StaticIdentity) Principal(context.Context) (string, error) {
	return string(s), nil
}

// Manager is the surface an interactive UI or CLI drives uploads
// through: enqueue files, start, cancel and retry them, and observe
// progress. All methods are safe for concurrent use.
type Manager interface {
	// Add validates the file against the configured policy and creates
	// an idle task for it. Invalid files are rejected synchronously and
	// no task is created.
	Add(ctx context.Context, cmd AddCommand) (taskID string, err error)

	// Start requests the task begin uploading. At capacity the task
	// joins the admission queue and starts when a slot frees.
	Start(taskID string) error

	// Cancel stops the task. Aborting an in-flight part transfer is
	// immediate, the remote session abort is best-effort, and the
	// task's admission slot is freed before Cancel returns. Cancelling
	// a terminal task is a no-op.
	Cancel(taskID string) error

	// Retry revives a failed task. The prior remote session and any
	// completed parts are discarded; the upload restarts cleanly.
	Retry(taskID string) error

	// StartAll starts every idle task in enqueue order.
	StartAll()

	// CancelAll cancels every non-terminal task. Safe with none active.
	CancelAll()

	// ClearCompleted removes all completed tasks from the visible set.
	ClearCompleted()

	// Dismiss removes one terminal task from the visible set.
	Dismiss(taskID string) error

	// Snapshot returns the read-only view of all visible tasks plus
	// aggregate progress.
	Snapshot() Snapshot

	// Subscribe registers a listener for task state and progress
	// updates. Events for one task arrive in order. The returned
	// function unsubscribes.
	Subscribe(listener func(TaskSnapshot)) (unsubscribe func())

	// Close cancels every active task and releases resources.
	Close()
}

// manager coordinates upload tasks with configurations.
type manager struct {
	logger logr.Logger

	txn      transaction.Transaction
	exec     executor.Executor
	cache    *authcache.Cache
	catalog  catalog.Catalog
	identity IdentityProvider

	// options
	fileRule             *fileRule
	partSize             int64
	maxConcurrentUploads int
	prefetchWindow       int32
	retryConfig          RetryConfig

	// mu guards the task table, admission queue and slot counter
	mu          sync.Mutex
	tasks       map[string]*uploadTask
	order       []string
	queue       []string
	activeCount int
	closed      bool

	// listeners receive snapshots from the dispatch goroutine
	listenersMu  sync.Mutex
	listeners    map[int]func(TaskSnapshot)
	nextListener int

	events chan TaskSnapshot

	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager creates a Manager over the given transaction collaborator
// and transfer executor, with the optional Option(s).
func NewManager(
	logger logr.Logger,
	txn transaction.Transaction,
	exec executor.Executor,
	options ...Option,
) Manager {
	m := &manager{
		logger:               logger.WithName("manager"),
		txn:                  txn,
		exec:                 exec,
		identity:             StaticIdentity(""),
		fileRule:             new(fileRule),
		partSize:             defaultPartSize,
		maxConcurrentUploads: defaultMaxConcurrentUploads,
		prefetchWindow:       defaultPrefetchWindow,
		retryConfig: RetryConfig{
			MaxRetryAttempts: defaultMaxRetryAttempts,
			InitialDelay:     defaultInitialDelay,
			MaxDelay:         defaultMaxDelay,
		},
		tasks:     make(map[string]*uploadTask),
		listeners: make(map[int]func(TaskSnapshot)),
		events:    make(chan TaskSnapshot, 1024),
	}
	m.fileRule.MaxFileSize = defaultMaxFileSize
	for _, opt := range options {
		opt(m)
	}
	m.cache = authcache.New(logger)
	m.rootCtx, m.rootCancel = context.WithCancel(context.Background())

	m.wg.Add(1)
	go m.dispatchEvents()
	return m
}

func (m *manager) Add(ctx context.Context, cmd AddCommand) (taskID string, err error) {
	if err = cmd.Validate(ctx); err != nil {
		return
	}

	var principal string
	if principal, err = m.identity.Principal(ctx); err != nil {
		return
	}
	if principal == "" {
		err = ErrUnauthorized
		return
	}

	info := cmd.File.Info()
	if err = m.fileRule.Check(info); err != nil {
		return
	}

	var objectKey string
	if objectKey, err = fileutils.BuildObjectKey(principal, info.Name); err != nil {
		return
	}

	task := &uploadTask{
		id:        uuid.NewString(),
		file:      cmd.File,
		info:      info,
		objectKey: objectKey,
		folderID:  cmd.FolderID,
		principal: principal,
		state:     StateIdle,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrManagerClosed
	}
	m.tasks[task.id] = task
	m.order = append(m.order, task.id)
	m.emitLocked(task)

	m.logger.Info("enqueued upload task",
		"taskID", task.id, "name", info.Name, "size", info.Size, "objectKey", objectKey)
	return task.id, nil
}

func (m *manager) Start(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	task, ok := m.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	if task.state != StateIdle || task.queued {
		return ErrTaskNotStartable
	}
	m.startLocked(task)
	return nil
}

func (m *manager) StartAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, id := range m.order {
		if task := m.tasks[id]; task != nil && task.state == StateIdle && !task.queued {
			m.startLocked(task)
		}
	}
}

func (m *manager) Cancel(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	m.cancelLocked(task)
	return nil
}

func (m *manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if task := m.tasks[id]; task != nil {
			m.cancelLocked(task)
		}
	}
}

func (m *manager) Retry(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	task, ok := m.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	if task.state != StateFailed {
		return ErrTaskNotRetryable
	}

	// the prior session's consistency cannot be trusted after a
	// failure, so the upload restarts from scratch
	if task.remoteTransactionID != "" {
		m.abortRemote(task.remoteTransactionID)
	}
	task.state = StateIdle
	task.lastError = nil
	task.remoteTransactionID = ""
	task.remoteObjectID = ""
	task.totalParts = 0
	task.nextPartNumber = 0
	task.completedParts = nil
	task.completedBytes = 0
	task.partTransferred = 0

	m.startLocked(task)
	return nil
}

func (m *manager) ClearCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.order[:0]
	for _, id := range m.order {
		if task := m.tasks[id]; task != nil && task.state == StateCompleted {
			delete(m.tasks, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
}

func (m *manager) Dismiss(taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	if !task.state.Terminal() {
		return ErrTaskNotTerminal
	}
	delete(m.tasks, taskID)
	for i, id := range m.order {
		if id == taskID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	snap := Snapshot{Tasks: make([]TaskSnapshot, 0, len(m.order))}
	totalPercent := 0
	for _, id := range m.order {
		task := m.tasks[id]
		if task == nil {
			continue
		}
		taskSnap := task.snapshot(now)
		snap.Tasks = append(snap.Tasks, taskSnap)
		totalPercent += taskSnap.ProgressPercent

		switch {
		case task.state == StateIdle:
			snap.HasIdle = true
		case task.state.Active():
			snap.HasActive = true
		case task.state == StateCompleted:
			snap.HasCompleted = true
		}
	}
	if len(snap.Tasks) > 0 {
		snap.OverallProgressPercent = totalPercent / len(snap.Tasks)
	}
	return snap
}

func (m *manager) Subscribe(listener func(TaskSnapshot)) (unsubscribe func()) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = listener
	return func() {
		m.listenersMu.Lock()
		defer m.listenersMu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, id := range m.order {
		if task := m.tasks[id]; task != nil {
			m.cancelLocked(task)
		}
	}
	m.mu.Unlock()

	m.rootCancel()
	close(m.events)
	m.wg.Wait()
	m.logger.Info("closed upload manager")
}

// dispatchEvents fans snapshots out to subscribers. A single dispatch
// goroutine preserves per-task event ordering.
func (m *manager) dispatchEvents() {
	defer m.wg.Done()
	for snap := range m.events {
		m.listenersMu.Lock()
		listeners := make([]func(TaskSnapshot), 0, len(m.listeners))
		for _, listener := range m.listeners {
			listeners = append(listeners, listener)
		}
		m.listenersMu.Unlock()
		for _, listener := range listeners {
			listener(snap)
		}
	}
}

// emitLocked queues an event for the task's current state. Callers hold
// m.mu. The channel is large; if a slow subscriber ever fills it, the
// event is dropped rather than stalling the coordinator.
func (m *manager) emitLocked(task *uploadTask) {
	if m.closed {
		return
	}
	select {
	case m.events <- task.snapshot(time.Now()):
	default:
		m.logger.V(1).Info("dropped task event, subscriber too slow", "taskID", task.id)
	}
}
