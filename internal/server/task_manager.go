package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanonone/wikiwalk/pkg/engine"
)

// TaskStatus defines the possible states of an async walk.
type TaskStatus string

const (
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task tracks one asynchronous walk.
type Task struct {
	mu sync.RWMutex

	id        string
	status    TaskStatus
	request   engine.Request
	steps     int
	current   string
	result    *engine.Result
	err       string
	createdAt time.Time
	updatedAt time.Time
}

// TaskView is the JSON form of a Task at one instant.
type TaskView struct {
	ID        string         `json:"id"`
	Status    TaskStatus     `json:"status"`
	Start     string         `json:"start"`
	Target    string         `json:"target"`
	Steps     int            `json:"steps"`
	Current   string         `json:"current,omitempty"`
	Result    *engine.Result `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TaskManager tracks all asynchronous walks.
type TaskManager struct {
	tasks map[string]*Task
	mu    sync.RWMutex
}

// NewTaskManager creates a new task manager.
func NewTaskManager() *TaskManager {
	return &TaskManager{
		tasks: make(map[string]*Task),
	}
}

// NewTask registers a task for req and returns it.
func (tm *TaskManager) NewTask(req engine.Request) *Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	task := &Task{
		id:        uuid.NewString(),
		status:    TaskStatusStarted,
		request:   req,
		current:   req.Start,
		createdAt: now,
		updatedAt: now,
	}
	tm.tasks[task.id] = task
	return task
}

// GetTask retrieves a task by its ID.
func (tm *TaskManager) GetTask(id string) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	task, found := tm.tasks[id]
	return task, found
}

// Prune drops finished tasks last updated before cutoff and returns how many went.
func (tm *TaskManager) Prune(cutoff time.Time) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	n := 0
	for id, t := range tm.tasks {
		v := t.View()
		if (v.Status == TaskStatusCompleted || v.Status == TaskStatusFailed) && v.UpdatedAt.Before(cutoff) {
			delete(tm.tasks, id)
			n++
		}
	}
	return n
}

// ID returns the task's identifier.
func (t *Task) ID() string {
	return t.id
}

// SetStatus updates the status of the task.
func (t *Task) SetStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.updatedAt = time.Now()
}

// SetProgress records a hop.
func (t *Task) SetProgress(hop engine.Hop) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusRunning
	t.steps = hop.Step
	t.current = hop.To
	t.updatedAt = time.Now()
}

// SetResult marks the task completed.
func (t *Task) SetResult(res *engine.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusCompleted
	t.result = res
	t.steps = res.Steps
	t.current = res.Path[len(res.Path)-1]
	t.updatedAt = time.Now()
}

// SetError marks the task as failed and records the error message.
func (t *Task) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusFailed
	t.err = err.Error()
	t.updatedAt = time.Now()
}

// View returns a consistent copy of the task.
func (t *Task) View() TaskView {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TaskView{
		ID:        t.id,
		Status:    t.status,
		Start:     t.request.Start,
		Target:    t.request.Target,
		Steps:     t.steps,
		Current:   t.current,
		Result:    t.result,
		Error:     t.err,
		CreatedAt: t.createdAt,
		UpdatedAt: t.updatedAt,
	}
}
