package testutil

import (
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer records tasks instead of sending them to Redis. It keeps the
// asynq rules for TaskID and Unique: an id stays taken until the task
// completes without retention, a unique lock until the task completes.
type Enqueuer struct {
	mu    sync.Mutex
	Tasks []*asynq.Task

	retained map[string]time.Duration
	locks    map[string]string
}

func (e *Enqueuer) Enqueue(t *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.retained == nil {
		e.retained = map[string]time.Duration{}
		e.locks = map[string]string{}
	}

	var (
		id, queue string
		retention time.Duration
		unique    bool
	)
	for _, o := range opts {
		switch o.Type() {
		case asynq.TaskIDOpt:
			id, _ = o.Value().(string)
		case asynq.QueueOpt:
			queue, _ = o.Value().(string)
		case asynq.RetentionOpt:
			retention, _ = o.Value().(time.Duration)
		case asynq.UniqueOpt:
			unique = true
		}
	}

	if _, taken := e.retained[id]; id != "" && taken {
		return nil, asynq.ErrTaskIDConflict
	}
	key := t.Type() + ":" + string(t.Payload())
	if unique {
		for _, held := range e.locks {
			if held == key {
				return nil, asynq.ErrDuplicateTask
			}
		}
	}

	e.Tasks = append(e.Tasks, t)
	if id == "" {
		id = fmt.Sprintf("task-%d", len(e.Tasks))
	}
	e.retained[id] = retention
	if unique {
		e.locks[id] = key
	}
	return &asynq.TaskInfo{ID: id, Type: t.Type(), Queue: queue}, nil
}

// Complete marks the task as processed successfully.
func (e *Enqueuer) Complete(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.locks, id)
	if e.retained[id] == 0 {
		delete(e.retained, id)
	}
}

// OfType returns the recorded tasks with the given type name.
func (e *Enqueuer) OfType(name string) []*asynq.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*asynq.Task
	for _, t := range e.Tasks {
		if t.Type() == name {
			out = append(out, t)
		}
	}
	return out
}
