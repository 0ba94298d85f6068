package pipeline

import (
	"sync"
	"time"
)

// Step identifiers, in execution order.
const (
	StepLoad      = "load"
	StepClean     = "clean"
	StepMerge     = "merge"
	StepStore     = "store"
	StepAnalyze   = "analyze"
	StepVisualize = "visualize"
)

// Step names shown in status output.
const (
	StepNameLoad      = "Load Sources"
	StepNameClean     = "Clean Data"
	StepNameMerge     = "Merge Datasets"
	StepNameStore     = "Store Tables"
	StepNameAnalyze   = "Analyze Sales"
	StepNameVisualize = "Create Visualizations"
)

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusDegraded  StepStatus = "degraded"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// Finished reports whether the status is terminal.
func (s StepStatus) Finished() bool {
	return s != StepStatusPending && s != StepStatusActive
}

// StepState represents the runtime state of a step
type StepState struct {
	mu        sync.RWMutex
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    StepStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Message   string     `json:"message"`
	Error     error      `json:"-"`
}

// NewStepState creates a new step state with default values
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:     id,
		Name:   name,
		Status: StepStatusPending,
	}
}

// Start marks the step as active and sets the start time
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the step as completed with a short result message
func (s *StepState) Complete(message string) {
	s.finish(StepStatusCompleted, message, nil)
}

// Degrade marks the step as finished with recovered failures
func (s *StepState) Degrade(message string) {
	s.finish(StepStatusDegraded, message, nil)
}

// Fail marks the step as failed with the given error
func (s *StepState) Fail(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.finish(StepStatusFailed, msg, err)
}

// Skip marks the step as skipped with the given reason
func (s *StepState) Skip(reason string) {
	s.finish(StepStatusSkipped, reason, nil)
}

func (s *StepState) finish(status StepStatus, message string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = status
	s.Message = message
	s.Error = err
}

// Snapshot returns the status and message under the lock
func (s *StepState) Snapshot() (StepStatus, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status, s.Message
}

// Duration returns the duration of the step execution
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// RunStatus represents the overall run status
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunState represents the complete state of one pipeline run
type RunState struct {
	mu sync.RWMutex

	ID        string     `json:"id"`
	Status    RunStatus  `json:"status"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// Steps in execution order
	Steps []*StepState `json:"steps"`

	Error error `json:"-"`
}

// NewRunState creates a run state with every step pending
func NewRunState(id string) *RunState {
	return &RunState{
		ID:        id,
		Status:    RunStatusPending,
		StartTime: time.Now(),
		Steps: []*StepState{
			NewStepState(StepLoad, StepNameLoad),
			NewStepState(StepClean, StepNameClean),
			NewStepState(StepMerge, StepNameMerge),
			NewStepState(StepStore, StepNameStore),
			NewStepState(StepAnalyze, StepNameAnalyze),
			NewStepState(StepVisualize, StepNameVisualize),
		},
	}
}

// Start marks the run as running
func (r *RunState) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = RunStatusRunning
	r.StartTime = time.Now()
}

// Complete marks the run as completed
func (r *RunState) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusCompleted
}

// Fail marks the run as failed and skips every step that never started
func (r *RunState) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.EndTime = &now
	r.Status = RunStatusFailed
	r.Error = err

	for _, s := range r.Steps {
		if status, _ := s.Snapshot(); status == StepStatusPending {
			s.Skip("run aborted")
		}
	}
}

// Step returns the state of a specific step
func (r *RunState) Step(id string) *StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.Steps {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Duration returns the duration of the run
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// StepsWithStatus returns the steps currently in the given status
func (r *RunState) StepsWithStatus(status StepStatus) []*StepState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*StepState
	for _, s := range r.Steps {
		if st, _ := s.Snapshot(); st == status {
			out = append(out, s)
		}
	}
	return out
}
