package interfaces

import "time"

// JobStatus represents the current status of a scheduled job
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	IsRunning bool       `json:"is_running"`
	LastError string     `json:"last_error,omitempty"`
}

// SchedulerService manages cron-based scheduling
type SchedulerService interface {
	// RegisterJob registers a named job; must be called before Start
	RegisterJob(name string, schedule string, handler func() error) error

	// Start begins the scheduler
	Start() error

	// Stop halts the scheduler
	Stop() error

	// TriggerJob manually triggers a specific job to run immediately
	TriggerJob(name string) error

	// IsRunning returns true if scheduler is active
	IsRunning() bool

	// GetAllJobStatuses returns all job statuses
	GetAllJobStatuses() map[string]*JobStatus
}
