package status

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seedkeeper/internal/interfaces"
	"github.com/ternarybob/seedkeeper/internal/models"
)

// AppState represents the application state
type AppState string

const (
	StateIdle    AppState = "idle"
	StateRunning AppState = "running"
)

// Service tracks the latest account stats and the last run report. It feeds
// the HTTP status endpoint and is kept current through event subscriptions,
// so the orchestrator never knows it exists.
type Service struct {
	mu           sync.RWMutex
	state        AppState
	stats        *models.AccountStats
	statsAt      *time.Time
	lastReport   *models.RunReport
	eventService interfaces.EventService
	logger       arbor.ILogger
}

// NewService creates the status service and wires its event subscriptions
func NewService(eventService interfaces.EventService, logger arbor.ILogger) (*Service, error) {
	s := &Service{
		state:        StateIdle,
		eventService: eventService,
		logger:       logger,
	}

	if err := eventService.Subscribe(interfaces.EventRunTriggered, s.onRunTriggered); err != nil {
		return nil, err
	}
	if err := eventService.Subscribe(interfaces.EventRunCompleted, s.onRunCompleted); err != nil {
		return nil, err
	}
	if err := eventService.Subscribe(interfaces.EventStatsRefreshed, s.onStatsRefreshed); err != nil {
		return nil, err
	}

	return s, nil
}

// GetStatus returns the full status payload for the HTTP API
func (s *Service) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload := map[string]interface{}{
		"state":     string(s.state),
		"timestamp": time.Now(),
	}

	if s.stats != nil {
		payload["stats"] = s.stats
		payload["stats_refreshed_at"] = s.statsAt
	}
	if s.lastReport != nil {
		payload["last_run"] = s.lastReport
	}

	return payload
}

func (s *Service) onRunTriggered(ctx context.Context, event interfaces.Event) error {
	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()
	return nil
}

func (s *Service) onRunCompleted(ctx context.Context, event interfaces.Event) error {
	report, ok := event.Payload.(*models.RunReport)
	if !ok {
		s.logger.Warn().Msg("Run completed event carried unexpected payload type")
		return nil
	}

	s.mu.Lock()
	s.state = StateIdle
	s.lastReport = report
	s.mu.Unlock()

	s.logger.Debug().Str("run_id", report.ID).Msg("Status updated with run report")
	return nil
}

func (s *Service) onStatsRefreshed(ctx context.Context, event interfaces.Event) error {
	stats, ok := event.Payload.(*models.AccountStats)
	if !ok {
		s.logger.Warn().Msg("Stats refreshed event carried unexpected payload type")
		return nil
	}

	now := time.Now()
	s.mu.Lock()
	s.stats = stats
	s.statsAt = &now
	s.mu.Unlock()

	return nil
}
