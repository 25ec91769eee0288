package orchestrator

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seedkeeper/internal/common"
	"github.com/ternarybob/seedkeeper/internal/interfaces"
	"github.com/ternarybob/seedkeeper/internal/models"
	"github.com/ternarybob/seedkeeper/internal/services/eligibility"
)

// Bookkeeping keys surfaced on the status endpoint. They survive restarts,
// unlike the in-memory state the status service tracks.
const (
	kvLastRunID  = "last_run_id"
	kvLastRunDay = "last_run_day"
	kvLastPollAt = "last_poll_at"
)

// Service runs the daily action sequence: vault donation, VIP purchase,
// upload credit purchase. Runs are serialized; the persisted run record
// makes each action at-most-once per calendar day no matter how many
// triggers fire.
type Service struct {
	config    *common.Config
	client    interfaces.TrackerClient
	evaluator *eligibility.Evaluator
	storage   interfaces.StorageManager
	events    interfaces.EventService
	logger    arbor.ILogger

	runMu sync.Mutex
}

// NewService creates the orchestrator
func NewService(
	config *common.Config,
	client interfaces.TrackerClient,
	evaluator *eligibility.Evaluator,
	storage interfaces.StorageManager,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:    config,
		client:    client,
		evaluator: evaluator,
		storage:   storage,
		events:    events,
		logger:    logger,
	}
}

// Run executes one full action pass. It never returns an error: every
// failure mode lands in the report, which is also published on the event
// bus as EventRunCompleted.
func (s *Service) Run(ctx context.Context, trigger models.RunTrigger) *models.RunReport {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	started := time.Now()
	day := started.In(s.config.DayLocation()).Format("2006-01-02")

	report := &models.RunReport{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		Day:       day,
		StartedAt: started,
	}

	s.logger.Info().
		Str("run_id", report.ID).
		Str("trigger", string(trigger)).
		Str("day", day).
		Msg("Starting daily action run")

	s.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventRunTriggered,
		Payload: report.ID,
	})

	creds, credsDirty := s.loadCredentials(ctx)
	defer func() {
		if credsDirty {
			s.persistCredentials(ctx, creds)
		}
		report.Duration = time.Since(started)
		s.recordRun(ctx, report)
		s.publishReport(ctx, report)
	}()

	if !creds.HasSession() && !creds.HasLogin() {
		report.Aborted = true
		report.Reason = string(interfaces.KindMissingCredentials)
		s.logger.Warn().Str("run_id", report.ID).Msg("No session token and no login credentials, aborting run")
		return report
	}

	// No stored session means the first stats fetch cannot succeed; log in
	// up front when we can.
	if !creds.HasSession() {
		token, kind := s.client.Login(ctx, creds.Username, creds.Password)
		if kind != interfaces.KindNone {
			report.Aborted = true
			report.Reason = string(kind)
			s.logger.Warn().Str("run_id", report.ID).Str("error", string(kind)).Msg("Login failed, aborting run")
			return report
		}
		if s.adoptToken(&creds.SessionToken, token) {
			credsDirty = true
		}
	}

	stats := s.refreshStats(ctx, creds, &credsDirty)

	record, err := s.storage.RunLedgerStorage().GetRecord(ctx, creds.AccountID)
	if err != nil {
		report.Aborted = true
		report.Reason = "storage_error"
		s.logger.Error().Err(err).Str("run_id", report.ID).Msg("Failed to load run record")
		return report
	}
	record.AccountID = creds.AccountID

	updated := false
	for _, kind := range models.ActionOrder {
		result := models.ActionResult{Kind: kind}

		switch {
		case !s.actionEnabled(kind):
			result.Status = models.StatusOff
		case record.DoneOn(kind, day):
			result.Status = models.StatusAlreadyDone
		default:
			var refetch bool
			result.Status, result.Detail, refetch = s.execute(ctx, kind, stats, creds, &credsDirty)
			if result.Status == models.StatusDone {
				record.MarkDone(kind, day)
				updated = true
			}
			// Donation and the VIP purchase both change the seed bonus
			// balance, so later checks need fresh numbers.
			if refetch {
				stats = s.refreshStats(ctx, creds, &credsDirty)
			}
		}

		s.logger.Info().
			Str("run_id", report.ID).
			Str("action", string(kind)).
			Str("status", string(result.Status)).
			Msg("Action evaluated")

		report.Actions = append(report.Actions, result)
	}

	if updated {
		if err := s.storage.RunLedgerStorage().SaveRecord(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("run_id", report.ID).Msg("Failed to save run record")
		}
	}
	report.Updated = updated

	return report
}

// RefreshStats fetches stats outside of a run, for the periodic poll job.
// The rotated session token is persisted like during a run.
func (s *Service) RefreshStats(ctx context.Context) *models.AccountStats {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	creds, credsDirty := s.loadCredentials(ctx)
	if !creds.HasSession() {
		return nil
	}

	stats := s.refreshStats(ctx, creds, &credsDirty)
	if credsDirty {
		s.persistCredentials(ctx, creds)
	}
	if stats != nil {
		kv := s.storage.KeyValueStorage()
		if err := kv.Set(ctx, kvLastPollAt, time.Now().Format(time.RFC3339), "time of the last successful stats poll"); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to record poll time")
		}
	}
	return stats
}

// ValidateCredentials checks the working credential set against the tracker
// with a single stats fetch. Used by the validation endpoint, not by runs.
func (s *Service) ValidateCredentials(ctx context.Context) interfaces.ErrorKind {
	creds, _ := s.loadCredentials(ctx)
	if !creds.HasSession() && !creds.HasLogin() {
		return interfaces.KindMissingCredentials
	}
	if !creds.HasSession() {
		_, kind := s.client.Login(ctx, creds.Username, creds.Password)
		return kind
	}
	return s.client.ValidateCredentials(ctx, creds.SessionToken)
}

// Reset clears the recorded last-success dates for the given action kinds so
// the next run executes them again.
func (s *Service) Reset(ctx context.Context, kinds []models.ActionKind) error {
	accountID := s.config.Account.UserID
	return s.storage.RunLedgerStorage().Reset(ctx, accountID, kinds)
}

// execute performs one action that passed the enabled and already-done
// gates. The third return value asks for a stats refresh afterwards.
func (s *Service) execute(ctx context.Context, kind models.ActionKind, stats *models.AccountStats, creds *models.Credentials, credsDirty *bool) (models.ActionStatus, string, bool) {
	switch kind {
	case models.ActionDonate:
		return s.donate(ctx, stats, creds, credsDirty)
	case models.ActionBuyVIP:
		if ok, status := s.evaluator.BuyVIP(stats); !ok {
			return status, "", false
		}
		if !s.purchase(ctx, s.config.Tracker.BuyVIPPath, creds, credsDirty) {
			return models.StatusRequestFailed, "", false
		}
		return models.StatusDone, "", true
	case models.ActionBuyCredit:
		if ok, status := s.evaluator.BuyCredit(stats); !ok {
			return status, "", false
		}
		if !s.purchase(ctx, s.config.Tracker.BuyCreditPath, creds, credsDirty) {
			return models.StatusRequestFailed, "", false
		}
		return models.StatusDone, "", false
	}
	return models.StatusRequestFailed, "unknown action", false
}

// donate runs the vault donation. The endpoint only honors a cookie minted
// by a fresh login, so it logs in every time, keeps the new token as the
// session credential, and sends the donation form with it.
func (s *Service) donate(ctx context.Context, stats *models.AccountStats, creds *models.Credentials, credsDirty *bool) (models.ActionStatus, string, bool) {
	if ok, status := s.evaluator.Donate(stats, creds); !ok {
		return status, "", false
	}

	token, kind := s.client.Login(ctx, creds.Username, creds.Password)
	if kind != interfaces.KindNone {
		return models.StatusLoginFailed, string(kind), false
	}
	if s.adoptToken(&creds.SessionToken, token) {
		*credsDirty = true
	}

	form := url.Values{}
	form.Set("Donation", strconv.Itoa(s.config.Actions.DonatePoints))
	form.Set("time", strconv.FormatInt(time.Now().UnixMilli(), 10))
	form.Set("submit", "Donate Points")

	ok, rotated := s.client.Do(ctx, interfaces.ActionRequest{
		Path:           s.config.Tracker.DonatePath,
		Method:         http.MethodPost,
		CookieName:     s.config.Tracker.DonationCookie,
		Token:          token,
		Form:           form,
		BrowserHeaders: true,
		Referer:        creds.BaseURL + s.config.Tracker.DonatePath,
	})
	if s.adoptToken(&creds.DonationCookie, rotated) {
		*credsDirty = true
	}
	if !ok {
		return models.StatusRequestFailed, "", false
	}
	return models.StatusDone, "", true
}

// purchase fires one bonus-point purchase GET with the session cookie
func (s *Service) purchase(ctx context.Context, path string, creds *models.Credentials, credsDirty *bool) bool {
	ok, rotated := s.client.Do(ctx, interfaces.ActionRequest{
		Path:       path,
		Method:     http.MethodGet,
		CookieName: s.config.Tracker.SessionCookie,
		Token:      creds.SessionToken,
	})
	if s.adoptToken(&creds.SessionToken, rotated) {
		*credsDirty = true
	}
	return ok
}

// refreshStats fetches stats once, retrying through a fresh login when the
// session looks logged out and a login pair is on file. Rotated tokens are
// adopted through the sentinel gate.
func (s *Service) refreshStats(ctx context.Context, creds *models.Credentials, credsDirty *bool) *models.AccountStats {
	stats, rotated, err := s.client.FetchStats(ctx, creds.SessionToken)
	if s.adoptToken(&creds.SessionToken, rotated) {
		*credsDirty = true
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Stats fetch failed")
		return nil
	}

	if stats == nil && creds.HasLogin() {
		s.logger.Info().Msg("Session logged out, attempting fresh login")
		token, kind := s.client.Login(ctx, creds.Username, creds.Password)
		if kind != interfaces.KindNone {
			s.logger.Warn().Str("error", string(kind)).Msg("Re-login failed")
			return nil
		}
		if s.adoptToken(&creds.SessionToken, token) {
			*credsDirty = true
		}
		stats, rotated, err = s.client.FetchStats(ctx, creds.SessionToken)
		if s.adoptToken(&creds.SessionToken, rotated) {
			*credsDirty = true
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("Stats fetch after re-login failed")
			return nil
		}
	}

	if stats != nil {
		s.events.Publish(ctx, interfaces.Event{
			Type:    interfaces.EventStatsRefreshed,
			Payload: stats,
		})
	}
	return stats
}

// loadCredentials builds the working credential set: config supplies the
// identity and login pair, stored rotated tokens take precedence over the
// configured seed token.
func (s *Service) loadCredentials(ctx context.Context) (*models.Credentials, bool) {
	creds := &models.Credentials{
		BaseURL:      s.config.Account.BaseURL,
		AccountID:    s.config.Account.UserID,
		SessionToken: s.config.Account.SessionToken,
		Username:     s.config.Account.Username,
		Password:     s.config.Account.Password,
	}

	stored, err := s.storage.CredentialStorage().GetCredentials(ctx, creds.AccountID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load stored credentials, using configured seed")
		return creds, false
	}
	if stored != nil {
		if models.ValidToken(stored.SessionToken) {
			creds.SessionToken = stored.SessionToken
		}
		if models.ValidToken(stored.DonationCookie) {
			creds.DonationCookie = stored.DonationCookie
		}
	}
	return creds, false
}

func (s *Service) persistCredentials(ctx context.Context, creds *models.Credentials) {
	if err := s.storage.CredentialStorage().SaveCredentials(ctx, creds); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist rotated credentials")
	}
}

// adoptToken replaces the current token with a rotated value when the value
// passes the sentinel gate and actually differs. Empty and "deleted" values
// never overwrite a working token.
func (s *Service) adoptToken(current *string, rotated string) bool {
	if !models.ValidToken(rotated) || rotated == *current {
		return false
	}
	*current = rotated
	return true
}

func (s *Service) actionEnabled(kind models.ActionKind) bool {
	switch kind {
	case models.ActionDonate:
		return s.config.Actions.DonateVault
	case models.ActionBuyVIP:
		return s.config.Actions.BuyVIP
	case models.ActionBuyCredit:
		return s.config.Actions.BuyCredit
	}
	return false
}

// recordRun writes the run's identity into the key-value bookkeeping so
// the status endpoint can report the last run across restarts.
func (s *Service) recordRun(ctx context.Context, report *models.RunReport) {
	kv := s.storage.KeyValueStorage()
	if err := kv.Set(ctx, kvLastRunID, report.ID, "identifier of the most recent action run"); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record run id")
		return
	}
	if err := kv.Set(ctx, kvLastRunDay, report.Day, "calendar day of the most recent action run"); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record run day")
	}
}

func (s *Service) publishReport(ctx context.Context, report *models.RunReport) {
	s.events.Publish(ctx, interfaces.Event{
		Type:    interfaces.EventRunCompleted,
		Payload: report,
	})
}
