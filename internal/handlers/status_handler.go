package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seedkeeper/internal/common"
	"github.com/ternarybob/seedkeeper/internal/interfaces"
	"github.com/ternarybob/seedkeeper/internal/models"
	"github.com/ternarybob/seedkeeper/internal/services/eligibility"
	"github.com/ternarybob/seedkeeper/internal/services/status"
)

// StatusHandler serves the aggregate status endpoint: app state, latest
// account stats, last run report, the ledger's last-success dates, the
// action toggles, persisted bookkeeping, and scheduler job statuses.
type StatusHandler struct {
	config        *common.Config
	statusService *status.Service
	scheduler     interfaces.SchedulerService
	ledger        interfaces.RunLedgerStorage
	bookkeeping   interfaces.KeyValueStorage
	evaluator     *eligibility.Evaluator
	logger        arbor.ILogger
}

func NewStatusHandler(
	config *common.Config,
	statusService *status.Service,
	scheduler interfaces.SchedulerService,
	ledger interfaces.RunLedgerStorage,
	bookkeeping interfaces.KeyValueStorage,
	evaluator *eligibility.Evaluator,
) *StatusHandler {
	return &StatusHandler{
		config:        config,
		statusService: statusService,
		scheduler:     scheduler,
		ledger:        ledger,
		bookkeeping:   bookkeeping,
		evaluator:     evaluator,
		logger:        common.GetLogger(),
	}
}

// StatusHandler returns the current application status
func (h *StatusHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	payload := h.statusService.GetStatus()
	payload["jobs"] = h.scheduler.GetAllJobStatuses()
	payload["actions"] = map[string]interface{}{
		"donate_vault":  h.config.Actions.DonateVault,
		"buy_vip":       h.config.Actions.BuyVIP,
		"buy_credit":    h.config.Actions.BuyCredit,
		"donate_points": h.config.Actions.DonatePoints,
	}

	record, err := h.ledger.GetRecord(r.Context(), h.config.Account.UserID)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to load run record for status")
	} else {
		day := time.Now().In(h.config.DayLocation()).Format("2006-01-02")
		payload["ledger"] = map[string]interface{}{
			"last_donate_date":     record.LastDonateDate,
			"last_buy_vip_date":    record.LastBuyVIPDate,
			"last_buy_credit_date": record.LastBuyCreditDate,
			"donated_today":        record.DoneOn(models.ActionDonate, day),
		}
	}

	bookkeeping, err := h.bookkeeping.GetAll(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to load bookkeeping for status")
	} else if len(bookkeeping) > 0 {
		payload["bookkeeping"] = bookkeeping
	}

	if stats, ok := payload["stats"].(*models.AccountStats); ok {
		vipEligible, _ := h.evaluator.BuyVIP(stats)
		creditEligible, _ := h.evaluator.BuyCredit(stats)
		payload["eligibility"] = map[string]interface{}{
			"buy_vip":    vipEligible,
			"buy_credit": creditEligible,
		}
	}

	WriteJSON(w, http.StatusOK, payload)
}
