package models

import "time"

// ActionKind identifies one of the three daily actions.
type ActionKind string

const (
	ActionDonate    ActionKind = "donate"
	ActionBuyVIP    ActionKind = "buy_vip"
	ActionBuyCredit ActionKind = "buy_credit"
)

// ActionOrder is the fixed execution order for a daily run. Donation runs
// first because it burns the most volatile credential (a fresh login); the
// two purchases share the stabler session token.
var ActionOrder = []ActionKind{ActionDonate, ActionBuyVIP, ActionBuyCredit}

// ActionStatus describes the outcome of one action within a run.
type ActionStatus string

const (
	StatusDone             ActionStatus = "done"
	StatusOff              ActionStatus = "off"
	StatusAlreadyDone      ActionStatus = "already_done"
	StatusSkippedRatio     ActionStatus = "skipped_ratio"
	StatusSkippedClass     ActionStatus = "skipped_class"
	StatusSkippedSeedbonus ActionStatus = "skipped_seedbonus"
	StatusSkippedNoLogin   ActionStatus = "skipped_no_login"
	StatusSkippedNoStats   ActionStatus = "skipped_no_stats"
	StatusLoginFailed      ActionStatus = "login_failed"
	StatusRequestFailed    ActionStatus = "request_failed"
)

// RunRecordVersion is bumped when the persisted run record shape changes.
const RunRecordVersion = 1

// RunRecord is the persisted last-success ledger enforcing at-most-once-per-
// day semantics. Dates are ISO calendar dates ("2006-01-02") and are written
// only after the remote action confirms success.
type RunRecord struct {
	AccountID         string `json:"account_id" badgerhold:"key"`
	Version           int    `json:"version"`
	LastDonateDate    string `json:"last_donate_date"`
	LastBuyVIPDate    string `json:"last_buy_vip_date"`
	LastBuyCreditDate string `json:"last_buy_credit_date"`
	UpdatedAt         int64  `json:"updated_at"`
}

// DoneOn reports whether the action already succeeded on the given day.
func (r *RunRecord) DoneOn(kind ActionKind, day string) bool {
	return day != "" && r.lastDate(kind) == day
}

// MarkDone records a confirmed success for the action on the given day.
func (r *RunRecord) MarkDone(kind ActionKind, day string) {
	switch kind {
	case ActionDonate:
		r.LastDonateDate = day
	case ActionBuyVIP:
		r.LastBuyVIPDate = day
	case ActionBuyCredit:
		r.LastBuyCreditDate = day
	}
}

// Clear drops the recorded date for the action so the next scheduled run is
// not blocked by already_done.
func (r *RunRecord) Clear(kind ActionKind) {
	r.MarkDone(kind, "")
}

func (r *RunRecord) lastDate(kind ActionKind) string {
	switch kind {
	case ActionDonate:
		return r.LastDonateDate
	case ActionBuyVIP:
		return r.LastBuyVIPDate
	case ActionBuyCredit:
		return r.LastBuyCreditDate
	}
	return ""
}

// ActionResult is the per-action slice of a run report.
type ActionResult struct {
	Kind   ActionKind   `json:"kind"`
	Status ActionStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// RunTrigger names what started a run.
type RunTrigger string

const (
	TriggerSchedule RunTrigger = "schedule"
	TriggerStartup  RunTrigger = "startup"
	TriggerManual   RunTrigger = "manual"
)

// RunReport is the structured outcome of one orchestrator run, published on
// the event bus and held by the status service for the HTTP API.
type RunReport struct {
	ID        string         `json:"id"`
	Trigger   RunTrigger     `json:"trigger"`
	Day       string         `json:"day"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Aborted   bool           `json:"aborted"`
	Reason    string         `json:"reason,omitempty"`
	Actions   []ActionResult `json:"actions"`
	Updated   bool           `json:"updated"`
}

// Result returns the report entry for the given action kind, if present.
func (r *RunReport) Result(kind ActionKind) *ActionResult {
	for i := range r.Actions {
		if r.Actions[i].Kind == kind {
			return &r.Actions[i]
		}
	}
	return nil
}
