package eligibility

import (
	"strings"

	"github.com/ternarybob/seedkeeper/internal/common"
	"github.com/ternarybob/seedkeeper/internal/models"
)

// Evaluator applies the business-rule thresholds that gate each daily
// action. All checks are pure: they look at the latest stats snapshot and
// the stored credentials, never at the network.
type Evaluator struct {
	thresholds common.ThresholdsConfig
}

// New creates an evaluator with the given thresholds
func New(thresholds common.ThresholdsConfig) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Donate reports whether the vault donation may run. The donation endpoint
// needs a fresh login, so username and password must be on file, and the
// account ratio must meet the floor.
func (e *Evaluator) Donate(stats *models.AccountStats, creds *models.Credentials) (bool, models.ActionStatus) {
	if stats == nil {
		return false, models.StatusSkippedNoStats
	}
	if creds == nil || !creds.HasLogin() {
		return false, models.StatusSkippedNoLogin
	}
	if float64(stats.Ratio) < e.thresholds.DonateMinRatio {
		return false, models.StatusSkippedRatio
	}
	return true, models.StatusDone
}

// BuyVIP reports whether the VIP purchase may run. Only the listed user
// classes may buy VIP, and the seed bonus balance must cover the max
// purchase comfortably.
func (e *Evaluator) BuyVIP(stats *models.AccountStats) (bool, models.ActionStatus) {
	if stats == nil {
		return false, models.StatusSkippedNoStats
	}
	if !e.classEligible(stats.ClassName) {
		return false, models.StatusSkippedClass
	}
	if int64(stats.SeedBonus) < e.thresholds.VIPMinSeedBonus {
		return false, models.StatusSkippedSeedbonus
	}
	return true, models.StatusDone
}

// BuyCredit reports whether the upload-credit purchase may run
func (e *Evaluator) BuyCredit(stats *models.AccountStats) (bool, models.ActionStatus) {
	if stats == nil {
		return false, models.StatusSkippedNoStats
	}
	if int64(stats.SeedBonus) < e.thresholds.CreditMinSeedBonus {
		return false, models.StatusSkippedSeedbonus
	}
	return true, models.StatusDone
}

// classEligible compares the reported class name against the configured
// allow-list, case-insensitively and ignoring surrounding whitespace
func (e *Evaluator) classEligible(className string) bool {
	normalized := strings.ToLower(strings.TrimSpace(className))
	for _, allowed := range e.thresholds.VIPClasses {
		if normalized == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}
