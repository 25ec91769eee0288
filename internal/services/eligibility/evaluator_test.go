package eligibility

import (
	"testing"

	"github.com/ternarybob/seedkeeper/internal/common"
	"github.com/ternarybob/seedkeeper/internal/models"
)

func testEvaluator() *Evaluator {
	return New(common.ThresholdsConfig{
		DonateMinRatio:     1.05,
		VIPMinSeedBonus:    5000,
		CreditMinSeedBonus: 25000,
		VIPClasses:         []string{"vip", "power user"},
	})
}

func loginCreds() *models.Credentials {
	return &models.Credentials{Username: "user@example.com", Password: "secret"}
}

func TestEvaluator_Donate(t *testing.T) {
	e := testEvaluator()

	tests := []struct {
		name           string
		stats          *models.AccountStats
		creds          *models.Credentials
		expectEligible bool
		expectStatus   models.ActionStatus
	}{
		{
			name:           "ratio above floor",
			stats:          &models.AccountStats{Ratio: 2.5},
			creds:          loginCreds(),
			expectEligible: true,
			expectStatus:   models.StatusDone,
		},
		{
			name:           "ratio exactly at floor",
			stats:          &models.AccountStats{Ratio: 1.05},
			creds:          loginCreds(),
			expectEligible: true,
			expectStatus:   models.StatusDone,
		},
		{
			name:           "ratio below floor",
			stats:          &models.AccountStats{Ratio: 1.04},
			creds:          loginCreds(),
			expectEligible: false,
			expectStatus:   models.StatusSkippedRatio,
		},
		{
			name:           "no login pair",
			stats:          &models.AccountStats{Ratio: 2.5},
			creds:          &models.Credentials{SessionToken: "tok"},
			expectEligible: false,
			expectStatus:   models.StatusSkippedNoLogin,
		},
		{
			name:           "nil creds",
			stats:          &models.AccountStats{Ratio: 2.5},
			creds:          nil,
			expectEligible: false,
			expectStatus:   models.StatusSkippedNoLogin,
		},
		{
			name:           "nil stats",
			stats:          nil,
			creds:          loginCreds(),
			expectEligible: false,
			expectStatus:   models.StatusSkippedNoStats,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eligible, status := e.Donate(tt.stats, tt.creds)
			if eligible != tt.expectEligible {
				t.Errorf("eligible = %v, want %v", eligible, tt.expectEligible)
			}
			if !eligible && status != tt.expectStatus {
				t.Errorf("status = %s, want %s", status, tt.expectStatus)
			}
		})
	}
}

func TestEvaluator_BuyVIP(t *testing.T) {
	e := testEvaluator()

	tests := []struct {
		name           string
		stats          *models.AccountStats
		expectEligible bool
		expectStatus   models.ActionStatus
	}{
		{
			name:           "vip class with enough bonus",
			stats:          &models.AccountStats{ClassName: "VIP", SeedBonus: 5000},
			expectEligible: true,
		},
		{
			name:           "power user mixed case with padding",
			stats:          &models.AccountStats{ClassName: "  Power User ", SeedBonus: 10000},
			expectEligible: true,
		},
		{
			name:           "wrong class",
			stats:          &models.AccountStats{ClassName: "Elite", SeedBonus: 99999},
			expectEligible: false,
			expectStatus:   models.StatusSkippedClass,
		},
		{
			name:           "bonus below floor",
			stats:          &models.AccountStats{ClassName: "vip", SeedBonus: 4999},
			expectEligible: false,
			expectStatus:   models.StatusSkippedSeedbonus,
		},
		{
			name:           "nil stats",
			stats:          nil,
			expectEligible: false,
			expectStatus:   models.StatusSkippedNoStats,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eligible, status := e.BuyVIP(tt.stats)
			if eligible != tt.expectEligible {
				t.Errorf("eligible = %v, want %v", eligible, tt.expectEligible)
			}
			if !eligible && status != tt.expectStatus {
				t.Errorf("status = %s, want %s", status, tt.expectStatus)
			}
		})
	}
}

func TestEvaluator_BuyCredit(t *testing.T) {
	e := testEvaluator()

	if ok, _ := e.BuyCredit(&models.AccountStats{SeedBonus: 25000}); !ok {
		t.Error("bonus exactly at floor should be eligible")
	}
	if ok, status := e.BuyCredit(&models.AccountStats{SeedBonus: 24999}); ok || status != models.StatusSkippedSeedbonus {
		t.Errorf("bonus below floor: eligible=%v status=%s", ok, status)
	}
	if ok, status := e.BuyCredit(nil); ok || status != models.StatusSkippedNoStats {
		t.Errorf("nil stats: eligible=%v status=%s", ok, status)
	}

	// Credit purchase has no class restriction.
	if ok, _ := e.BuyCredit(&models.AccountStats{ClassName: "Elite", SeedBonus: 30000}); !ok {
		t.Error("class must not gate the credit purchase")
	}
}
