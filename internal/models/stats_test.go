package models

import (
	"encoding/json"
	"testing"
)

func TestFlexInt_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int64
	}{
		{"plain number", `12500`, 12500},
		{"quoted number", `"12500"`, 12500},
		{"comma-formatted string", `"12,500"`, 12500},
		{"large comma-formatted string", `"1,234,567"`, 1234567},
		{"float number", `99.7`, 99},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
		{"garbage", `"n/a"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexInt
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if int64(f) != tt.expected {
				t.Errorf("got %d, want %d", int64(f), tt.expected)
			}
		})
	}
}

func TestFlexFloat_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"plain float", `1.05`, 1.05},
		{"quoted float", `"1.05"`, 1.05},
		{"comma-formatted string", `"1,234.5"`, 1234.5},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
		{"garbage", `"inf ratio"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexFloat
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if float64(f) != tt.expected {
				t.Errorf("got %v, want %v", float64(f), tt.expected)
			}
		})
	}
}

func TestParseAccountStats(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		payload := `{
			"uid": 123456,
			"username": "seeder42",
			"classname": "Power User",
			"seedbonus": "25,000",
			"ratio": "1,234.56",
			"uploaded": "1.2 TiB",
			"downloaded": "512 GiB",
			"wedges": 3,
			"notifs": {"pms": 2, "aboutToDropClient": "1"}
		}`

		stats, err := ParseAccountStats([]byte(payload))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats == nil {
			t.Fatal("expected stats, got nil")
		}
		if stats.Username != "seeder42" {
			t.Errorf("username: got %q", stats.Username)
		}
		if int64(stats.SeedBonus) != 25000 {
			t.Errorf("seedbonus: got %d, want 25000", int64(stats.SeedBonus))
		}
		if float64(stats.Ratio) != 1234.56 {
			t.Errorf("ratio: got %v, want 1234.56", float64(stats.Ratio))
		}
		if int64(stats.Notifications.AboutToDropClient) != 1 {
			t.Errorf("aboutToDropClient: got %d, want 1", int64(stats.Notifications.AboutToDropClient))
		}
	})

	t.Run("logged out payload has no username", func(t *testing.T) {
		stats, err := ParseAccountStats([]byte(`{"error": "Invalid session"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats != nil {
			t.Errorf("expected nil stats, got %+v", stats)
		}
	})

	t.Run("empty username counts as logged out", func(t *testing.T) {
		stats, err := ParseAccountStats([]byte(`{"username": ""}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats != nil {
			t.Errorf("expected nil stats, got %+v", stats)
		}
	})

	t.Run("non-object payload is an error", func(t *testing.T) {
		if _, err := ParseAccountStats([]byte(`<html>maintenance</html>`)); err == nil {
			t.Error("expected error for non-JSON payload")
		}
	})
}
