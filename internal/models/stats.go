package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt is an integer that the tracker may serialize as a JSON number or a
// comma-formatted string ("12,500"). Unparseable values decode to zero so a
// schema change degrades to "not eligible" instead of an error.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = FlexInt(parseFlexInt(string(data)))
	return nil
}

// FlexFloat is the float counterpart of FlexInt, used for the ratio field.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat(parseFlexFloat(string(data)))
	return nil
}

func normalizeNumeric(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", "")
	return strings.TrimSpace(s)
}

func parseFlexInt(raw string) int64 {
	s := normalizeNumeric(raw)
	if s == "" || s == "null" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	// Some endpoints format whole numbers as floats.
	if fv, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(fv)
	}
	return 0
}

func parseFlexFloat(raw string) float64 {
	s := normalizeNumeric(raw)
	if s == "" || s == "null" {
		return 0
	}
	if fv, err := strconv.ParseFloat(s, 64); err == nil {
		return fv
	}
	return 0
}

// NotificationCounts carries the tracker's notification counters.
type NotificationCounts struct {
	PMs               FlexInt `json:"pms"`
	AboutToDropClient FlexInt `json:"aboutToDropClient"`
	Tickets           FlexInt `json:"tickets"`
	WaitingTickets    FlexInt `json:"waiting_tickets"`
	Requests          FlexInt `json:"requests"`
	Topics            FlexInt `json:"topics"`
}

// AccountStats is the ephemeral per-poll snapshot of the account. It is never
// persisted; only the latest fetch result is held by the status service.
type AccountStats struct {
	UID             FlexInt            `json:"uid"`
	Username        string             `json:"username"`
	ClassName       string             `json:"classname"`
	SeedBonus       FlexInt            `json:"seedbonus"`
	Ratio           FlexFloat          `json:"ratio"`
	Uploaded        string             `json:"uploaded"`
	UploadedBytes   FlexInt            `json:"uploaded_bytes"`
	Downloaded      string             `json:"downloaded"`
	DownloadedBytes FlexInt            `json:"downloaded_bytes"`
	Wedges          FlexInt            `json:"wedges"`
	CountryCode     string             `json:"country_code"`
	CountryName     string             `json:"country_name"`
	Notifications   NotificationCounts `json:"notifs"`
}

// ParseAccountStats decodes a stats payload. A payload that is not a JSON
// object containing a username field means the session is logged out and
// yields nil stats without an error.
func ParseAccountStats(data []byte) (*AccountStats, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["username"]; !ok {
		return nil, nil
	}
	var stats AccountStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	if strings.TrimSpace(stats.Username) == "" {
		return nil, nil
	}
	return &stats, nil
}
