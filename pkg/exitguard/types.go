// Package exitguard implements a Go client for the ExitGuard tracking API.
// This is the foundation for server-side integrations that cannot run the
// browser snippet, such as checkout backends reporting conversions.
package exitguard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// TrackRequest is one behavior batch for a session.
type TrackRequest struct {
	SessionID string             `json:"session_id"`
	Behaviors map[string]float64 `json:"behaviors,omitempty"`
	Events    []Event            `json:"events,omitempty"`
}

// Event is an opaque tracker event forwarded alongside counters.
type Event struct {
	Type      string         `json:"type"`
	Target    string         `json:"target,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Intervention is a save attempt the server decided to fire.
type Intervention struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	RiskScore   int    `json:"riskScore"`
	Zone        string `json:"zone"`
	TriggeredAt string `json:"triggeredAt"`
}

// TrackResponse is the server's assessment after merging a batch.
type TrackResponse struct {
	Success         bool          `json:"success"`
	SessionID       string        `json:"session_id"`
	Mood            string        `json:"mood"`
	MoodConfidence  int           `json:"mood_confidence"`
	RiskScore       int           `json:"risk_score"`
	RiskZone        string        `json:"risk_zone"`
	RootCause       string        `json:"root_cause"`
	SuggestedAction string        `json:"suggested_action"`
	Intervention    *Intervention `json:"intervention,omitempty"`
}

// ConvertResponse reports the outcome of recording a purchase.
type ConvertResponse struct {
	Success          bool    `json:"success"`
	SessionID        string  `json:"session_id"`
	ConversionStatus string  `json:"conversion_status"` // converted or already_converted
	Salvaged         bool    `json:"salvaged"`
	OrderValue       float64 `json:"order_value"`
}

// Error represents an ExitGuard API error response.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// parseError decodes an error body, falling back to the raw status when the
// body is not the expected JSON shape.
func parseError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	apiErr := &Error{StatusCode: resp.StatusCode}
	if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Code == "" {
		apiErr.Code = "http_error"
		apiErr.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	return apiErr
}
