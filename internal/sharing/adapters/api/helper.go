package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"rider-agent/internal/common/contextx"
	"rider-agent/internal/sharing/domain"
)

type startResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type stopResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type readingPayload struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	AccuracyMeters float64  `json:"accuracy_meters"`
	HeadingDegrees *float64 `json:"heading_degrees"`
	SpeedMps       *float64 `json:"speed_mps"`
	CapturedAt     string   `json:"captured_at"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

type statusResponse struct {
	IsSharing       bool            `json:"is_sharing"`
	Status          string          `json:"status"`
	SessionID       string          `json:"session_id,omitempty"`
	CurrentReading  *readingPayload `json:"current_reading"`
	CurrentAccuracy *float64        `json:"current_accuracy"`
	LastError       *errorPayload   `json:"last_error"`
	LastSentAt      *string         `json:"last_sent_at"`
}

func snapshotResponse(snap domain.SessionSnapshot) statusResponse {
	resp := statusResponse{
		IsSharing: snap.Sharing,
		Status:    string(snap.Status),
		SessionID: snap.SessionID,
	}
	if snap.LastReading != nil {
		r := snap.LastReading
		resp.CurrentReading = &readingPayload{
			Latitude:       r.Latitude,
			Longitude:      r.Longitude,
			AccuracyMeters: r.AccuracyMeters,
			HeadingDegrees: r.HeadingDegrees,
			SpeedMps:       r.SpeedMps,
			CapturedAt:     r.CapturedAt.UTC().Format(time.RFC3339),
		}
		acc := r.AccuracyMeters
		resp.CurrentAccuracy = &acc
	}
	if snap.LastError != nil {
		resp.LastError = &errorPayload{Kind: string(snap.LastError.Kind), Message: snap.LastError.Message}
	}
	if !snap.LastSentAt.IsZero() {
		s := snap.LastSentAt.UTC().Format(time.RFC3339)
		resp.LastSentAt = &s
	}
	return resp
}

// -------------------- RESPONSE HELPERS --------------------

func writeJSONError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := map[string]any{
		"error":      message,
		"code":       status,
		"request_id": contextx.GetRequestID(ctx),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSONInfo(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
