package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"rider-agent/internal/common/contextx"
	"rider-agent/internal/common/log"
	"rider-agent/internal/sharing/app"
	"rider-agent/internal/sharing/domain"
)

// Handler exposes the local control surface of the agent: start and stop the
// sharing session, and observe its state. It binds to localhost; there is no
// auth here, the boundary is the device itself.
type Handler struct {
	ctrl   *app.SessionController
	logger *slog.Logger
}

func NewHandler(ctrl *app.SessionController, logger *slog.Logger) *Handler {
	return &Handler{ctrl: ctrl, logger: logger}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sharing/start", h.handleStart)
	mux.HandleFunc("POST /sharing/stop", h.handleStop)
	mux.HandleFunc("GET /status", h.handleStatus)
	return mux
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := contextx.WithNewRequestID(r.Context())
	start := time.Now()

	if err := h.ctrl.Start(ctx); err != nil {
		var se *domain.ShareError
		if errors.As(err, &se) && se.Kind == domain.KindUnsupported {
			log.Error(ctx, h.logger, "share_start_unsupported", "Start rejected, no sampling capability", err)
			writeJSONError(ctx, w, http.StatusConflict, "position sampling not available")
			return
		}
		log.Error(ctx, h.logger, "share_start_fail", "Failed to start sharing session", err)
		writeJSONError(ctx, w, http.StatusInternalServerError, "failed to start sharing")
		return
	}

	snap := h.ctrl.Snapshot()
	writeJSONInfo(w, http.StatusOK, startResponse{
		Status:    string(snap.Status),
		SessionID: snap.SessionID,
		Message:   "Location sharing is active",
	})
	log.Info(ctx, h.logger, "share_start", fmt.Sprintf("session=%s duration_ms=%d", snap.SessionID, time.Since(start).Milliseconds()))
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	ctx := contextx.WithNewRequestID(r.Context())

	h.ctrl.Stop()

	writeJSONInfo(w, http.StatusOK, stopResponse{
		Status:  string(domain.StatusIdle),
		Message: "Location sharing stopped",
	})
	log.Info(ctx, h.logger, "share_stop", "Sharing session stopped via API")
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.ctrl.Snapshot()
	writeJSONInfo(w, http.StatusOK, snapshotResponse(snap))
}
