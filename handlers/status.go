package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/upb/reqlog/logger"
	"github.com/upb/reqlog/middleware"
	"github.com/upb/reqlog/utils"
)

// StatusResponse represents the service status response
type StatusResponse struct {
	Service   string `json:"service"`
	RequestID string `json:"request_id,omitempty"`
}

// Status handles GET /api/v1/status
func Status(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, StatusResponse{
			Service:   service,
			RequestID: middleware.GetRequestIDFromContext(r.Context()),
		})
	}
}

// WorkResponse represents the result of the instrumented work endpoint
type WorkResponse struct {
	Digest string `json:"digest"`
	Rounds int    `json:"rounds"`
}

// Work handles GET /api/v1/work. It runs a small hashing loop bracketed by
// labeled timers, so a request against it produces one duration record per
// phase alongside the request/response pair.
func Work(timer *middleware.Timer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		lg := middleware.GetLoggerFromContext(ctx)

		const rounds = 64
		timer.Time(ctx, "digest")
		sum := sha256.Sum256([]byte(r.URL.String()))
		for i := 1; i < rounds; i++ {
			sum = sha256.Sum256(sum[:])
		}
		timer.TimeEnd(ctx, "digest")

		digest := hex.EncodeToString(sum[:])
		lg.Emit(logger.DebugLevel, logger.Fields{"rounds": rounds}, "work finished")

		_ = utils.WriteOK(w, WorkResponse{
			Digest: digest,
			Rounds: rounds,
		})
	}
}
