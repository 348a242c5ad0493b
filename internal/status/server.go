package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dgnsrekt/deckbridge/internal/bridge"
)

// StateSource exposes the bridge state served on /status.
type StateSource interface {
	Snapshot() bridge.Snapshot
}

type Server struct {
	state      StateSource
	instanceID uuid.UUID
	startedAt  time.Time
	logger     *zap.Logger
}

func NewServer(state StateSource, instanceID uuid.UUID, startedAt time.Time, logger *zap.Logger) *Server {
	return &Server{
		state:      state,
		instanceID: instanceID,
		startedAt:  startedAt,
		logger:     logger,
	}
}

// Response is the /status body.
type Response struct {
	InstanceID     string    `json:"instance_id"`
	MasterDeck     int       `json:"master_deck"`
	Playing        bool      `json:"playing"`
	LastTrack      string    `json:"last_track"`
	HeartbeatSeen  bool      `json:"heartbeat_seen"`
	HeartbeatAgeMS int64     `json:"heartbeat_age_ms"`
	StartedAt      time.Time `json:"started_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.state.Snapshot()
	age, seen := snap.HeartbeatAge()

	writeJSON(w, http.StatusOK, Response{
		InstanceID:     s.instanceID.String(),
		MasterDeck:     snap.MasterDeck,
		Playing:        snap.Playing,
		LastTrack:      snap.LastTrack,
		HeartbeatSeen:  seen,
		HeartbeatAgeMS: age.Milliseconds(),
		StartedAt:      s.startedAt.UTC(),
	}, s.logger)
}

func writeJSON(w http.ResponseWriter, code int, body any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to write response", zap.Error(err))
	}
}
