package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/audit"
	"github.com/nandhanalahari/preva/internal/config"
	"github.com/nandhanalahari/preva/internal/database"
	"github.com/nandhanalahari/preva/internal/insights"
	"github.com/nandhanalahari/preva/internal/messaging"
	"github.com/nandhanalahari/preva/internal/scheduling"
	"github.com/nandhanalahari/preva/internal/speech"
	"github.com/nandhanalahari/preva/internal/visits"
)

// Handlers bundles every dependency the HTTP endpoints need
type Handlers struct {
	cfg        *config.Config
	db         *database.DB
	visits     *visits.Service
	insights   *insights.Service
	scheduling *scheduling.Service
	messaging  *messaging.Service
	speech     *speech.Client
	audit      *audit.Logger
	logger     zerolog.Logger
}

// NewHandlers constructs the handler set
func NewHandlers(
	cfg *config.Config,
	db *database.DB,
	visitSvc *visits.Service,
	insightSvc *insights.Service,
	schedSvc *scheduling.Service,
	msgSvc *messaging.Service,
	speechClient *speech.Client,
	auditLog *audit.Logger,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		cfg:        cfg,
		db:         db,
		visits:     visitSvc,
		insights:   insightSvc,
		scheduling: schedSvc,
		messaging:  msgSvc,
		speech:     speechClient,
		audit:      auditLog,
		logger:     logger,
	}
}

// HealthCheck reports liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
