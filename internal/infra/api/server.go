package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"whatsapp-telegram-bridge/internal/config"
	"whatsapp-telegram-bridge/internal/domain/model"
	"whatsapp-telegram-bridge/internal/infra/adapters/telegram"
	"whatsapp-telegram-bridge/internal/infra/logging"
	"whatsapp-telegram-bridge/internal/infra/metrics"
	"whatsapp-telegram-bridge/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Server exposes the two webhook endpoints plus health and metrics.
type Server struct {
	bridge  usecase.BridgeUseCase
	updates usecase.UpdateUseCase
	auth    *WebhookAuth
	cfg     *config.ServerConfig
	log     *zerolog.Logger
}

func NewServer(bridge usecase.BridgeUseCase, updates usecase.UpdateUseCase, auth *WebhookAuth, cfg *config.ServerConfig, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{bridge: bridge, updates: updates, auth: auth, cfg: cfg, log: &l}
}

// Router builds the chi router with the middleware chain applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Use(TraceID(s.log), RequestLog(s.log), Recover(s.log), Timeout(timeout))
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		}))
	}

	r.With(s.auth.Middleware).Post("/webhook/whatsapp", s.handleWhatsApp)
	r.Post("/webhook/telegram", s.handleTelegram)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())
	return r
}

func (s *Server) handleWhatsApp(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Msg("read webhook body")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	// A token minted for one instance must not deliver events for another.
	if id, ok := authInstanceFrom(r.Context()); ok {
		if p, perr := model.ParseWebhookPayload(body); perr == nil && p.InstanceData.IDInstance != 0 && int64(p.InstanceData.IDInstance) != id {
			log.Warn().Int64("token_instance", id).Int64("payload_instance", int64(p.InstanceData.IDInstance)).Msg("instance mismatch")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
	}

	outcome, err := s.bridge.HandleGatewayEvent(r.Context(), body)
	if err != nil {
		log.Warn().Err(err).Str("outcome", string(outcome)).Msg("gateway event not delivered")
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	var raw tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		log.Warn().Err(err).Msg("decode update")
		writeJSON(w, http.StatusOK, usecase.UpdateResult{Status: "error", StatusCode: http.StatusBadRequest, Error: "Invalid update"})
		return
	}

	upd, ok := telegram.ToBotUpdate(raw)
	if !ok {
		// An update without a message carries no chat; the use case reports that.
		upd = model.BotUpdate{}
	}
	writeJSON(w, http.StatusOK, s.updates.HandleUpdate(r.Context(), upd))
}
