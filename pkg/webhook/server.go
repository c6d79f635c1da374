package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ammar0144/soql4go/pkg/querycache"
)

const (
	secretHeader    = "X-Webhook-Secret"
	signatureHeader = "X-Webhook-Signature"
	signaturePrefix = "sha256="
)

// ChangeProcessor turns an incoming change event into cache evictions.
// *querycache.Invalidator satisfies it.
type ChangeProcessor interface {
	HandleChangeEvent(ctx context.Context, event querycache.ChangeEvent) (querycache.InvalidationMode, error)
}

// Server exposes the change data capture ingress over HTTP.
type Server struct {
	config    Config
	processor ChangeProcessor
	log       *zap.Logger
}

// NewServer creates the webhook HTTP surface.
func NewServer(config Config, processor ChangeProcessor, log *zap.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}
	if processor == nil {
		return nil, fmt.Errorf("webhook server requires a change processor")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{config: config, processor: processor, log: log}, nil
}

// Routes returns the router for the webhook endpoints, ready to serve
// or mount into a larger application router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/webhooks/health", s.handleHealth)
	r.Post("/webhooks/cdc", s.handleChangeEvent)
	return r
}

// handleHealth reports readiness and configuration state. It is
// intentionally unauthenticated so load balancers can probe it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                       "ok",
		"webhook_invalidation_enabled": s.config.Enabled,
		"webhook_secret_configured":    s.config.Secret != "",
		"timestamp":                    time.Now().UTC().Format(time.RFC3339),
	})
}

// changeEventPayload mirrors the relevant slice of a Salesforce change
// data capture message. The header is a pointer so an absent block is
// distinguishable from a present but incomplete one.
type changeEventPayload struct {
	ChangeEventHeader *changeEventHeader `json:"ChangeEventHeader"`
}

type changeEventHeader struct {
	EntityName string   `json:"entityName"`
	RecordIDs  []string `json:"recordIds"`
	ChangeType string   `json:"changeType"`
}

func (s *Server) handleChangeEvent(w http.ResponseWriter, r *http.Request) {
	if !s.config.Enabled {
		writeError(w, http.StatusForbidden, "webhook invalidation is disabled")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if s.config.RequireValidation && !s.authorized(r, body) {
		s.log.Warn("rejected change event with invalid credentials",
			zap.String("remote", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "invalid webhook credentials")
		return
	}

	var payload changeEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.log.Warn("rejected malformed change event payload", zap.Error(err))
		writeError(w, http.StatusBadRequest, "malformed JSON payload")
		return
	}

	header := payload.ChangeEventHeader
	if header == nil {
		s.log.Warn("rejected change event without ChangeEventHeader")
		writeError(w, http.StatusBadRequest, "ChangeEventHeader is required")
		return
	}
	if header.EntityName == "" {
		s.log.Warn("rejected change event without entityName")
		writeError(w, http.StatusBadRequest, "ChangeEventHeader.entityName is required")
		return
	}
	event := querycache.ChangeEvent{
		Object:     header.EntityName,
		RecordIDs:  header.RecordIDs,
		ChangeType: querycache.ChangeType(header.ChangeType),
	}
	if !event.ChangeType.Valid() {
		s.log.Warn("rejected change event with unknown change type",
			zap.String("change_type", header.ChangeType))
		writeError(w, http.StatusBadRequest, "ChangeEventHeader.changeType must be CREATE, UPDATE, DELETE or UNDELETE")
		return
	}

	mode, err := s.processor.HandleChangeEvent(r.Context(), event)
	if err != nil {
		s.log.Error("failed to process change event",
			zap.String("entity", event.Object),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to invalidate cache")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"message":           fmt.Sprintf("cache invalidated for %s", event.Object),
		"entity":            event.Object,
		"records_affected":  len(event.RecordIDs),
		"invalidation_type": string(mode),
	})
}

// authorized checks the shared-secret header first, then the HMAC
// signature of the raw body. Either one grants access.
func (s *Server) authorized(r *http.Request, body []byte) bool {
	if secret := r.Header.Get(secretHeader); secret != "" {
		return subtle.ConstantTimeCompare([]byte(secret), []byte(s.config.Secret)) == 1
	}

	sig := r.Header.Get(signatureHeader)
	if !strings.HasPrefix(sig, signaturePrefix) {
		return false
	}
	expected, err := hex.DecodeString(strings.TrimPrefix(sig, signaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.config.Secret))
	mac.Write(body)
	return hmac.Equal(expected, mac.Sum(nil))
}

// Sign computes the signature header value for a payload, for callers
// that push events to another instance.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
