package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ut.ee/course-advisor/internal/auth"
	"ut.ee/course-advisor/internal/core"
	"ut.ee/course-advisor/internal/cost"
	"ut.ee/course-advisor/internal/course"
	"ut.ee/course-advisor/internal/filter"
	"ut.ee/course-advisor/internal/retrieval"
	"ut.ee/course-advisor/internal/session"
)

// APIKeyHeader carries the caller's completion key.
const APIKeyHeader = "X-Api-Key"

const DefaultMaxBodyBytes = 64 << 10

type ctxKey struct{}

type Options struct {
	Advisor  *core.Advisor
	Sessions *session.Store
	Issuer   *auth.Issuer
	Compiler *filter.Compiler
	Costs    *cost.Tracker
	TopK     retrieval.TopKBounds
	// DefaultAPIKey is used when a request carries no key of its own.
	DefaultAPIKey string
	// MaxBodyBytes caps a turn request body.
	MaxBodyBytes int64
	Logger       *zap.Logger
}

type APIHandler struct {
	Options
}

func NewAPIHandler(opts Options) *APIHandler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &APIHandler{Options: opts}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		sessionID, err := h.Issuer.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		state, err := h.Sessions.Get(sessionID)
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "Session expired", http.StatusUnauthorized)
			return
		}
		if err != nil {
			h.Logger.Error("session lookup failed", zap.String("session", sessionID), zap.Error(err))
			http.Error(w, "Failed to load session", http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, state)))
	})
}

func sessionFrom(r *http.Request) *session.State {
	return r.Context().Value(ctxKey{}).(*session.State)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.Sessions.Len(),
	})
}

type creditRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type FacetsResponse struct {
	Version   string               `json:"version"`
	Semesters []string             `json:"semesters"`
	Languages []string             `json:"languages"`
	Levels    []string             `json:"levels"`
	Credits   creditRange          `json:"credits"`
	TopK      retrieval.TopKBounds `json:"top_k"`
}

func (h *APIHandler) FacetsHandler(w http.ResponseWriter, r *http.Request) {
	enums := h.Compiler.Enumerations()
	bounds := h.Compiler.CreditBounds()
	writeJSON(w, http.StatusOK, FacetsResponse{
		Version:   enums.Version,
		Semesters: enums.Options(course.FieldSemester),
		Languages: enums.Options(course.FieldLanguages),
		Levels:    enums.Options(course.FieldLevels),
		Credits:   creditRange{Min: bounds.Min, Max: bounds.Max},
		TopK:      h.TopK,
	})
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	state := h.Sessions.Create()
	token, err := h.Issuer.GenerateJWT(state.ID())
	if err != nil {
		h.Sessions.Delete(state.ID())
		h.Logger.Error("failed to sign session token", zap.Error(err))
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	h.Logger.Info("session created", zap.String("session", state.ID()))
	writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: state.ID(), Token: token})
}

type SessionResponse struct {
	session.Snapshot
	CostUSD float64 `json:"cost_usd"`
}

func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	snap := sessionFrom(r).Snapshot()
	writeJSON(w, http.StatusOK, SessionResponse{
		Snapshot: snap,
		CostUSD:  h.Costs.Estimate(snap.InputTokens, snap.OutputTokens),
	})
}

func (h *APIHandler) ClearSessionHandler(w http.ResponseWriter, r *http.Request) {
	state := sessionFrom(r)
	state.Reset()
	h.Logger.Info("session cleared", zap.String("session", state.ID()))
	w.WriteHeader(http.StatusNoContent)
}

type TurnRequest struct {
	Content    string  `json:"content"`
	Semester   string  `json:"semester,omitempty"`
	Language   string  `json:"language,omitempty"`
	Level      string  `json:"level,omitempty"`
	CreditsMin float64 `json:"credits_min,omitempty"`
	CreditsMax float64 `json:"credits_max,omitempty"`
	TopK       int     `json:"top_k,omitempty"`
}

type totals struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// PostTurnHandler streams one turn as server-sent events: status, cards,
// token, message and finally done.
func (h *APIHandler) PostTurnHandler(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	sse, ok := newEventWriter(w)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	apiKey := r.Header.Get(APIKeyHeader)
	if apiKey == "" {
		apiKey = h.DefaultAPIKey
	}

	state := sessionFrom(r)
	turn, err := h.Advisor.HandleTurn(r.Context(), state, core.TurnRequest{
		Utterance: req.Content,
		APIKey:    apiKey,
		Selections: filter.Selections{
			Semester:   req.Semester,
			Language:   req.Language,
			Level:      req.Level,
			CreditsMin: req.CreditsMin,
			CreditsMax: req.CreditsMax,
		},
		TopK: req.TopK,
		Progress: func(msg string) {
			_ = sse.send("status", map[string]string{"message": msg})
		},
	})
	if errors.Is(err, session.ErrBusy) {
		http.Error(w, "A turn is already in progress for this session", http.StatusConflict)
		return
	}
	if err != nil {
		h.Logger.Error("turn failed", zap.String("session", state.ID()), zap.Error(err))
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	if len(turn.Cards) > 0 {
		_ = sse.send("cards", map[string]any{"follow_up": turn.FollowUp, "cards": turn.Cards})
	}
	for frag := range turn.Fragments() {
		if err := sse.send("token", map[string]string{"text": frag}); err != nil {
			h.Logger.Info("client went away mid-stream", zap.String("session", state.ID()), zap.Error(err))
			break
		}
	}

	res := turn.Drain()
	_ = sse.send("message", res)

	snap := state.Snapshot()
	_ = sse.send("done", totals{
		InputTokens:  snap.InputTokens,
		OutputTokens: snap.OutputTokens,
		CostUSD:      h.Costs.Estimate(snap.InputTokens, snap.OutputTokens),
	})
}
