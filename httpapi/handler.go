package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/MrEthical07/authgate"
	"github.com/rs/zerolog"
)

// Authenticator is the part of *authgate.Engine the handlers call.
type Authenticator interface {
	Login(ctx context.Context, cred authgate.Credential) (*authgate.LoginResult, error)
	VerifyTwoFA(ctx context.Context, tempToken, code string) (*authgate.LoginResult, error)
	ResendTwoFA(ctx context.Context, tempToken string) (*authgate.ResendResult, error)
	TwoFAStatus(ctx context.Context, tempToken string) (*authgate.ChallengeStatus, error)
}

const maxBodyBytes = 4 << 10

// Handler serves the handshake routes.
type Handler struct {
	auth    Authenticator
	logger  zerolog.Logger
	mux     *http.ServeMux
	handler http.Handler
}

type Option func(*Handler)

// WithLogger sets the access and error logger. Default is zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func New(auth Authenticator, opts ...Option) *Handler {
	h := &Handler{
		auth:   auth,
		logger: zerolog.Nop(),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.mux.HandleFunc("POST /login", h.login)
	h.mux.HandleFunc("POST /2fa/verify", h.verify)
	h.mux.HandleFunc("POST /2fa/resend", h.resend)
	h.mux.HandleFunc("GET /2fa/status", h.status)
	h.handler = withRequestContext(h.logger, h.mux)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

type verifyRequest struct {
	TempToken string `json:"tempToken"`
	Code      string `json:"code"`
}

type resendRequest struct {
	TempToken string `json:"tempToken"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body authgate.Credential
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := h.auth.Login(r.Context(), body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	var body verifyRequest
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := h.auth.VerifyTwoFA(r.Context(), body.TempToken, body.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) resend(w http.ResponseWriter, r *http.Request) {
	var body resendRequest
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := h.auth.ResendTwoFA(r.Context(), body.TempToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	result, err := h.auth.TwoFAStatus(r.Context(), r.URL.Query().Get("tempToken"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// badRequest is the body of a request that never reached the engine.
type badRequest struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "Malformed JSON body."
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			msg = "Request body too large."
		case errors.Is(err, io.EOF):
			msg = "Request body is empty."
		}
		writeJSON(w, http.StatusBadRequest, badRequest{Code: "BAD_REQUEST", Message: msg})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	authErr := authgate.AsAuthError(err)
	if authErr == nil {
		authErr = &authgate.AuthError{
			Code:    authgate.KindServerError,
			Message: authgate.ErrServer.Message,
		}
	}

	status := StatusFor(authErr.Code)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("kind", string(authErr.Code)).Msg("request failed")
	}
	if authErr.RetryAfterSec > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(authErr.RetryAfterSec))
	}
	writeJSON(w, status, authErr)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
