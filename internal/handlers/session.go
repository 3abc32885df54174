package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/middleware"
	"github.com/dimitrije/medportal-api/internal/policy"
	"github.com/dimitrije/medportal-api/internal/session"
	"github.com/dimitrije/medportal-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/websocket"
)

// SessionHandler exposes the materialized session of the caller.
type SessionHandler struct {
	resolver SessionResolver
	watcher  CredentialWatcher
	timeout  time.Duration
	logger   *slog.Logger
}

func NewSessionHandler(resolver SessionResolver, watcher CredentialWatcher, timeout time.Duration, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{resolver: resolver, watcher: watcher, timeout: timeout, logger: logger}
}

// staticSource delivers a single credential.
type staticSource struct {
	cred *identity.Credential
}

func (s staticSource) Subscribe(_ context.Context, onChange func(*identity.Credential)) func() {
	onChange(s.cred)
	return func() {}
}

// watchSource follows the credential a client presented and remembers the
// latest one delivered.
type watchSource struct {
	watcher CredentialWatcher
	initial *identity.Credential
	latest  *atomic.Pointer[identity.Credential]
}

func (s watchSource) Subscribe(ctx context.Context, onChange func(*identity.Credential)) func() {
	return s.watcher.Subscribe(ctx, s.initial, func(cred *identity.Credential) {
		s.latest.Store(cred)
		onChange(cred)
	})
}

// Get returns the settled session. Principal is null for a pending or
// removed account; Standing tells those apart.
func (h *SessionHandler) Get(c *drift.Context) {
	ctx := c.Request.Context()
	m := session.NewMaterializer(h.resolver, h.timeout, h.logger)
	defer m.Close()

	m.Start(ctx, staticSource{cred: middleware.GetCredential(c)})
	state, err := m.Await(ctx)
	if err != nil {
		middleware.RespondError(c, apperr.Upstream("session.get", err))
		return
	}

	resp := sessionResponse(state)
	resp.Standing = string(policy.Classify(middleware.GetSubject(c)))
	_ = c.JSON(http.StatusOK, resp)
}

// Events streams every state of the caller's session. The stream follows
// approval changes and sign-outs until the client disconnects.
func (h *SessionHandler) Events(c *drift.Context) {
	sseCtx := c.SSE()
	h.stream(c.Request.Context(), middleware.GetCredential(c), func(resp dto.SessionResponse) error {
		return sseCtx.SendJSON(resp, "session", strconv.FormatUint(resp.Seq, 10))
	})
}

// Socket streams the same states as Events over a WebSocket. Client messages
// are ignored.
func (h *SessionHandler) Socket(c *drift.Context) {
	cred := middleware.GetCredential(c)
	conn, err := websocket.Upgrade(c)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() {
		if err := conn.Close(websocket.CloseNormalClosure, ""); err != nil {
			h.logger.Debug("websocket close failed", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.stream(ctx, cred, func(resp dto.SessionResponse) error {
		return conn.WriteJSON(resp)
	})
}

// stream runs a Materializer for cred and sends each distinct state until ctx
// is done or send fails.
func (h *SessionHandler) stream(ctx context.Context, cred *identity.Credential, send func(dto.SessionResponse) error) {
	m := session.NewMaterializer(h.resolver, h.timeout, h.logger)
	defer m.Close()

	notify := make(chan struct{}, 1)
	cancel := m.View().Subscribe(func(session.State) {
		select {
		case notify <- struct{}{}:
		default:
		}
	})
	defer cancel()

	latest := new(atomic.Pointer[identity.Credential])
	latest.Store(cred)
	m.Start(ctx, watchSource{watcher: h.watcher, initial: cred, latest: latest})

	var last session.State
	sent := false
	for {
		select {
		case <-notify:
			state := m.View().Load()
			if sent && state == last {
				continue
			}
			resp := sessionResponse(state)
			resp.Standing = string(h.standing(ctx, state, latest.Load()))
			if err := send(resp); err != nil {
				return
			}
			last, sent = state, true
		case <-ctx.Done():
			return
		}
	}
}

// standing classifies a streamed state. A settled state without a principal
// is looked up again so a pending account is told apart from a signed out
// one, as Get does. Resolving states have no standing.
func (h *SessionHandler) standing(ctx context.Context, state session.State, cred *identity.Credential) policy.Standing {
	if p := state.Principal; p != nil {
		return policy.Classify(policy.Subject{Authenticated: true, Approved: p.Approved, IsAdmin: p.IsAdmin})
	}
	if state.IsResolving {
		return ""
	}
	if cred == nil {
		return policy.StandingUnauthenticated
	}
	subject, _, err := h.resolver.Subject(ctx, cred)
	if err != nil {
		h.logger.Warn("failed to classify session", "uid", cred.UID, "error", err)
		return policy.StandingUnauthenticated
	}
	return policy.Classify(subject)
}

func sessionResponse(state session.State) dto.SessionResponse {
	resp := dto.SessionResponse{IsResolving: state.IsResolving, Seq: state.Seq}
	if p := state.Principal; p != nil {
		resp.Principal = &dto.PrincipalResponse{
			UID:       p.UID,
			Email:     p.Email,
			IsAdmin:   p.IsAdmin,
			Approved:  p.Approved,
			CreatedAt: p.CreatedAt,
			FirstName: p.Profile.FirstName,
			LastName:  p.Profile.LastName,
			Specialty: p.Profile.Specialty,
		}
	}
	return resp
}
