package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"warden/cmd/identity"
	"warden/cmd/internal/auth/session"
	"warden/cmd/internal/jsonapi"
	"warden/cmd/internal/validation"
	"warden/cmd/security/password"
)

// Handler wires the /session and /user endpoints to the identity and
// session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    *identity.Service
	verifier *identity.Verifier
	sessions *session.Manager
	gate     *Gate

	reporter *jsonapi.Reporter
	metrics  *Metrics
	limiter  *ipLimiter
	now      func() time.Time

	registration *validation.Pipeline
	login        *validation.Pipeline
	update       *validation.Pipeline
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithReporter overrides the default English error reporter.
func WithReporter(r *jsonapi.Reporter) HandlerOption {
	return func(h *Handler) {
		if r != nil {
			h.reporter = r
		}
	}
}

// WithMetrics enables auth counters.
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithClock overrides the time source used by the gate and the limiter.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs a Handler.
func NewHandler(log *slog.Logger, cfg Config, users *identity.Service, verifier *identity.Verifier, sessions *session.Manager, opts ...HandlerOption) (*Handler, error) {
	if users == nil || verifier == nil || sessions == nil {
		return nil, errors.New("auth: handler requires users, verifier and sessions")
	}
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()

	h := &Handler{
		log:      log,
		cfg:      cfg,
		users:    users,
		verifier: verifier,
		sessions: sessions,
		reporter: jsonapi.NewReporter(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	h.gate = NewGate(sessions.Codec(), users, h.now)
	h.limiter = newIPLimiter(cfg.LoginRatePerSecond, cfg.LoginRateBurst, cfg.LoginRateIdleTTL)
	h.registration = validation.Registration(users.LoginTaken, cfg.Password)
	h.login = validation.Login()
	h.update = validation.UpdateUser()
	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/session", h.route(map[string]http.HandlerFunc{
		http.MethodPost:   h.handleLogin,
		http.MethodPut:    h.handleRefresh,
		http.MethodDelete: h.handleLogout,
	}))
	mux.HandleFunc("/user", h.route(map[string]http.HandlerFunc{
		http.MethodPost:   h.handleRegister,
		http.MethodGet:    h.handleShowUser,
		http.MethodPut:    h.handleUpdateUser,
		http.MethodDelete: h.handleDeactivate,
	}))
}

func (h *Handler) route(methods map[string]http.HandlerFunc) http.HandlerFunc {
	allow := make([]string, 0, len(methods))
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		if _, ok := methods[m]; ok {
			allow = append(allow, m)
		}
	}
	allowHeader := strings.Join(allow, ", ")

	return func(w http.ResponseWriter, r *http.Request) {
		fn, ok := methods[r.Method]
		if !ok {
			w.Header().Set("Allow", allowHeader)
			h.fail(w, h.reporter.MethodNotAllowed(r.Method))
			return
		}
		fn(w, r)
	}
}

// ---- session ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r, h.cfg.TrustProxy)
	if ok, retryAfter := h.limiter.allow(limiterKey(ip), h.now()); !ok {
		h.metrics.login(resultRateLimited)
		h.log.Warn("auth.session.create.rate_limited", "ip", limiterKey(ip))
		w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(retryAfter)))
		h.fail(w, h.reporter.RateLimited(retryAfter))
		return
	}

	res, ok := h.validate(w, r, h.login, "auth.session.create")
	if !ok {
		return
	}
	username, _ := res.Value(validation.AttrUsername)
	plain, _ := res.Value(validation.AttrPassword)

	ctx := r.Context()
	principal, err := h.verifier.Verify(ctx, identity.KindUsername, username, plain)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			h.metrics.login(resultInvalid)
			h.fail(w, h.reporter.InvalidCredentials())
			return
		}
		h.metrics.login(resultError)
		h.systemFault(w, "auth.session.create.verify.fail", err)
		return
	}

	issued, err := h.sessions.Create(ctx, principal)
	if err != nil {
		h.metrics.login(resultError)
		h.systemFault(w, "auth.session.create.fail", err)
		return
	}

	h.metrics.login(resultSuccess)
	h.log.Info("auth.session.create", "user_id", issued.UserID, "session_id", issued.SessionID)
	h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp)
	writeDocument(w, http.StatusCreated, tokenDocument{Meta: tokenMeta{AccessToken: issued.AccessToken}})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	refresh, ok := h.refreshTokenFromCookie(r)
	if !ok {
		h.metrics.refresh(resultRejected)
		h.fail(w, h.reporter.Unauthenticated(""))
		return
	}

	issued, err := h.sessions.Rotate(r.Context(), refresh)
	if err != nil {
		if session.IsRejected(err) {
			h.metrics.refresh(resultRejected)
			h.log.Info("auth.session.rotate.rejected", "reason", err.Error())
			h.fail(w, h.reporter.Unauthenticated("invalid refresh token"))
			return
		}
		h.metrics.refresh(resultError)
		h.systemFault(w, "auth.session.rotate.fail", err)
		return
	}

	h.metrics.refresh(resultSuccess)
	h.setRefreshCookie(w, issued.RefreshToken, issued.RefreshExp)
	writeDocument(w, http.StatusCreated, tokenDocument{Meta: tokenMeta{AccessToken: issued.AccessToken}})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if refresh, ok := h.refreshTokenFromCookie(r); ok {
		if err := h.sessions.Terminate(r.Context(), refresh); err != nil {
			h.log.Error("auth.session.terminate.fail", "err", err)
		}
	}
	h.expireRefreshCookie(w)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

// ---- user ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	res, ok := h.validate(w, r, h.registration, "auth.user.create")
	if !ok {
		h.metrics.registration(resultInvalid)
		return
	}
	username, _ := res.Value(validation.AttrUsername)
	plain, _ := res.Value(validation.AttrPassword)

	u, err := h.users.Register(r.Context(), username, plain)
	if err != nil {
		if identity.IsConflict(err) {
			h.metrics.registration(resultInvalid)
			h.fail(w, h.reporter.Violations([]jsonapi.Violation{{
				Field:   validation.AttrUsername,
				Kind:    jsonapi.KindTaken,
				Message: "username already exists",
			}}))
			return
		}
		if kind, msg, ok := passwordViolation(err); ok {
			h.metrics.registration(resultInvalid)
			h.fail(w, h.reporter.Violations([]jsonapi.Violation{{
				Field:   validation.AttrPassword,
				Kind:    kind,
				Message: msg,
			}}))
			return
		}
		h.metrics.registration(resultError)
		h.systemFault(w, "auth.user.create.fail", err)
		return
	}

	h.metrics.registration(resultSuccess)
	h.log.Info("auth.user.create", "user_id", u.ID)
	writeDocument(w, http.StatusCreated, toUserDocument(u))
}

func (h *Handler) handleShowUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	writeDocument(w, http.StatusOK, toUserDocument(u))
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	res, ok := h.validate(w, r, h.update, "auth.user.update")
	if !ok {
		return
	}

	in := identity.ProfileInput{}
	in.Name, _ = res.Value(validation.AttrName)
	in.MiddleName, _ = res.Value(validation.AttrMiddleName)
	in.LastName, _ = res.Value(validation.AttrLastName)
	in.Gender, _ = res.Value(validation.AttrGender)
	if s, ok := res.Value(validation.AttrBirthDate); ok {
		d, err := time.Parse(validation.DateLayout, s)
		if err != nil {
			h.systemFault(w, "auth.user.update.birth_date.fail", err)
			return
		}
		in.BirthDate = &d
	}

	updated, err := h.users.UpdateProfile(r.Context(), u.ID, in)
	if err != nil {
		switch {
		case identity.IsNotFound(err):
			// Deactivated between the gate and the write.
			h.fail(w, h.reporter.Gone())
		default:
			h.systemFault(w, "auth.user.update.fail", err)
		}
		return
	}
	writeDocument(w, http.StatusOK, toUserDocument(updated))
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	u, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := h.users.Deactivate(ctx, u.ID); err != nil {
		if identity.IsNotFound(err) {
			h.fail(w, h.reporter.Gone())
			return
		}
		h.systemFault(w, "auth.user.deactivate.fail", err)
		return
	}
	n, err := h.sessions.TerminateAll(ctx, u.ID)
	if err != nil {
		h.systemFault(w, "auth.user.deactivate.sessions.fail", err)
		return
	}

	h.log.Info("auth.user.deactivate", "user_id", u.ID, "sessions", n)
	h.expireRefreshCookie(w)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

// ---- helpers ----

// validate reads the body and runs p. On failure it has already written
// the response.
func (h *Handler) validate(w http.ResponseWriter, r *http.Request, p *validation.Pipeline, event string) (validation.Result, bool) {
	body, err := readDocument(w, r, h.cfg.MaxBodyBytes)
	if err != nil {
		switch {
		case errors.Is(err, errUnsupportedMediaType), errors.Is(err, errBodyTooLarge):
			h.fail(w, h.reporter.Malformed(err.Error(), ""))
		default:
			h.fail(w, h.reporter.Malformed("unable to read request body", ""))
		}
		return validation.Result{}, false
	}

	res, err := p.Run(r.Context(), body)
	if err != nil {
		if errors.Is(err, validation.ErrMalformed) {
			h.fail(w, h.reporter.Malformed("request body must be a JSON object", ""))
			return validation.Result{}, false
		}
		h.systemFault(w, event+".validate.fail", err)
		return validation.Result{}, false
	}
	if !res.OK() {
		h.fail(w, h.reporter.Violations(res.Violations))
		return validation.Result{}, false
	}
	return res, true
}

// authenticate runs the gate. On failure it has already written the response.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	u, err := h.gate.Authenticate(r)
	if err == nil {
		return u, true
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		h.metrics.gateRejected("missing")
		h.fail(w, h.reporter.Unauthenticated(err.Error()))
	case errors.Is(err, ErrInvalidAccessToken):
		h.metrics.gateRejected("invalid_token")
		h.fail(w, h.reporter.Unauthenticated(err.Error()))
	case errors.Is(err, ErrUnknownSubject):
		h.metrics.gateRejected("unknown_subject")
		h.fail(w, h.reporter.Unauthenticated(err.Error()))
	case errors.Is(err, identity.ErrDeactivated):
		h.metrics.gateRejected("deactivated")
		h.fail(w, h.reporter.Gone())
	default:
		h.systemFault(w, "auth.gate.fail", err)
	}
	return identity.User{}, false
}

func (h *Handler) fail(w http.ResponseWriter, resp jsonapi.Response) {
	jsonapi.WriteResponse(w, resp)
}

func (h *Handler) systemFault(w http.ResponseWriter, event string, err error) {
	if errors.Is(err, context.Canceled) {
		h.log.Warn(event, "err", err)
	} else {
		h.log.Error(event, "err", err)
	}
	h.fail(w, h.reporter.System())
}

// passwordViolation maps hasher policy errors onto a field violation.
func passwordViolation(err error) (jsonapi.Kind, string, bool) {
	switch {
	case errors.Is(err, password.ErrPasswordTooLong):
		return jsonapi.KindTooLong, "password is too long", true
	case errors.Is(err, password.ErrPasswordTooShort):
		return jsonapi.KindTooShort, "password is too short", true
	default:
		return "", "", false
	}
}

func retrySeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
