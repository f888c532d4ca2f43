package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
)

// API bundles the JSON handlers over the application services.
type API struct {
	auth     *app.AuthService
	catalog  *app.CatalogService
	sessions *app.SessionService
	validate *validator.Validate
}

func NewAPI(auth *app.AuthService, catalog *app.CatalogService, sessions *app.SessionService) *API {
	return &API{
		auth:     auth,
		catalog:  catalog,
		sessions: sessions,
		validate: validator.New(),
	}
}

// Routes wires every endpoint onto a mux. Catalog mutations and user listing
// are admin-gated inside the services; the middleware here only resolves the
// caller's identity.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/v1/auth/register", a.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", a.requireAuth(a.handleLogout))
	mux.HandleFunc("GET /api/v1/users", a.requireAuth(a.handleListUsers))

	mux.HandleFunc("GET /api/v1/packages", a.requireAuth(a.handleListPackages))
	mux.HandleFunc("POST /api/v1/packages", a.requireAuth(a.handleCreatePackage))
	mux.HandleFunc("GET /api/v1/packages/{id}", a.requireAuth(a.handleGetPackage))
	mux.HandleFunc("PATCH /api/v1/packages/{id}", a.requireAuth(a.handleUpdatePackage))
	mux.HandleFunc("DELETE /api/v1/packages/{id}", a.requireAuth(a.handleDeletePackage))
	mux.HandleFunc("GET /api/v1/packages/{id}/questions", a.requireAuth(a.handleListQuestions))
	mux.HandleFunc("POST /api/v1/questions", a.requireAuth(a.handleCreateQuestion))
	mux.HandleFunc("PATCH /api/v1/questions/{id}", a.requireAuth(a.handleUpdateQuestion))
	mux.HandleFunc("DELETE /api/v1/questions/{id}", a.requireAuth(a.handleDeleteQuestion))

	mux.HandleFunc("POST /api/v1/sessions", a.requireAuth(a.handleStartSession))
	mux.HandleFunc("GET /api/v1/sessions/active", a.requireAuth(a.handleActiveSession))
	mux.HandleFunc("PATCH /api/v1/sessions/{id}", a.requireAuth(a.handleUpdateSession))
	mux.HandleFunc("POST /api/v1/sessions/{id}/complete", a.requireAuth(a.handleCompleteSession))
	mux.HandleFunc("GET /api/v1/results", a.requireAuth(a.handleResults))
	mux.HandleFunc("GET /api/v1/results/{sessionID}", a.requireAuth(a.handleResultDetails))
	mux.HandleFunc("GET /api/v1/statistics", a.requireAuth(a.handleStatistics))

	mux.HandleFunc("/ws/session", a.requireAuth(a.serveSessionWS))

	return mux
}

type ctxKey int

const identityKey ctxKey = 0

func identityFrom(ctx context.Context) app.Identity {
	identity, _ := ctx.Value(identityKey).(app.Identity)
	return identity
}

// requireAuth resolves the bearer token (Authorization header, or a token
// query parameter for websocket clients) and rejects unauthenticated calls.
func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		identity, err := a.auth.Authenticate(r.Context(), token)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	}
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := a.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// statusFor maps the domain's sentinel errors onto HTTP statuses. Anything
// unrecognized is a 500 and gets logged.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrPackageNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUsernameTaken),
		errors.Is(err, domain.ErrSessionCompleted),
		errors.Is(err, domain.ErrPackageAlreadyDeleted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPackageInactive),
		errors.Is(err, domain.ErrPackageEmpty),
		errors.Is(err, domain.ErrQuestionNotInPackage),
		errors.Is(err, domain.ErrInvalidAnswerOption):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrTokenNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		log.Printf("internal error: %v", err)
		return http.StatusInternalServerError
	}
}
