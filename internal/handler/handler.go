package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/komix/komix-api/internal/config"
	"github.com/komix/komix-api/internal/middleware"
	"github.com/komix/komix-api/internal/service"
	"github.com/sirupsen/logrus"
)

// Sessions starts and ends login sessions
type Sessions interface {
	Create(ctx context.Context, userID int64) (string, error)
	Destroy(ctx context.Context, token string) error
	TTL() time.Duration
}

type Handler struct {
	svc          *service.Service
	sessions     Sessions
	log          *logrus.Logger
	validate     *validator.Validate
	cookieSecure bool
}

func NewHandler(svc *service.Service, sessions Sessions, log *logrus.Logger, cfg *config.Config) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		svc:          svc,
		sessions:     sessions,
		log:          log,
		validate:     validate,
		cookieSecure: cfg.CookieSecure,
	}
}

// Routes builds the router; auth guards every route that needs a caller
func (h *Handler) Routes(auth mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/alive", h.Alive).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/login/reset", h.RequestPasswordReset).Methods(http.MethodPost)
	api.HandleFunc("/auth/reset", h.ApplyPasswordReset).Methods(http.MethodPost)

	// Protected routes
	authRouter := api.NewRoute().Subrouter()
	authRouter.Use(auth)
	authRouter.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)

	authRouter.HandleFunc("/projects", h.ListProjects).Methods(http.MethodGet)
	authRouter.HandleFunc("/projects", h.CreateProject).Methods(http.MethodPost)
	authRouter.HandleFunc("/projects/{id:[0-9]+}", h.GetProject).Methods(http.MethodGet)
	authRouter.HandleFunc("/projects/{id:[0-9]+}", h.UpdateProject).Methods(http.MethodPatch)
	authRouter.HandleFunc("/projects/{id:[0-9]+}", h.DeleteProject).Methods(http.MethodDelete)

	authRouter.HandleFunc("/projects/{id:[0-9]+}/chapters", h.ListChapters).Methods(http.MethodGet)
	authRouter.HandleFunc("/projects/{id:[0-9]+}/chapters", h.CreateChapter).Methods(http.MethodPost)
	authRouter.HandleFunc("/projects/{id:[0-9]+}/chapters/{cid:[0-9]+}", h.GetChapter).Methods(http.MethodGet)
	authRouter.HandleFunc("/projects/{id:[0-9]+}/chapters/{cid:[0-9]+}", h.UpdateChapter).Methods(http.MethodPatch)
	authRouter.HandleFunc("/projects/{id:[0-9]+}/chapters/{cid:[0-9]+}", h.DeleteChapter).Methods(http.MethodDelete)

	authRouter.HandleFunc("/feed/following", h.ListFollowing).Methods(http.MethodGet)
	authRouter.HandleFunc("/feed/followers", h.ListFollowers).Methods(http.MethodGet)
	authRouter.HandleFunc("/feed/follow/{id:[0-9]+}", h.Follow).Methods(http.MethodPost)
	authRouter.HandleFunc("/feed/follow/{id:[0-9]+}", h.Unfollow).Methods(http.MethodDelete)
	authRouter.HandleFunc("/feed/subscriptions", h.ListSubscriptions).Methods(http.MethodGet)
	authRouter.HandleFunc("/feed/subscribe/{id:[0-9]+}", h.Subscribe).Methods(http.MethodPost)
	authRouter.HandleFunc("/feed/subscribe/{id:[0-9]+}", h.Unsubscribe).Methods(http.MethodDelete)
	authRouter.HandleFunc("/feed/projects/{id:[0-9]+}/subscribers", h.ListSubscribers).Methods(http.MethodGet)

	return r
}

// Alive is the unauthenticated liveness probe
func (h *Handler) Alive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"alive": true})
}

// caller returns the authenticated user id, writing a 401 when there is none
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.CallerID(r.Context())
	if !ok {
		h.writeError(w, r, service.ErrUnauthenticated)
		return 0, false
	}
	return id, true
}
