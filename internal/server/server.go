// Package server wires the send pipeline into a gin engine.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/cds-snc/notification-admin-sub002/internal/common/config"
	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/common/logger"
	"github.com/cds-snc/notification-admin-sub002/internal/common/observability"
	"github.com/cds-snc/notification-admin-sub002/internal/send/draft"
	"github.com/cds-snc/notification-admin-sub002/internal/send/flow"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	signInPath         = "/sign-in"
	msgUpstreamTimeout = "GC Notify is taking too long to respond. Try again."
)

// SessionStore loads and saves the state behind a session cookie.
type SessionStore interface {
	Load(ctx context.Context, id string) (*draft.State, error)
	Save(ctx context.Context, st *draft.State) error
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Config        *config.Config
	Backend       flow.Backend
	Uploads       flow.UploadStore
	Sessions      SessionStore
	Redis         Pinger
	Observability *observability.Observability
	Logger        logger.Logger
}

type Server struct {
	engine   *gin.Engine
	cfg      *config.Config
	sessions SessionStore
	redis    Pinger
	logger   logger.Logger
}

// New builds the engine with every route mounted.
func New(deps Dependencies) *Server {
	if deps.Config.App.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := logger.ForComponent(deps.Logger, "server")

	s := &Server{
		engine:   gin.New(),
		cfg:      deps.Config,
		sessions: deps.Sessions,
		redis:    deps.Redis,
		logger:   log,
	}
	s.engine.SetHTMLTemplate(loadTemplates())
	s.engine.Use(gin.Recovery(), logger.GinMiddleware(deps.Logger))

	s.engine.GET("/_status", s.handleStatus)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.NoRoute(s.handleNotFound)

	send := s.engine.Group("/", s.sessionMiddleware(), apperrors.Handler(log, s.renderError))
	flow.NewHandler(flow.Dependencies{
		Backend:       deps.Backend,
		Uploads:       deps.Uploads,
		Sessions:      deps.Sessions,
		CSV:           deps.Config.CSV,
		Observability: deps.Observability,
		Logger:        deps.Logger,
	}).Register(send)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.engine.ServeHTTP(w, req)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// sessionMiddleware loads the session named by the cookie. Requests without
// a live session are sent to sign in.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(s.cfg.Server.SessionCookie)
		st, err := s.sessions.Load(c.Request.Context(), id)
		switch {
		case err == nil:
		case errors.Is(err, draft.ErrSessionNotFound):
			c.Redirect(http.StatusFound, signInPath+"?next="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
			return
		default:
			logger.FromContext(c, s.logger).Error("Failed to load session", map[string]interface{}{
				"error": err.Error(),
			})
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"Status": http.StatusInternalServerError, "Message": "Something went wrong"})
			c.Abort()
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(s.cfg.Server.SessionCookie, st.Session.ID, int(s.cfg.Server.SessionTTL()/time.Second), "/", "", s.cfg.Server.SecureCookie, true)
		flow.WithState(c, st)
		c.Next()
	}
}

// renderError writes the page for a request that failed. A timeout on a
// form post is shown as a flash on the same page.
func (s *Server) renderError(c *gin.Context, status int, stdErr *apperrors.StandardError) {
	if stdErr.Code == apperrors.ErrCodeUpstreamTimeout && c.Request.Method == http.MethodPost {
		if st, ok := flow.StateFrom(c); ok {
			st.AddFlash("error", msgUpstreamTimeout)
			if err := s.sessions.Save(c.Request.Context(), st); err == nil {
				c.Redirect(http.StatusFound, c.Request.URL.Path)
				c.Abort()
				return
			}
		}
	}

	message := stdErr.Message
	switch status {
	case http.StatusNotFound:
		message = "Page not found"
	case http.StatusGatewayTimeout:
		message = msgUpstreamTimeout
	case http.StatusInternalServerError, http.StatusBadGateway:
		message = "Sorry, there's a problem with GC Notify"
	}
	c.HTML(status, "error.html", gin.H{"Status": status, "Message": message})
	c.Abort()
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, redisStatus := http.StatusOK, "ok"
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			status, redisStatus = http.StatusServiceUnavailable, "unavailable"
		}
	}
	c.JSON(status, gin.H{
		"status":  http.StatusText(status),
		"version": s.cfg.App.Version,
		"redis":   redisStatus,
	})
}

func (s *Server) handleNotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "error.html", gin.H{"Status": http.StatusNotFound, "Message": "Page not found"})
}
