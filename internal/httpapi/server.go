// Package httpapi serves the block tree and journeys over HTTP for the
// browser build of the editor.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"stepjourney/internal/auth"
	"stepjourney/internal/domain"
	"stepjourney/internal/journey"
	"stepjourney/internal/logger"
	"stepjourney/internal/service"
)

type Deps struct {
	Blocks     *service.BlockService
	Journeys   *journey.Store
	Issuer     *auth.Issuer
	Hub        *Hub
	Log        *logger.Logger
	CORSOrigin string
}

type Server struct {
	blocks   *service.BlockService
	journeys *journey.Store
	issuer   *auth.Issuer
	hub      *Hub
	log      *logger.Logger
	engine   *gin.Engine
}

// New builds the router. Blocks, Journeys and Issuer are required.
func New(d Deps) *Server {
	if d.Blocks == nil || d.Journeys == nil || d.Issuer == nil {
		panic("httpapi: New requires blocks, journeys and an issuer")
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Hub == nil {
		d.Hub = NewHub(d.Log)
	}
	s := &Server{
		blocks:   d.Blocks,
		journeys: d.Journeys,
		issuer:   d.Issuer,
		hub:      d.Hub,
		log:      d.Log.With("component", "httpapi"),
	}
	s.engine = s.routes(d.CORSOrigin)
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("http api listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) routes(origin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: origin != "*",
		MaxAge:           12 * time.Hour,
	}
	if origin == "" || origin == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = strings.Split(origin, ",")
	}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", func(c *gin.Context) { respondMessage(c, "ok") })

	api := r.Group("/api/v1")
	api.POST("/auth/token", s.issueToken)

	protected := api.Group("")
	protected.Use(s.requireAuth())
	protected.GET("/users/me", s.me)
	protected.POST("/auth/logout", s.logout)
	protected.GET("/journeys", s.listJourneys)
	protected.GET("/journeys/:id/steps", s.journeySteps)
	protected.GET("/blocks/:id", s.getBlock)
	protected.POST("/blocks/:id/move", s.moveBlock)
	protected.DELETE("/blocks/:id", s.deleteBlock)
	protected.GET("/ws", func(c *gin.Context) { s.hub.Serve(c.Writer, c.Request) })
	return r
}

const claimsKey = "claims"

// requireAuth accepts a bearer header or a ?token query parameter, the
// latter for websocket clients that cannot set headers.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		claims, err := s.issuer.Verify(c.Request.Context(), token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "unauthorized", err)
			return
		}
		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), claims.Subject))
		c.Next()
	}
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, _ := c.Get(claimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}

// statusFor maps domain and service errors to HTTP statuses and codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrBlockNotFound), errors.Is(err, domain.ErrJourneyNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrCycle):
		return http.StatusConflict, "cycle"
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict, "busy"
	case errors.Is(err, domain.ErrNotAJourney), errors.Is(err, domain.ErrUnknownBlockType):
		return http.StatusUnprocessableEntity, "schema"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	respondError(c, status, code, err)
}
