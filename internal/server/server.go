// Package server - REST-фасад над трекером посещаемости.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"uniTrack/internal/config"
	"uniTrack/internal/logger"
	"uniTrack/internal/portal"
	"uniTrack/internal/sanitizer"
	"uniTrack/internal/tracker"
)

// Service - то, что серверу нужно от трекера.
type Service interface {
	Profile() (config.Profile, error)
	Status() (tracker.Report, error)
	Refresh(ctx context.Context, creds portal.Credentials, autoDiscover bool) (tracker.Report, error)
}

type Server struct {
	cfg     *config.Cfg
	log     *logger.Zap
	svc     Service
	fetcher tracker.Fetcher
	san     *sanitizer.DataSanitizer
}

func New(cfg *config.Cfg, log *logger.Zap, svc Service, fetcher tracker.Fetcher) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		svc:     svc,
		fetcher: fetcher,
		san:     sanitizer.New(cfg.Auth.Password),
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Простейший лог-мидлвар
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", s.san.SanitizeURL(c.Request.URL.String())),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":    "UniTrack API",
			"version": "1.0.0",
			"endpoints": gin.H{
				"GET /api/health":     "Health check",
				"GET /api/config":     "Portal profile",
				"GET /api/attendance": "Cached attendance analysis (?refresh=true to fetch)",
				"POST /api/refresh":   "Fetch attendance with configured credentials",
				"POST /api/fetch":     "Fetch attendance from any ERP",
			},
		})
	})

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/api/config", s.handleConfig)
	r.GET("/api/attendance", s.handleAttendance)
	r.POST("/api/refresh", s.handleRefresh)
	r.POST("/api/fetch", s.handleFetch)

	return r
}

// Run слушает до отмены ctx, затем корректно останавливает сервер.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.App.Host, s.cfg.App.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("Сервер запущен", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ошибка сервера: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("Остановка сервера")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleConfig(c *gin.Context) {
	profile, err := s.svc.Profile()
	if err != nil {
		s.log.Error("Ошибка чтения профиля", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"configured":  profile.Configured(),
		"institution": profile.Institution,
		"portal":      profile.Portal,
		"thresholds":  profile.Thresholds,
		"student":     profile.Student,
	})
}

func (s *Server) handleAttendance(c *gin.Context) {
	if c.Query("refresh") == "true" {
		s.refresh(c, s.envCredentials())
		return
	}

	report, err := s.svc.Status()
	if err != nil {
		if tracker.IsNoCache(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No cached data. Run a fetch first."})
			return
		}
		s.log.Error("Ошибка чтения кэша", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache error"})
		return
	}

	c.JSON(http.StatusOK, report)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRefresh(c *gin.Context) {
	creds := s.envCredentials()

	var req credentialsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}
	if req.Username != "" {
		creds.Username = req.Username
	}
	if req.Password != "" {
		creds.Password = req.Password
	}

	s.refresh(c, creds)
}

func (s *Server) refresh(c *gin.Context, creds portal.Credentials) {
	profile, err := s.svc.Profile()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "profile error"})
		return
	}
	if creds.Username == "" {
		creds.Username = profile.Credentials.Username
	}
	if creds.Username == "" || creds.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing credentials: username, password"})
		return
	}

	report, err := s.svc.Refresh(c.Request.Context(), creds, !profile.Portal.Selectors.Complete())
	if err != nil {
		s.fail(c, err, sanitizer.New(s.cfg.Auth.Password, creds.Username, creds.Password))
		return
	}

	c.JSON(http.StatusOK, report)
}

type fetchRequest struct {
	ERPURL   string `json:"erp_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleFetch - запрос без состояния: профиль и кэш не используются.
func (s *Server) handleFetch(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No data provided"})
		return
	}

	erpURL := NormalizeBaseURL(req.ERPURL)
	username := strings.TrimSpace(req.Username)
	if erpURL == "" || username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required fields: erp_url, username, password"})
		return
	}

	// пароль пришёл в теле запроса, серверный санитайзер его не знает
	san := sanitizer.New(username, req.Password)
	s.log.Info("Выгрузка по запросу", zap.String("erp_url", san.SanitizeURL(erpURL)))

	result, err := s.fetcher.Fetch(c.Request.Context(), portal.Config{
		BaseURL:      erpURL,
		LoginURL:     erpURL + "/login.htm",
		Credentials:  portal.Credentials{Username: username, Password: req.Password},
		AutoDiscover: true,
	})
	if err != nil {
		s.fail(c, err, san)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"subjects": result.Subjects,
		"count":    len(result.Subjects),
		"student":  result.Student,
	})
}

func (s *Server) fail(c *gin.Context, err error, san *sanitizer.DataSanitizer) {
	status := statusFor(err)

	msg := "Internal error"
	var fe *portal.FetchError
	if errors.As(err, &fe) && fe.Kind != portal.KindInternal {
		msg = fe.Message
	}

	s.log.Warn("Выгрузка не удалась",
		zap.Int("status", status),
		zap.String("kind", portal.KindOf(err).String()),
		zap.String("error", san.Sanitize(err.Error())),
	)
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func statusFor(err error) int {
	switch portal.KindOf(err) {
	case portal.KindConfigurationIncomplete:
		return http.StatusBadRequest
	case portal.KindAuthenticationFailed:
		return http.StatusUnauthorized
	case portal.KindNoDataFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) envCredentials() portal.Credentials {
	return portal.Credentials{Username: s.cfg.Auth.Username, Password: s.cfg.Auth.Password}
}

// NormalizeBaseURL: голый хост получает https://, хвостовые слэши убираются.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}
