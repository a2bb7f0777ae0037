package main

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dwhitmore/portfolio/internal/config"
	"github.com/dwhitmore/portfolio/internal/notify"
	"github.com/dwhitmore/portfolio/internal/resume"
	"github.com/dwhitmore/portfolio/internal/session"
	"github.com/dwhitmore/portfolio/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFiles embed.FS

const sessionCookie = "portfolio_session"

type site struct {
	cfg        *config.Config
	log        logr.Logger
	store      *store.Store
	mailer     notify.Mailer
	submitter  resume.Submitter
	metrics    *resume.Metrics
	registry   *prometheus.Registry
	sessions   *session.Store
	templates  *template.Template
	adminToken string
}

func newSite(cfg *config.Config, logger logr.Logger, db *store.Store, submitter resume.Submitter, mailer notify.Mailer, registry *prometheus.Registry) (*site, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"join": strings.Join,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	token, err := generateAdminToken()
	if err != nil {
		return nil, err
	}

	s := &site{
		cfg:        cfg,
		log:        logger,
		store:      db,
		mailer:     mailer,
		submitter:  submitter,
		metrics:    resume.NewMetrics(registry),
		registry:   registry,
		templates:  tmpl,
		adminToken: token,
	}
	s.sessions = session.NewStore(cfg.SessionTTL, s.newResumeController)

	logger.Info("Admin access available at: /admin/login")
	logger.Info("Privacy: visitor tracking enabled with hashed IP addresses")
	return s, nil
}

// newResumeController wires a visitor's dialog to their browser's CAPTCHA
// widget and snackbar.
func (s *site) newResumeController(sess *session.Session) *resume.Controller {
	return resume.NewController(s.submitter,
		resume.WithStrict(s.cfg.ResumeStrict),
		resume.WithCaptcha(sess.CaptchaWidget()),
		resume.WithMetrics(s.metrics),
		resume.WithLogger(s.log.WithName("resume").WithValues("session", s.store.Hash(sess.ID))),
		resume.WithOnSubmit(func(didError bool) {
			if didError {
				sess.ShowSnackbar(ResumeErrorMessage, true)
				return
			}
			sess.ShowSnackbar(ResumeSuccessMessage, false)
			sess.Resume.Close()
		}),
	)
}

func staticFS() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// requestLogger emits one structured line per request.
func requestLogger(logger logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-ID", reqID)
		c.Next()
		logger.V(1).Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", reqID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// sessionMiddleware attaches the visitor's session. The cookie is reissued
// on every request so it expires together with the server-side session.
func (s *site) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/static/") || strings.HasPrefix(path, "/admin") {
			c.Next()
			return
		}
		id, _ := c.Cookie(sessionCookie)
		sess, created := s.sessions.GetOrCreate(id)
		if created {
			s.log.V(1).Info("session started", "session", s.store.Hash(sess.ID))
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, sess.ID, int(s.cfg.SessionTTL.Seconds()), "/", "", s.cfg.IsProduction(), true)
		c.Set("session", sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet("session").(*session.Session)
}

// Privacy-conscious visitor tracking middleware
func (s *site) visitorTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Only full page loads count as visits
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet ||
			c.GetHeader("HX-Request") == "true" ||
			strings.HasPrefix(path, "/static/") ||
			strings.HasPrefix(path, "/admin") ||
			strings.HasPrefix(path, "/favicon") ||
			strings.HasPrefix(path, "/privacy") {
			c.Next()
			return
		}

		// Respect Do Not Track header
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		ip, ua := c.ClientIP(), c.GetHeader("User-Agent")
		go func() {
			if err := s.store.RecordVisit(context.Background(), ip, ua, path); err != nil {
				s.log.Error(err, "recording visitor")
			}
		}()
		c.Next()
	}
}

// cleanupLoop drops analytics older than the retention window once a day.
func (s *site) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		s.cleanup(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *site) cleanup(ctx context.Context) {
	n, err := s.store.Cleanup(ctx, store.Retention)
	if err != nil {
		s.log.Error(err, "privacy cleanup failed")
		return
	}
	if n > 0 {
		s.log.Info("privacy cleanup removed old records", "rows", n)
	}
}
