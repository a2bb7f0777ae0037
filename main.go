package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dwhitmore/portfolio/internal/config"
	"github.com/dwhitmore/portfolio/internal/logging"
	"github.com/dwhitmore/portfolio/internal/nav"
	"github.com/dwhitmore/portfolio/internal/notify"
	"github.com/dwhitmore/portfolio/internal/resume"
	"github.com/dwhitmore/portfolio/internal/session"
	"github.com/dwhitmore/portfolio/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, w := range cfg.Warnings {
		logger.Info("WARNING: " + w)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(err, "server exited")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logr.Logger) error {
	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	client := resume.NewClient(cfg.APIEndpoint,
		resume.WithTimeout(cfg.ResumeTimeout),
		resume.WithClientLogger(logger.WithName("resume-client")),
	)

	s, err := newSite(cfg, logger, db, client, mailerFor(cfg, logger), registry)
	if err != nil {
		return err
	}
	s.sessions.Start()
	defer s.sessions.Stop()

	go s.cleanupLoop(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "resumeEndpoint", client.Endpoint())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// mailerFor picks SendGrid, then SMTP. Without either, development only logs
// messages while production reports them as undeliverable.
func mailerFor(cfg *config.Config, logger logr.Logger) notify.Mailer {
	fallback := func(reason string) notify.Mailer {
		if cfg.IsProduction() {
			logger.Info("WARNING: " + reason + "; contact messages will fail")
			return notify.UnavailableMailer{Logger: logger.WithName("mail")}
		}
		logger.Info("WARNING: " + reason + "; contact messages are only logged")
		return notify.LogMailer{Logger: logger.WithName("mail")}
	}

	if cfg.ToEmail == "" {
		return fallback("TO_EMAIL not set")
	}
	if m := notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName, logger.WithName("sendgrid")); m != nil {
		return m
	}
	if cfg.SMTPUser != "" && cfg.SMTPPass != "" {
		return notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}
	return fallback("no mail credentials configured")
}

// routes builds the gin engine.
func (s *site) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	r.SetHTMLTemplate(s.templates)

	r.StaticFS("/static", http.FS(staticFS()))

	r.Use(s.visitorTracking(), s.sessionMiddleware())

	// Home page route
	r.GET("/", func(c *gin.Context) {
		sess := currentSession(c)
		c.HTML(http.StatusOK, "index.html", gin.H{
			"owner":        SiteOwner,
			"aboutMe":      AboutMe,
			"projects":     Projects,
			"nav":          s.navData(sess),
			"recaptchaKey": s.cfg.RecaptchaSiteKey,
		})
	})

	// Viewport reports and menu toggles from the navigation bar
	r.GET("/nav", func(c *gin.Context) {
		sess := currentSession(c)
		if w, err := strconv.Atoi(c.Query("width")); err == nil {
			sess.Viewport.Resize(w)
		}
		c.HTML(http.StatusOK, "nav.html", s.navData(sess))
	})
	r.POST("/nav/menu/open", func(c *gin.Context) {
		sess := currentSession(c)
		sess.Nav.OpenMenu()
		c.HTML(http.StatusOK, "nav.html", s.navData(sess))
	})
	r.POST("/nav/menu/close", func(c *gin.Context) {
		sess := currentSession(c)
		sess.Nav.CloseMenu()
		c.HTML(http.StatusOK, "nav.html", s.navData(sess))
	})

	// Resume request dialog
	s.setupResumeRoutes(r)

	// Handle contact form submission with HTMX
	r.POST("/contact", s.handleContact)

	s.setupAdminRoutes(r)
	return r
}

type navData struct {
	Owner    string
	Layout   nav.Layout
	Menu     bool
	MenuOpen bool
	Items    []nav.Item
}

func (s *site) navData(sess *session.Session) navData {
	layout := sess.Nav.Layout()
	return navData{
		Owner:    SiteOwner,
		Layout:   layout,
		Menu:     layout == nav.LayoutMenu,
		MenuOpen: sess.Nav.MenuOpen(),
		Items:    nav.Items,
	}
}

func (s *site) handleContact(c *gin.Context) {
	name := c.PostForm("fullName")
	email := c.PostForm("email")
	message := c.PostForm("message")

	if name == "" || message == "" || !resume.ValidEmail(email) {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please include your name, a valid email and a message.",
		})
		return
	}

	msg := notify.ContactMessage(s.cfg.ToEmail, name, email, message)
	if err := s.mailer.Send(c.Request.Context(), msg); err != nil {
		s.log.Error(err, "contact email failed")
		// Return error message HTML fragment
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Sorry, there was an error sending your message. Please try again later.",
		})
		return
	}

	s.log.Info("contact email sent", "from", s.store.Hash(email))
	// Return success message HTML fragment
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"success": "Thank you for your message! I'll get back to you soon.",
	})
}
