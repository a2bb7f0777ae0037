package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dwhitmore/portfolio/internal/resume"
	"github.com/dwhitmore/portfolio/internal/session"
)

// captchaResetEvent is the HX-Trigger event site.js answers with
// grecaptcha.reset().
const captchaResetEvent = "recaptcha-reset"

type fieldView struct {
	Name        string
	Label       string
	Placeholder string
	Type        string
	Value       string
	Required    bool
	Multiline   bool
	Error       bool
	ErrorText   string
}

type dialogData struct {
	Open      bool
	CanSubmit bool
	Pending   bool
	SiteKey   string
	Fields    []fieldView
	Snackbar  *session.Snackbar
}

var fieldCopy = map[resume.Field]fieldView{
	resume.FieldFullName:    {Label: "Full Name", Placeholder: "First Last", Type: "text", ErrorText: "Please enter your name"},
	resume.FieldEmail:       {Label: "Email", Placeholder: "example@company.com", Type: "email", ErrorText: "Please enter a valid email"},
	resume.FieldPhoneNumber: {Label: "Phone Number", Placeholder: "000 000 0000", Type: "tel", ErrorText: "Please enter a valid phone number"},
	resume.FieldCompany:     {Label: "Company", Placeholder: "Example Company Inc", Type: "text"},
	resume.FieldMessage:     {Label: "Additional Message", Placeholder: "Your message here...", Multiline: true},
}

func (s *site) dialogData(sess *session.Session) dialogData {
	view := sess.Resume.Snapshot()
	fields := make([]fieldView, 0, len(resume.Fields))
	for _, f := range resume.Fields {
		fv := fieldCopy[f]
		fv.Name = string(f)
		fv.Value = view.Draft.Value(f)
		fv.Error = view.Errors.Has(f)
		fv.Required = f == resume.FieldPhoneNumber ||
			(view.Strict && (f == resume.FieldFullName || f == resume.FieldEmail))
		fields = append(fields, fv)
	}
	return dialogData{
		Open:      view.Open(),
		CanSubmit: view.CanSubmit,
		Pending:   view.State == resume.StateSubmitting,
		SiteKey:   s.cfg.RecaptchaSiteKey,
		Fields:    fields,
		Snackbar:  sess.TakeSnackbar(),
	}
}

// render writes a resume fragment, forwarding any queued CAPTCHA reset to
// the browser.
func (s *site) render(c *gin.Context, status int, name string, sess *session.Session) {
	if sess.TakeCaptchaReset() {
		c.Header("HX-Trigger", captchaResetEvent)
	}
	c.HTML(status, name, s.dialogData(sess))
}

func (s *site) setupResumeRoutes(r *gin.Engine) {
	g := r.Group("/resume")

	// Open the dialog with a blank draft
	g.GET("", func(c *gin.Context) {
		sess := currentSession(c)
		sess.Resume.Open()
		sess.Nav.CloseMenu()
		s.render(c, http.StatusOK, "resume-dialog.html", sess)
	})

	// Cancel: reset the challenge and drop the draft
	g.POST("/close", func(c *gin.Context) {
		sess := currentSession(c)
		sess.Resume.Close()
		s.render(c, http.StatusOK, "resume-dialog.html", sess)
	})

	g.POST("/field/:field", func(c *gin.Context) {
		sess := currentSession(c)
		field, err := resume.ParseField(c.Param("field"))
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		if err := sess.Resume.Update(field, c.PostForm(string(field))); err != nil {
			s.resumeError(c, sess, err)
			return
		}
		s.render(c, http.StatusOK, "resume-controls.html", sess)
	})

	g.POST("/blur/:field", func(c *gin.Context) {
		sess := currentSession(c)
		field, err := resume.ParseField(c.Param("field"))
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		// The focusout post carries the form; apply the field's value first
		// so a still-delayed edit cannot land after the blur.
		if value, ok := c.GetPostForm(string(field)); ok {
			if err := sess.Resume.Update(field, value); err != nil {
				s.resumeError(c, sess, err)
				return
			}
		}
		if err := sess.Resume.Blur(field); err != nil {
			s.resumeError(c, sess, err)
			return
		}
		s.render(c, http.StatusOK, "resume-controls.html", sess)
	})

	// Token from the reCAPTCHA callback, or empty when it expired
	g.POST("/captcha", func(c *gin.Context) {
		sess := currentSession(c)
		if err := sess.Resume.SetCaptchaToken(c.PostForm("g-recaptcha-response")); err != nil {
			s.resumeError(c, sess, err)
			return
		}
		s.render(c, http.StatusOK, "resume-controls.html", sess)
	})

	g.POST("/submit", s.handleResumeSubmit)
}

func (s *site) handleResumeSubmit(c *gin.Context) {
	sess := currentSession(c)
	draft := sess.Resume.Snapshot().Draft

	// The attempt outlives a dropped connection; there is no cancellation.
	ctx := context.WithoutCancel(c.Request.Context())
	err := sess.Resume.Submit(ctx)

	switch {
	case err == nil, errors.Is(err, resume.ErrSubmitFailed):
		succeeded := err == nil
		if recErr := s.store.RecordResumeRequest(ctx, draft.Value(resume.FieldEmail), draft.Value(resume.FieldCompany), succeeded); recErr != nil {
			s.log.Error(recErr, "recording resume request")
		}
		s.render(c, http.StatusOK, "resume-dialog.html", sess)
	default:
		s.resumeError(c, sess, err)
	}
}

func (s *site) resumeError(c *gin.Context, sess *session.Session, err error) {
	switch {
	case errors.Is(err, resume.ErrDialogClosed):
		s.render(c, http.StatusConflict, "resume-dialog.html", sess)
	case errors.Is(err, resume.ErrSubmitInFlight):
		s.render(c, http.StatusConflict, "resume-controls.html", sess)
	case errors.Is(err, resume.ErrFormInvalid):
		s.render(c, http.StatusUnprocessableEntity, "resume-controls.html", sess)
	case errors.Is(err, resume.ErrUnknownField):
		c.String(http.StatusBadRequest, err.Error())
	default:
		s.log.Error(err, "resume dialog")
		c.String(http.StatusInternalServerError, "internal error")
	}
}
