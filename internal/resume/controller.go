package resume

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// State is the dialog lifecycle position.
type State string

const (
	StateClosed     State = "closed"
	StateOpen       State = "open"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
)

// Captcha is the challenge widget the visitor solves. Reset discards the
// widget's token; it is called with the controller lock held and must not
// call back into the controller.
type Captcha interface {
	Reset()
}

// CaptchaFunc adapts a plain function to Captcha.
type CaptchaFunc func()

func (f CaptchaFunc) Reset() { f() }

type noopCaptcha struct{}

func (noopCaptcha) Reset() {}

// Controller owns one visitor's resume dialog. All methods are safe for
// concurrent use; the backend call runs without the lock held.
type Controller struct {
	mu    sync.Mutex
	draft Draft
	state State

	strict    bool
	submitter Submitter
	captcha   Captcha
	phone     PhoneValidator
	onSubmit  func(didError bool)
	logger    logr.Logger
	metrics   *Metrics
}

// Option configures a Controller.
type Option func(*Controller)

// WithStrict controls whether a full name and a valid email are required
// before the form can be sent. Strict is the default.
func WithStrict(strict bool) Option {
	return func(c *Controller) { c.strict = strict }
}

// WithCaptcha attaches the challenge widget reset on close and on failure.
func WithCaptcha(captcha Captcha) Option {
	return func(c *Controller) {
		if captcha != nil {
			c.captcha = captcha
		}
	}
}

// WithPhoneValidator replaces the libphonenumber validator.
func WithPhoneValidator(v PhoneValidator) Option {
	return func(c *Controller) {
		if v != nil {
			c.phone = v
		}
	}
}

// WithOnSubmit registers the callback told about each finished attempt.
func WithOnSubmit(fn func(didError bool)) Option {
	return func(c *Controller) { c.onSubmit = fn }
}

// WithLogger sets the controller logger.
func WithLogger(l logr.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics records submission outcomes.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController returns a closed dialog that sends through submitter.
func NewController(submitter Submitter, opts ...Option) *Controller {
	c := &Controller{
		state:     StateClosed,
		strict:    true,
		submitter: submitter,
		captcha:   noopCaptcha{},
		phone:     LibPhoneNumber{},
		onSubmit:  func(bool) {},
		logger:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts a fresh draft. Opening an already open dialog keeps it as is.
func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		return
	}
	c.draft = Draft{}
	c.state = StateOpen
}

// Close resets the CAPTCHA and discards the draft.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetCaptchaLocked()
	c.draft = Draft{}
	c.state = StateClosed
}

// Update stores value for field. Phone input is normalised, and a changed
// phone number clears its touched flag; resending the stored number keeps
// it. No other field changes.
func (c *Controller) Update(field Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrDialogClosed
	}
	slot := c.draft.slot(field)
	if slot == nil {
		return fmt.Errorf("resume: update %q: %w", field, ErrUnknownField)
	}
	if field == FieldPhoneNumber {
		value = c.phone.Normalize(value)
		if *slot == nil || **slot != value {
			c.draft.PhoneTouched = false
		}
	}
	*slot = &value
	return nil
}

// Blur records that field lost focus. The phone input becomes touched; an
// unset name or email becomes an explicit empty value so its error shows.
func (c *Controller) Blur(field Field) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrDialogClosed
	}
	switch field {
	case FieldPhoneNumber:
		c.draft.PhoneTouched = true
	case FieldFullName, FieldEmail:
		slot := c.draft.slot(field)
		if *slot == nil {
			empty := ""
			*slot = &empty
		}
	case FieldCompany, FieldMessage:
	default:
		return fmt.Errorf("resume: blur %q: %w", field, ErrUnknownField)
	}
	return nil
}

// SetCaptchaToken stores the token the widget produced. An empty token
// means the challenge expired.
func (c *Controller) SetCaptchaToken(token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrDialogClosed
	}
	if token == "" {
		c.draft.CaptchaToken = nil
		return nil
	}
	c.draft.CaptchaToken = &token
	return nil
}

// ResetCaptcha tells the widget to discard its token and forgets ours.
func (c *Controller) ResetCaptcha() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetCaptchaLocked()
}

func (c *Controller) resetCaptchaLocked() {
	c.captcha.Reset()
	c.draft.CaptchaToken = nil
}

// IsValidForm reports whether the draft's values allow sending.
func (c *Controller) IsValidForm() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked()
}

// CanSubmit is IsValidForm restricted to an open dialog with nothing in
// flight; it drives the submit button.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen && c.validLocked()
}

func (c *Controller) validLocked() bool {
	d := c.draft
	if !present(d.CaptchaToken) {
		return false
	}
	if !present(d.PhoneNumber) || !c.phone.Valid(*d.PhoneNumber) {
		return false
	}
	if c.strict {
		if !present(d.FullName) {
			return false
		}
		if d.Email == nil || !ValidEmail(*d.Email) {
			return false
		}
	}
	return true
}

func (c *Controller) errorsLocked() FieldErrors {
	d := c.draft
	return FieldErrors{
		FullName: d.FullName != nil && *d.FullName == "",
		Email:    d.Email != nil && !ValidEmail(*d.Email),
		PhoneNumber: d.PhoneTouched &&
			present(d.PhoneNumber) &&
			beyondCallingCode(*d.PhoneNumber) &&
			!c.phone.Valid(*d.PhoneNumber),
	}
}

// FieldErrors reports which inputs render in error.
func (c *Controller) FieldErrors() FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errorsLocked()
}

// State returns the dialog state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View is a consistent read of the dialog for rendering.
type View struct {
	State     State
	Draft     Draft
	Errors    FieldErrors
	CanSubmit bool
	Strict    bool
}

// Open reports whether the dialog is visible.
func (v View) Open() bool {
	return v.State != StateClosed
}

// Snapshot copies the dialog state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		State:     c.state,
		Draft:     c.draft.clone(),
		Errors:    c.errorsLocked(),
		CanSubmit: c.state == StateOpen && c.validLocked(),
		Strict:    c.strict,
	}
}

// Submit sends the draft once. A second call while the first is in flight
// returns ErrSubmitInFlight without a request. On failure the CAPTCHA is
// reset, the draft is kept and the dialog stays open; the OnSubmit callback
// is told either way unless the dialog was closed meanwhile. Failures wrap
// ErrSubmitFailed.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateClosed, StateSucceeded:
		c.mu.Unlock()
		return ErrDialogClosed
	case StateSubmitting:
		c.mu.Unlock()
		c.metrics.rejected("in_flight")
		return ErrSubmitInFlight
	}
	if !c.validLocked() {
		c.mu.Unlock()
		return ErrFormInvalid
	}
	req := c.draft.Request()
	c.state = StateSubmitting
	c.mu.Unlock()

	start := time.Now()
	err := c.submitter.RequestResume(ctx, req)
	c.metrics.observe(err != nil, time.Since(start).Seconds())

	c.mu.Lock()
	// A dialog closed mid-flight gets no callback.
	active := c.state == StateSubmitting
	if err != nil {
		c.resetCaptchaLocked()
		if active {
			c.state = StateOpen
		}
	} else if active {
		c.state = StateSucceeded
	}
	onSubmit := c.onSubmit
	c.mu.Unlock()

	if err != nil {
		c.logger.Info("resume request failed", "error", err.Error(), "dialogOpen", active)
		if active {
			onSubmit(true)
		}
		return fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	c.logger.Info("resume request sent", "dialogOpen", active)
	if active {
		onSubmit(false)
	}
	return nil
}
