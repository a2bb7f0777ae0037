package resume

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acceptPhones treats the listed numbers as valid and leaves input as typed.
type acceptPhones map[string]bool

func (a acceptPhones) Normalize(raw string) string { return raw }
func (a acceptPhones) Valid(phone string) bool     { return a[phone] }

type fakeSubmitter struct {
	mu      sync.Mutex
	reqs    []Request
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeSubmitter) RequestResume(ctx context.Context, req Request) error {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

type countingCaptcha struct{ resets int }

func (c *countingCaptcha) Reset() { c.resets++ }

const scenarioPhone = "+1 555 000 1234"

func fillScenario(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.Update(FieldFullName, "Jane Doe"))
	require.NoError(t, c.Update(FieldEmail, "jane@example.com"))
	require.NoError(t, c.Update(FieldPhoneNumber, scenarioPhone))
	require.NoError(t, c.SetCaptchaToken("tok"))
}

func newScenarioController(sub Submitter, opts ...Option) *Controller {
	opts = append([]Option{WithPhoneValidator(acceptPhones{scenarioPhone: true})}, opts...)
	c := NewController(sub, opts...)
	c.Open()
	return c
}

func TestSubmitDisabledWithoutCaptcha(t *testing.T) {
	c := newScenarioController(&fakeSubmitter{})
	fillScenario(t, c)
	require.True(t, c.CanSubmit())

	require.NoError(t, c.SetCaptchaToken(""))
	assert.False(t, c.IsValidForm())
	assert.False(t, c.CanSubmit())
	assert.ErrorIs(t, c.Submit(context.Background()), ErrFormInvalid)
}

func TestSubmitDisabledWithoutValidPhone(t *testing.T) {
	c := newScenarioController(&fakeSubmitter{})
	fillScenario(t, c)

	require.NoError(t, c.Update(FieldPhoneNumber, ""))
	assert.False(t, c.CanSubmit())

	require.NoError(t, c.Update(FieldPhoneNumber, "+1 555"))
	assert.False(t, c.CanSubmit())
}

func TestInvalidTouchedPhoneShowsError(t *testing.T) {
	c := newScenarioController(&fakeSubmitter{})
	fillScenario(t, c)
	require.NoError(t, c.Update(FieldPhoneNumber, "+1 555"))

	assert.False(t, c.FieldErrors().PhoneNumber, "untouched phone must not show an error")

	require.NoError(t, c.Blur(FieldPhoneNumber))
	assert.True(t, c.FieldErrors().PhoneNumber)
	assert.False(t, c.CanSubmit())

	require.NoError(t, c.Update(FieldPhoneNumber, "+1 5"))
	assert.False(t, c.FieldErrors().PhoneNumber, "editing clears the touched flag")
}

func TestResentPhoneKeepsTouched(t *testing.T) {
	c := newScenarioController(&fakeSubmitter{})
	require.NoError(t, c.Update(FieldPhoneNumber, "+1 555"))
	require.NoError(t, c.Blur(FieldPhoneNumber))

	// A delayed edit carrying the same number lands after the blur
	require.NoError(t, c.Update(FieldPhoneNumber, "+1 555"))

	assert.True(t, c.FieldErrors().PhoneNumber)
}

func TestCallingCodeAloneIsNotAnError(t *testing.T) {
	c := newScenarioController(&fakeSubmitter{})
	require.NoError(t, c.Update(FieldPhoneNumber, "+1"))
	require.NoError(t, c.Blur(FieldPhoneNumber))
	assert.False(t, c.FieldErrors().PhoneNumber)
}

func TestBlurSurfacesRequiredErrors(t *testing.T) {
	c := newScenarioController(&fakeSubmitter{})
	assert.Equal(t, FieldErrors{}, c.FieldErrors(), "no errors before interaction")

	require.NoError(t, c.Blur(FieldFullName))
	require.NoError(t, c.Blur(FieldEmail))
	errs := c.FieldErrors()
	assert.True(t, errs.FullName)
	assert.True(t, errs.Email)

	require.NoError(t, c.Update(FieldFullName, "Jane"))
	require.NoError(t, c.Update(FieldEmail, "jane@"))
	errs = c.FieldErrors()
	assert.False(t, errs.FullName)
	assert.True(t, errs.Email)

	require.NoError(t, c.Update(FieldEmail, "jane@example.com"))
	assert.False(t, c.FieldErrors().Email)
}

func TestBlurKeepsEnteredValue(t *testing.T) {
	c := newScenarioController(&fakeSubmitter{})
	require.NoError(t, c.Update(FieldFullName, "Jane"))
	require.NoError(t, c.Blur(FieldFullName))
	assert.Equal(t, "Jane", c.Snapshot().Draft.Value(FieldFullName))
}

func TestClearingFieldShowsError(t *testing.T) {
	c := newScenarioController(&fakeSubmitter{})
	require.NoError(t, c.Update(FieldFullName, "J"))
	require.NoError(t, c.Update(FieldFullName, ""))
	assert.True(t, c.FieldErrors().FullName)
}

func TestRelaxedModeIgnoresNameAndEmail(t *testing.T) {
	strict := newScenarioController(&fakeSubmitter{})
	relaxed := newScenarioController(&fakeSubmitter{}, WithStrict(false))
	for _, c := range []*Controller{strict, relaxed} {
		require.NoError(t, c.Update(FieldPhoneNumber, scenarioPhone))
		require.NoError(t, c.SetCaptchaToken("tok"))
		require.NoError(t, c.Update(FieldEmail, "not-an-email"))
	}
	assert.False(t, strict.CanSubmit())
	assert.True(t, relaxed.CanSubmit())
	assert.True(t, relaxed.FieldErrors().Email, "errors still render in relaxed mode")
}

func TestSubmitSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer ts.Close()

	var calls []bool
	closes := 0
	var c *Controller
	c = newScenarioController(NewClient(ts.URL), WithOnSubmit(func(didError bool) {
		calls = append(calls, didError)
		if !didError {
			closes++
			c.Close()
		}
	}))
	fillScenario(t, c)

	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, []bool{false}, calls)
	assert.Equal(t, 1, closes)
	assert.Equal(t, StateClosed, c.State())
}

func TestSubmitSendsDraft(t *testing.T) {
	sub := &fakeSubmitter{}
	c := newScenarioController(sub)
	fillScenario(t, c)
	require.NoError(t, c.Update(FieldCompany, "Acme"))

	require.NoError(t, c.Submit(context.Background()))
	require.Equal(t, 1, sub.count())

	want := Request{
		RecaptchaResponse: strPtr("tok"),
		FullName:          strPtr("Jane Doe"),
		Email:             strPtr("jane@example.com"),
		PhoneNumber:       strPtr(scenarioPhone),
		Company:           strPtr("Acme"),
	}
	if diff := cmp.Diff(want, sub.reqs[0]); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, StateSucceeded, c.State())
	assert.False(t, c.CanSubmit())
	assert.ErrorIs(t, c.Submit(context.Background()), ErrDialogClosed)
	assert.Equal(t, 1, sub.count())
}

func TestSubmitServerErrorResetsCaptcha(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	captcha := &countingCaptcha{}
	var calls []bool
	c := newScenarioController(NewClient(ts.URL),
		WithCaptcha(captcha),
		WithOnSubmit(func(didError bool) { calls = append(calls, didError) }),
	)
	fillScenario(t, c)

	err := c.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitFailed)
	var se *StatusError
	require.ErrorAs(t, err, &se)

	assert.Equal(t, []bool{true}, calls)
	assert.Equal(t, 1, captcha.resets)

	view := c.Snapshot()
	assert.Nil(t, view.Draft.CaptchaToken)
	assert.Equal(t, StateOpen, view.State)
	assert.Equal(t, "Jane Doe", view.Draft.Value(FieldFullName))
	assert.False(t, view.CanSubmit)

	require.NoError(t, c.SetCaptchaToken("tok2"))
	assert.True(t, c.CanSubmit(), "re-solving the challenge allows a retry")
}

func TestSubmitRejectedAndTransportFailures(t *testing.T) {
	for name, subErr := range map[string]error{
		"rejected":  ErrRejected,
		"transport": errors.New("connection refused"),
	} {
		t.Run(name, func(t *testing.T) {
			captcha := &countingCaptcha{}
			var calls []bool
			c := newScenarioController(&fakeSubmitter{err: subErr},
				WithCaptcha(captcha),
				WithOnSubmit(func(didError bool) { calls = append(calls, didError) }),
			)
			fillScenario(t, c)

			err := c.Submit(context.Background())
			assert.ErrorIs(t, err, ErrSubmitFailed)
			assert.ErrorIs(t, err, subErr)
			assert.Equal(t, []bool{true}, calls)
			assert.Equal(t, 1, captcha.resets)
			assert.Equal(t, StateOpen, c.State())
		})
	}
}

func TestSubmitInFlightGuard(t *testing.T) {
	sub := &fakeSubmitter{started: make(chan struct{}), release: make(chan struct{})}
	c := newScenarioController(sub)
	fillScenario(t, c)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	<-sub.started

	assert.Equal(t, StateSubmitting, c.State())
	assert.False(t, c.CanSubmit())
	assert.ErrorIs(t, c.Submit(context.Background()), ErrSubmitInFlight)

	close(sub.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sub.count())
}

func TestCloseDuringSubmitSkipsCallback(t *testing.T) {
	for _, tt := range []struct {
		name string
		err  error
	}{
		{name: "failure", err: errors.New("boom")},
		{name: "success"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{err: tt.err, started: make(chan struct{}), release: make(chan struct{})}
			var calls []bool
			c := newScenarioController(sub, WithOnSubmit(func(didError bool) { calls = append(calls, didError) }))
			fillScenario(t, c)

			done := make(chan error, 1)
			go func() { done <- c.Submit(context.Background()) }()
			<-sub.started
			c.Close()
			close(sub.release)

			err := <-done
			if tt.err != nil {
				assert.ErrorIs(t, err, ErrSubmitFailed)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, StateClosed, c.State())
			assert.Empty(t, calls)
		})
	}
}

func TestCloseDiscardsDraft(t *testing.T) {
	captcha := &countingCaptcha{}
	c := newScenarioController(&fakeSubmitter{}, WithCaptcha(captcha))
	fillScenario(t, c)

	c.Close()
	assert.Equal(t, 1, captcha.resets)
	assert.Equal(t, StateClosed, c.State())
	assert.ErrorIs(t, c.Update(FieldFullName, "x"), ErrDialogClosed)
	assert.ErrorIs(t, c.Submit(context.Background()), ErrDialogClosed)

	c.Open()
	view := c.Snapshot()
	assert.True(t, view.Open())
	assert.Equal(t, Draft{}, view.Draft)
}

func TestUnknownField(t *testing.T) {
	c := newScenarioController(&fakeSubmitter{})
	assert.ErrorIs(t, c.Update(Field("captcha"), "x"), ErrUnknownField)
	assert.ErrorIs(t, c.Blur(Field("captcha")), ErrUnknownField)
}

func TestMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	ok := newScenarioController(&fakeSubmitter{}, WithMetrics(m))
	fillScenario(t, ok)
	require.NoError(t, ok.Submit(context.Background()))

	bad := newScenarioController(&fakeSubmitter{err: ErrRejected}, WithMetrics(m))
	fillScenario(t, bad)
	require.Error(t, bad.Submit(context.Background()))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("failure")))
}
