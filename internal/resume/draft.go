// Package resume drives the "Request Resume" dialog: it owns the draft the
// visitor is editing, decides when the form may be sent and performs the
// single request to the resume backend.
package resume

import "fmt"

// Field names one editable input of the dialog. The values double as the
// JSON keys of the outbound request and the route parameter of the HTMX
// endpoints.
type Field string

const (
	FieldFullName    Field = "fullName"
	FieldEmail       Field = "email"
	FieldPhoneNumber Field = "phoneNumber"
	FieldCompany     Field = "company"
	FieldMessage     Field = "message"
)

// Fields lists the editable inputs in the order the dialog renders them.
var Fields = []Field{FieldFullName, FieldEmail, FieldPhoneNumber, FieldCompany, FieldMessage}

// ParseField maps a route parameter onto a Field.
func ParseField(s string) (Field, error) {
	for _, f := range Fields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("resume: unknown field %q: %w", s, ErrUnknownField)
}

// Draft is the visitor's in-progress submission. A nil pointer means the
// field has never been set, which is distinct from an explicit empty value:
// only the latter surfaces an error.
type Draft struct {
	FullName     *string
	Email        *string
	PhoneNumber  *string
	Company      *string
	Message      *string
	CaptchaToken *string

	// PhoneTouched is set when the phone input loses focus and cleared on
	// the next edit.
	PhoneTouched bool
}

func (d *Draft) slot(f Field) **string {
	switch f {
	case FieldFullName:
		return &d.FullName
	case FieldEmail:
		return &d.Email
	case FieldPhoneNumber:
		return &d.PhoneNumber
	case FieldCompany:
		return &d.Company
	case FieldMessage:
		return &d.Message
	}
	return nil
}

// Value returns the stored value of f, or "" when it is unset.
func (d Draft) Value(f Field) string {
	p := d.slot(f)
	if p == nil || *p == nil {
		return ""
	}
	return **p
}

// Request builds the wire body for the draft.
func (d Draft) Request() Request {
	return Request{
		RecaptchaResponse: clonePtr(d.CaptchaToken),
		FullName:          clonePtr(d.FullName),
		Email:             clonePtr(d.Email),
		PhoneNumber:       clonePtr(d.PhoneNumber),
		Company:           clonePtr(d.Company),
		Message:           clonePtr(d.Message),
	}
}

func (d Draft) clone() Draft {
	return Draft{
		FullName:     clonePtr(d.FullName),
		Email:        clonePtr(d.Email),
		PhoneNumber:  clonePtr(d.PhoneNumber),
		Company:      clonePtr(d.Company),
		Message:      clonePtr(d.Message),
		CaptchaToken: clonePtr(d.CaptchaToken),
		PhoneTouched: d.PhoneTouched,
	}
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func present(p *string) bool {
	return p != nil && *p != ""
}

// FieldErrors reports which inputs should render in their error state.
type FieldErrors struct {
	FullName    bool
	Email       bool
	PhoneNumber bool
}

// Has reports the error flag for f. Company and message never error.
func (e FieldErrors) Has(f Field) bool {
	switch f {
	case FieldFullName:
		return e.FullName
	case FieldEmail:
		return e.Email
	case FieldPhoneNumber:
		return e.PhoneNumber
	}
	return false
}
