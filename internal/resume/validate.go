package resume

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// emailPattern accepts dotted or quoted local parts, and either a bracketed
// IPv4 literal or a dotted host whose last label has at least two letters.
var emailPattern = regexp.MustCompile(`^(([^<>()[\]\\.,;:\s@"]+(\.[^<>()[\]\\.,;:\s@"]+)*)|.(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)

// ValidEmail reports whether s looks like local@domain.tld.
func ValidEmail(s string) bool {
	if s == "" {
		return false
	}
	return emailPattern.MatchString(strings.ToLower(s))
}

// PhoneValidator normalises raw phone input and decides whether the result
// is a dialable number.
type PhoneValidator interface {
	Normalize(raw string) string
	Valid(phone string) bool
}

// DefaultRegion is used for numbers typed without a calling code.
const DefaultRegion = "US"

// LibPhoneNumber validates numbers against libphonenumber metadata.
type LibPhoneNumber struct {
	Region string
}

func (l LibPhoneNumber) region() string {
	if l.Region == "" {
		return DefaultRegion
	}
	return strings.ToUpper(l.Region)
}

// Normalize forces a calling code onto raw and, when the number parses as
// valid, rewrites it in international format ("+1 201-555-0123"). Invalid
// input is returned trimmed with the calling code so the visitor keeps what
// they typed.
func (l LibPhoneNumber) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "+") {
		raw = fmt.Sprintf("+%d %s", phonenumbers.GetCountryCodeForRegion(l.region()), raw)
	}
	num, err := phonenumbers.Parse(raw, l.region())
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}

// Valid reports whether phone is a valid number sharing the region's calling
// code. For the default US region that is the North American Numbering
// Plan (US, Canada and the rest of +1).
func (l LibPhoneNumber) Valid(phone string) bool {
	if strings.TrimSpace(phone) == "" {
		return false
	}
	num, err := phonenumbers.Parse(phone, l.region())
	if err != nil {
		return false
	}
	if int(num.GetCountryCode()) != phonenumbers.GetCountryCodeForRegion(l.region()) {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// beyondCallingCode is true once the visitor has typed past "+1".
func beyondCallingCode(phone string) bool {
	return len(strings.Split(phone, " ")) > 1
}
