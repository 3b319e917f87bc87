// Package contactfilter detects attempts to exchange off-platform contact
// details in free text.
package contactfilter

import (
	"errors"
	"regexp"
)

// Class names a family of contact patterns.
type Class string

const (
	ClassMobile    Class = "mobile"
	ClassPhone     Class = "phone"
	ClassEmail     Class = "email"
	ClassURL       Class = "url"
	ClassDomain    Class = "domain"
	ClassMessenger Class = "messenger"
	ClassChat      Class = "chat"
)

// Message is shown to users whenever a field is rejected.
const Message = "연락처/카카오톡ID/외부 링크는 입력할 수 없습니다. 수락 후에만 연락처가 공개됩니다."

// ErrContactInfo is returned by Check when text contains contact details.
var ErrContactInfo = errors.New(Message)

type pattern struct {
	class Class
	re    *regexp.Regexp
}

// Order matters only for which class Match reports first.
var patterns = []pattern{
	{ClassMobile, regexp.MustCompile(`01[016789][ -]?\d{3,4}[ -]?\d{4}`)},
	{ClassPhone, regexp.MustCompile(`\b0\d{1,2}[ -]?\d{3,4}[ -]?\d{4}\b`)},
	{ClassEmail, regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)},
	{ClassURL, regexp.MustCompile(`(?i)(https?://|www\.)`)},
	{ClassDomain, regexp.MustCompile(`(?i)\.(com|net|io|co|kr|me|app|link|gg|tv)\b`)},
	{ClassMessenger, regexp.MustCompile(`(?i)(카톡|카카오|kakao|오픈채팅|open\.kakao|아이디|\bID\b)`)},
	{ClassChat, regexp.MustCompile(`(?i)(텔레그램|telegram|라인|line|디스코드|discord)`)},
}

// Match returns the first pattern class found in text.
func Match(text string) (Class, bool) {
	if text == "" {
		return "", false
	}
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return p.class, true
		}
	}
	return "", false
}

// ContainsContactInfo reports whether text contains anything that looks like
// contact information.
func ContainsContactInfo(text string) bool {
	_, found := Match(text)
	return found
}

// Check returns ErrContactInfo if text contains contact information.
func Check(text string) error {
	if ContainsContactInfo(text) {
		return ErrContactInfo
	}
	return nil
}
