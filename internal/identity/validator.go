// Package identity validates identity-document numbers and contact fields
// before any request state is created or any remote call is made.
package identity

import (
	"regexp"

	dErrors "verity/pkg/domain-errors"
)

// Machine-readable validation reasons. The invalid number itself is never
// included in the error.
const (
	ReasonBadFormat   = "BAD_FORMAT"
	ReasonBadChecksum = "BAD_CHECKSUM"
)

var (
	// nationalIDPattern: 12 digits, leading 0/1 reserved by the scheme.
	nationalIDPattern = regexp.MustCompile(`^[2-9][0-9]{11}$`)
	// virtualIDPattern: 16 digits, first nonzero; Virtual IDs carry no checksum.
	virtualIDPattern = regexp.MustCompile(`^[1-9][0-9]{15}$`)
	mobilePattern    = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	emailPattern     = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)
)

// PassportPattern is the passport number rule: one uppercase letter followed
// by seven digits. Deployments with a different passport scheme override it
// at startup before serving traffic.
var PassportPattern = regexp.MustCompile(`^[A-Z][0-9]{7}$`)

// Validate checks the document number's format and, for national IDs, its
// Verhoeff checksum. It is a pure function with no side effects; errors carry
// a machine-readable reason and never echo the number.
func Validate(documentType DocumentType, number string) error {
	switch documentType {
	case DocumentTypeNationalID12:
		if !nationalIDPattern.MatchString(number) {
			return dErrors.New(dErrors.CodeValidation, ReasonBadFormat)
		}
		if !verhoeffValid(number) {
			return dErrors.New(dErrors.CodeValidation, ReasonBadChecksum)
		}
		return nil
	case DocumentTypeVirtualID16:
		if !virtualIDPattern.MatchString(number) {
			return dErrors.New(dErrors.CodeValidation, ReasonBadFormat)
		}
		return nil
	case DocumentTypePassport:
		if !PassportPattern.MatchString(number) {
			return dErrors.New(dErrors.CodeValidation, ReasonBadFormat)
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeInvalidInput, "unsupported document type")
	}
}

// IsValidMobile reports whether the value looks like a mobile number the
// authority can deliver an OTP to.
func IsValidMobile(mobile string) bool {
	return mobilePattern.MatchString(mobile)
}

// IsValidEmail performs a shallow email shape check for optional contact fields.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
