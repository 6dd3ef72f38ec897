package identity

import (
	dErrors "verity/pkg/domain-errors"
)

// DocumentType selects the validation rule applied to a document number.
// Invariant: the value must be one of the supported document types.
//
// Usage: construct via ParseDocumentType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type DocumentType string

const (
	DocumentTypeNationalID12 DocumentType = "NATIONAL_ID_12"
	DocumentTypeVirtualID16  DocumentType = "VIRTUAL_ID_16"
	DocumentTypePassport     DocumentType = "PASSPORT"
)

// validDocumentTypes is the single source of truth for supported types.
var validDocumentTypes = map[DocumentType]bool{
	DocumentTypeNationalID12: true,
	DocumentTypeVirtualID16:  true,
	DocumentTypePassport:     true,
}

// ParseDocumentType constructs a DocumentType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseDocumentType(s string) (DocumentType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document type cannot be empty")
	}
	dt := DocumentType(s)
	if !dt.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported document type")
	}
	return dt, nil
}

// IsValid checks if the document type is one of the supported enum values.
func (d DocumentType) IsValid() bool {
	return validDocumentTypes[d]
}

// String returns the string representation of the document type.
func (d DocumentType) String() string {
	return string(d)
}
