// Package masking renders PII-bearing values into partially-redacted forms for
// logs and audit trails. Masking is irreversible: no unmasking function exists.
package masking

import "strings"

// Kind selects the redaction rule applied to a value.
type Kind string

const (
	KindDocumentNumber Kind = "documentNumber"
	KindPhone          Kind = "phone"
	KindEmail          Kind = "email"
	KindName           Kind = "name"
)

// placeholder is returned for empty or malformed input. Mask sits on every
// audit and log path, so it must never fail.
const placeholder = "****"

// Mask returns the redacted form of value for the given kind. It is total:
// unknown kinds and unusable input collapse to a fixed placeholder.
func Mask(kind Kind, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return placeholder
	}
	switch kind {
	case KindDocumentNumber:
		return maskDocumentNumber(value)
	case KindPhone:
		return maskPhone(value)
	case KindEmail:
		return maskEmail(value)
	case KindName:
		return maskName(value)
	default:
		return placeholder
	}
}

// maskDocumentNumber exposes only the last four characters behind a
// fixed-length prefix, regardless of the document's real length.
func maskDocumentNumber(v string) string {
	if len(v) < 4 {
		return placeholder
	}
	return "XXXX-XXXX-" + v[len(v)-4:]
}

func maskPhone(v string) string {
	if len(v) < 4 {
		return placeholder
	}
	return "XXXX-" + v[len(v)-4:]
}

// maskEmail keeps the first character of the local part and the full domain.
func maskEmail(v string) string {
	at := strings.IndexByte(v, '@')
	if at < 1 || at == len(v)-1 {
		return placeholder
	}
	return v[:1] + "***@" + v[at+1:]
}

// maskName keeps the first letter of each whitespace-separated token.
func maskName(v string) string {
	tokens := strings.Fields(v)
	if len(tokens) == 0 {
		return placeholder
	}
	masked := make([]string, len(tokens))
	for i, tok := range tokens {
		r := []rune(tok)
		masked[i] = string(r[0]) + "***"
	}
	return strings.Join(masked, " ")
}
