package httptransport

// consentPayload mirrors the consent flags collected at intake.
type consentPayload struct {
	IdentityVerification bool `json:"identityVerification"`
	ContactUse           bool `json:"contactUse"`
}

type contactPayload struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type initiateRequest struct {
	DocumentType   string         `json:"documentType"`
	DocumentNumber string         `json:"documentNumber"`
	Consent        consentPayload `json:"consent"`
	Contact        contactPayload `json:"contact"`
}

type verifyOtpRequest struct {
	ReferenceID string `json:"referenceId"`
	Otp         string `json:"otp"`
}

type resendOtpRequest struct {
	ReferenceID    string `json:"referenceId"`
	DocumentNumber string `json:"documentNumber"`
}

type statusResponse struct {
	ReferenceID string `json:"referenceId"`
	Status      string `json:"status"`
}

type auditEntryResponse struct {
	Operation string `json:"operation"`
	Outcome   string `json:"outcome"`
	Payload   string `json:"payload,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Timestamp string `json:"timestamp"`
}
