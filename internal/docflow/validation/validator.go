package validation

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"docflow/internal/docflow/domain"
)

// MaxFileSize is the largest accepted document, 10 MiB.
const MaxFileSize int64 = 10 * 1024 * 1024

const pdfMIME = "application/pdf"

type Reason string

const (
	ReasonMissing         Reason = "missing"
	ReasonTooLarge        Reason = "too-large"
	ReasonUnsupportedType Reason = "unsupported-type"
)

// ValidationError explains why a candidate was rejected.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonMissing:
		return "Please select a file"
	case ReasonTooLarge:
		return "File size must be less than 10MB"
	case ReasonUnsupportedType:
		return "Only PDF files are allowed"
	default:
		return fmt.Sprintf("file rejected: %s", e.Reason)
	}
}

// Validator accepts or rejects candidate files.
type Validator struct {
	pdfOnly bool
}

type Option func(*Validator)

// WithPDFOnly enables content sniffing and rejects anything that is not a PDF.
func WithPDFOnly(enabled bool) Option {
	return func(v *Validator) {
		v.pdfOnly = enabled
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate returns the accepted file or a *ValidationError.
func (v *Validator) Validate(c *domain.Candidate) (*domain.SelectedFile, error) {
	if c == nil {
		return nil, &ValidationError{Reason: ReasonMissing}
	}

	if c.SizeBytes > MaxFileSize {
		return nil, &ValidationError{Reason: ReasonTooLarge}
	}

	if !v.pdfOnly {
		return domain.NewSelectedFile(c, ""), nil
	}

	contentType, err := sniff(c)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", c.Name, err)
	}
	if contentType != pdfMIME {
		return nil, &ValidationError{Reason: ReasonUnsupportedType}
	}

	return domain.NewSelectedFile(c, contentType), nil
}

// sniff prefers the content over the declared type; the declared type is used
// only when there is nothing to read.
func sniff(c *domain.Candidate) (string, error) {
	if c.Open == nil {
		return c.ContentType, nil
	}

	r, err := c.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	if mt.Is(pdfMIME) {
		return pdfMIME, nil
	}
	return mt.String(), nil
}
