// Package attachment enforces the type and size policy for uploaded evidence.
package attachment

import (
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/polisai/omnis/pkg/domain"
)

// DefaultMaxSizeBytes is the largest accepted upload (10 MiB).
const DefaultMaxSizeBytes int64 = 10 * 1024 * 1024

// Supported MIME types.
const (
	TypePDF       = "application/pdf"
	TypeDoc       = "application/msword"
	TypeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TypeXls       = "application/vnd.ms-excel"
	TypeXlsx      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	TypePpt       = "application/vnd.ms-powerpoint"
	TypePptx      = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	TypePlainText = "text/plain"
	TypeCSV       = "text/csv"
)

// Rejection reasons reported in debug logs.
const (
	ReasonMissingName     = "missing_name"
	ReasonUnsupportedType = "unsupported_type"
	ReasonTooLarge        = "too_large"
	ReasonInvalidSize     = "invalid_size"
)

// Policy is the allow-list and size ceiling applied to uploads.
type Policy struct {
	AllowedTypes []string
	MaxSizeBytes int64
}

// DefaultPolicy allows PDF, Word, Excel, PowerPoint, plain text, and CSV up to 10 MiB.
func DefaultPolicy() Policy {
	return Policy{
		AllowedTypes: []string{
			TypePDF,
			TypeDocx,
			TypeDoc,
			TypeXlsx,
			TypeXls,
			TypePptx,
			TypePpt,
			TypePlainText,
			TypeCSV,
		},
		MaxSizeBytes: DefaultMaxSizeBytes,
	}
}

// Result is the outcome of Filter.
type Result struct {
	Accepted      []domain.Attachment
	RejectedCount int
}

// Validator filters raw uploads against a Policy. It holds no mutable state.
type Validator struct {
	allowed map[string]struct{}
	maxSize int64
	now     func() time.Time
	logger  *slog.Logger
}

// NewValidator creates a validator for the given policy.
// An empty allow-list or non-positive size falls back to the defaults.
func NewValidator(policy Policy, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultPolicy()
	if len(policy.AllowedTypes) == 0 {
		policy.AllowedTypes = defaults.AllowedTypes
	}
	if policy.MaxSizeBytes <= 0 {
		policy.MaxSizeBytes = defaults.MaxSizeBytes
	}

	allowed := make(map[string]struct{}, len(policy.AllowedTypes))
	for _, t := range policy.AllowedTypes {
		allowed[normalizeType(t)] = struct{}{}
	}

	return &Validator{
		allowed: allowed,
		maxSize: policy.MaxSizeBytes,
		now:     time.Now,
		logger:  logger,
	}
}

// Filter keeps the candidates whose type is allowed and whose size is within the
// limit, preserving input order. Rejected files are counted, never retained.
func (v *Validator) Filter(candidates []domain.RawFile) Result {
	result := Result{Accepted: make([]domain.Attachment, 0, len(candidates))}
	originAt := v.now().UTC()

	for _, f := range candidates {
		if reason, ok := v.check(f); !ok {
			result.RejectedCount++
			v.logger.Debug("Attachment rejected",
				"file_name", f.FileName,
				"mime_type", f.MimeType,
				"size_bytes", f.SizeBytes,
				"reason", reason,
			)
			continue
		}

		result.Accepted = append(result.Accepted, domain.Attachment{
			FileName:  f.FileName,
			MimeType:  f.MimeType,
			SizeBytes: f.SizeBytes,
			OriginAt:  originAt,
		})
	}

	return result
}

// Allowed reports whether the MIME type is on the allow-list.
func (v *Validator) Allowed(mimeType string) bool {
	_, ok := v.allowed[normalizeType(mimeType)]
	return ok
}

// MaxSizeBytes returns the configured size ceiling.
func (v *Validator) MaxSizeBytes() int64 {
	return v.maxSize
}

func (v *Validator) check(f domain.RawFile) (string, bool) {
	if strings.TrimSpace(f.FileName) == "" {
		return ReasonMissingName, false
	}
	if !v.Allowed(f.MimeType) {
		return ReasonUnsupportedType, false
	}
	if f.SizeBytes < 0 {
		return ReasonInvalidSize, false
	}
	if f.SizeBytes > v.maxSize {
		return ReasonTooLarge, false
	}
	return "", true
}

// normalizeType lowercases a MIME type and drops parameters such as charset.
func normalizeType(t string) string {
	t = strings.TrimSpace(t)
	if mediaType, _, err := mime.ParseMediaType(t); err == nil {
		return mediaType
	}
	return strings.ToLower(t)
}
