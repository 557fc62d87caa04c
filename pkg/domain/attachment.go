package domain

import (
	"slices"
	"time"
)

// RawFile is an uploaded file as declared by the caller, before validation.
type RawFile struct {
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Attachment is a file that passed validation and may be referenced by a request.
type Attachment struct {
	FileName  string    `json:"fileName"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	OriginAt  time.Time `json:"originAt"`
}

// CloneAttachments copies a slice of attachments. A nil input stays nil.
func CloneAttachments(in []Attachment) []Attachment {
	return slices.Clone(in)
}
