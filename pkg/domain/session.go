package domain

import (
	"slices"
	"time"
)

// View is the presentation the caller prefers to land on after a submission.
type View string

// Known views.
const (
	ViewDAG       View = "DAG"
	ViewChat      View = "Chat"
	ViewDashboard View = "Dashboard"
)

// Valid reports whether v is a known view.
func (v View) Valid() bool {
	return slices.Contains([]View{ViewDAG, ViewChat, ViewDashboard}, v)
}

// Session is the per-identity conversational state kept for the process lifetime.
type Session struct {
	Identity      string       `json:"identity"`
	LastPrompt    string       `json:"lastPrompt"`
	Attachments   []Attachment `json:"attachments"`
	PreferredView View         `json:"preferredView"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Clone returns a copy of the session that shares no slices with the receiver.
func (s Session) Clone() Session {
	s.Attachments = CloneAttachments(s.Attachments)
	return s
}
