package domain

import "slices"

// Agent is a registered agent identity and the capabilities it advertises.
type Agent struct {
	ID           string   `json:"id" yaml:"id"`
	DisplayName  string   `json:"displayName" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
}

// Clone returns a copy of the agent that shares no slices with the receiver.
func (a Agent) Clone() Agent {
	a.Capabilities = slices.Clone(a.Capabilities)
	return a
}

// HasCapability reports whether the agent advertises the named capability.
func (a Agent) HasCapability(name string) bool {
	return slices.Contains(a.Capabilities, name)
}
