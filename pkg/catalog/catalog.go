// Package catalog holds the read-only registry of agents available to workflows.
package catalog

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/polisai/omnis/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Catalog is an immutable, insertion-ordered registry of agents.
// It is seeded once by New and never mutated, so concurrent reads need no locking.
type Catalog struct {
	agents []domain.Agent
	index  map[string]int
}

// New seeds a catalog from the given agents. Agent IDs must be non-blank and unique.
// Capabilities are normalised to a sorted set.
func New(agents []domain.Agent) (*Catalog, error) {
	c := &Catalog{
		agents: make([]domain.Agent, 0, len(agents)),
		index:  make(map[string]int, len(agents)),
	}

	for i, a := range agents {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			return nil, &domain.ValidationError{
				Field:  fmt.Sprintf("agents[%d].id", i),
				Reason: "must not be blank",
			}
		}
		if _, dup := c.index[id]; dup {
			return nil, &domain.ValidationError{
				Field:  fmt.Sprintf("agents[%d].id", i),
				Reason: fmt.Sprintf("duplicate agent id %q", id),
			}
		}

		agent := a.Clone()
		agent.ID = id
		slices.Sort(agent.Capabilities)
		agent.Capabilities = slices.Compact(agent.Capabilities)

		c.index[id] = len(c.agents)
		c.agents = append(c.agents, agent)
	}

	return c, nil
}

// List returns every agent in insertion order.
func (c *Catalog) List() []domain.Agent {
	out := make([]domain.Agent, len(c.agents))
	for i, a := range c.agents {
		out[i] = a.Clone()
	}
	return out
}

// Get returns the agent registered under id.
func (c *Catalog) Get(id string) (domain.Agent, error) {
	i, ok := c.index[id]
	if !ok {
		return domain.Agent{}, &domain.NotFoundError{Kind: "agent", ID: id}
	}
	return c.agents[i].Clone(), nil
}

// Contains reports whether id is registered.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Len returns the number of registered agents.
func (c *Catalog) Len() int {
	return len(c.agents)
}

// File is the YAML document accepted by LoadFile.
type File struct {
	Agents []domain.Agent `yaml:"agents"`
}

// LoadFile seeds a catalog from a YAML file of the form:
//
//	agents:
//	  - id: agent-demo
//	    name: Demo Assistant
//	    description: ...
//	    capabilities: [General Inquiry]
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if len(file.Agents) == 0 {
		return nil, &domain.ValidationError{Field: "agents", Reason: "catalog file declares no agents"}
	}

	return New(file.Agents)
}

// Marshal renders the catalog in the LoadFile format.
func (c *Catalog) Marshal() ([]byte, error) {
	return yaml.Marshal(File{Agents: c.List()})
}
