package chat

import (
	"fmt"
	"strings"

	"github.com/futig/chat-backend/internal/entity"
)

// ModelRegistry holds the configured model catalog and resolves the
// caller-supplied model name to its configuration.
type ModelRegistry struct {
	ordered []entity.ModelConfig
	byKey   map[string]int
}

func NewModelRegistry(models []entity.ModelConfig) *ModelRegistry {
	r := &ModelRegistry{
		ordered: models,
		byKey:   make(map[string]int, len(models)*2),
	}
	for i, m := range models {
		r.byKey[strings.ToLower(m.ID)] = i
		if m.Name != "" {
			r.byKey[strings.ToLower(m.Name)] = i
		}
	}
	return r
}

// Resolve matches a model by id or display name, case-insensitively.
func (r *ModelRegistry) Resolve(name string) (*entity.ModelConfig, error) {
	i, ok := r.byKey[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrModelNotFound, name)
	}
	m := r.ordered[i]
	return &m, nil
}

// List returns the catalog in configuration order for the public API.
func (r *ModelRegistry) List() []entity.ModelDTO {
	out := make([]entity.ModelDTO, 0, len(r.ordered))
	for _, m := range r.ordered {
		out = append(out, entity.ModelDTO{
			ID:               m.ID,
			Name:             m.Name,
			SDK:              string(m.SDK),
			MaxContextTokens: m.MaxContextTokens,
			MaxOutputTokens:  m.MaxOutputTokens,
			Reasoning:        m.Reasoning,
		})
	}
	return out
}
