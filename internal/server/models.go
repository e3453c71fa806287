package server

import (
	"slices"

	"github.com/dvcrn/reasoning-proxy/internal/reasoning"
)

const ownerOpenRouter = "openrouter"

// catalogModelIDs are the upstream models known to stream reasoning tokens.
var catalogModelIDs = []string{
	"deepseek/deepseek-r1-distill-llama-70b",
	"deepseek/deepseek-r1",
	"deepseek/deepseek-r1:free",
	"anthropic/claude-3.7-sonnet",
}

type modelMetadata struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Name    string `json:"name"`
	OwnedBy string `json:"owned_by"`
}

type modelsResponse struct {
	Object string          `json:"object"`
	Data   []modelMetadata `json:"data"`
}

// ModelIDs returns the upstream ids served by the proxy: the built-in
// catalog followed by extra, without duplicates. Extra ids may carry the
// routing prefix.
func ModelIDs(extra []string) []string {
	ids := slices.Clone(catalogModelIDs)
	for _, id := range extra {
		id = reasoning.NormalizeModel(id)
		if id == "" || slices.Contains(ids, id) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// supportedModels lists the models as the host sees them, under the
// routing prefix.
func supportedModels(extra []string) []modelMetadata {
	ids := ModelIDs(extra)
	models := make([]modelMetadata, 0, len(ids))
	for _, id := range ids {
		prefixed := reasoning.RoutingPrefix + id
		models = append(models, modelMetadata{
			ID:      prefixed,
			Object:  "model",
			Name:    prefixed,
			OwnedBy: ownerOpenRouter,
		})
	}
	return models
}
