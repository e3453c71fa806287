package reasoning

import (
	"maps"
	"strings"
)

// RoutingPrefix marks the model ids this proxy exposes to the host.
const RoutingPrefix = "reasoning/"

// NormalizeModel maps a host-facing model id to the upstream canonical id.
// Hosts may namespace ids as "<namespace>.<id>"; the namespace is dropped
// first, then the routing prefix. A namespace never contains "/", which
// keeps dots inside ids such as "anthropic/claude-3.7-sonnet" intact.
func NormalizeModel(model string) string {
	if i := strings.Index(model, "."+RoutingPrefix); i >= 0 {
		model = model[i+1:]
	} else if ns, rest, ok := strings.Cut(model, "."); ok && ns != "" && !strings.Contains(ns, "/") && strings.Contains(rest, "/") {
		model = rest
	}
	return strings.TrimPrefix(model, RoutingPrefix)
}

// NormalizeRequest returns a copy of body ready for the upstream API: the
// model id is normalized and reasoning output is requested. A missing or
// non-string model passes through untouched. body itself is not modified.
func NormalizeRequest(body map[string]any) map[string]any {
	out := make(map[string]any, len(body)+1)
	maps.Copy(out, body)
	if model, ok := out["model"].(string); ok {
		out["model"] = NormalizeModel(model)
	}
	out["include_reasoning"] = true
	return out
}

// IsStreaming reports whether the request asks for a streamed response.
func IsStreaming(body map[string]any) bool {
	stream, _ := body["stream"].(bool)
	return stream
}
