package reasoning

// inlineCloseMarker closes the reasoning block in a buffered response.
const inlineCloseMarker = "</think>\n"

// ReshapeResponse rewrites a buffered chat completion so that every message
// carrying reasoning renders it as a leading <think> block. The response is
// modified in place and returned; all other fields are left verbatim.
func ReshapeResponse(resp map[string]any) map[string]any {
	choices, ok := resp["choices"].([]any)
	if !ok {
		return resp
	}
	for _, raw := range choices {
		choice, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		message, ok := choice["message"].(map[string]any)
		if !ok {
			continue
		}
		reasoning := messageReasoning(message)
		if reasoning == "" {
			continue
		}
		content, _ := message["content"].(string)
		message["content"] = OpenMarker + reasoning + inlineCloseMarker + content
	}
	return resp
}

func messageReasoning(message map[string]any) string {
	if r, _ := message["reasoning"].(string); r != "" {
		return r
	}
	r, _ := message["reasoning_content"].(string)
	return r
}
