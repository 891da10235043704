package llm

import "strings"

// syntheticOpening is inserted when an alternation-constrained backend
// would otherwise see an assistant message first.
const syntheticOpening = "Hello"

// ExtractSystem splits the leading system-role content out of msgs for
// backends that take the system prompt as a separate parameter. All
// system messages are collected (joined with a blank line) regardless of
// position; the returned slice preserves the order of the remaining
// messages.
func ExtractSystem(msgs []Message) (system string, rest []Message) {
	var parts []string
	rest = make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, "\n\n"), rest
}

// MergeAlternating rewrites msgs so that user and assistant turns strictly
// alternate, as required by some backends:
//
//   - consecutive same-role messages are merged into one, contents joined
//     with a blank line, preserving original order;
//   - if the first message is not user-role, a synthetic neutral user
//     opening is inserted.
//
// msgs must not contain system-role messages; call [ExtractSystem] first.
// The input slice is never modified.
func MergeAlternating(msgs []Message) []Message {
	if len(msgs) == 0 {
		return nil
	}

	out := make([]Message, 0, len(msgs)+1)
	if msgs[0].Role != RoleUser {
		out = append(out, Message{Role: RoleUser, Content: syntheticOpening})
	}

	for _, m := range msgs {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}

// RepairJSONPrefix prepends "{" to content when a prefill-based JSON mode
// was used and the backend's text does not already start with one. The
// prefilled "{" is consumed by the backend and not echoed back, so without
// this repair downstream JSON parsing breaks.
func RepairJSONPrefix(content string) string {
	if strings.HasPrefix(strings.TrimLeft(content, " \t\r\n"), "{") {
		return content
	}
	return "{" + content
}
