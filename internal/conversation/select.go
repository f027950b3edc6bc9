package conversation

import "encoding/json"

// RoleMessage is a single role-tagged textual turn selected from a tree.
type RoleMessage struct {
	Role string
	Text string
}

// SelectMessages filters materialized nodes down to textual messages whose
// role is in the requested set. Only the first textual part of a multi-part
// message is used. Empty content is dropped.
func SelectMessages(nodes []Node, roles ...string) []RoleMessage {
	want := make(map[string]bool, len(roles))
	for _, r := range roles {
		want[r] = true
	}

	var msgs []RoleMessage
	for _, node := range nodes {
		if node.Message == nil {
			continue
		}
		if node.Message.Content.ContentType != "text" {
			continue
		}
		role := node.Message.Author.Role
		if !want[role] {
			continue
		}
		text := firstTextPart(node.Message.Content.Parts)
		if text == "" {
			continue
		}
		msgs = append(msgs, RoleMessage{Role: role, Text: text})
	}
	return msgs
}

// firstTextPart returns the first part that decodes as a plain string.
// Non-string parts (image references and the like) are skipped.
func firstTextPart(parts []json.RawMessage) string {
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			return s
		}
	}
	return ""
}
