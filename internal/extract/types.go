package extract

// Origin records which extraction path produced a candidate.
type Origin string

const (
	// OriginMessage means the candidate came from a single assistant message.
	OriginMessage Origin = "message"
	// OriginConversation means the candidate came from a whole-conversation pass.
	OriginConversation Origin = "conversation"
)

// Candidate is one extracted question/answer pair before classification.
type Candidate struct {
	Question           string `json:"question"`
	Answer             string `json:"answer"`
	SourceConversation string `json:"source_conversation,omitempty"`
	Title              string `json:"title,omitempty"`
	Origin             Origin `json:"origin,omitempty"`
}
