// Package cards turns classified, fixed candidates into flashcard records and
// renders them into the interchange encodings study apps import.
package cards

import (
	"github.com/ankify-dev/ankify/internal/classify"
)

// FinalRecord is one finished flashcard with provenance.
type FinalRecord struct {
	Question           string `json:"question"`
	Answer             string `json:"answer"`
	SourceConversation string `json:"source_conversation"`
	Title              string `json:"title"`
}

// Aggregate merges per-conversation classified lists into the final record
// sequence, keeping only accepted candidates in first-seen order. No
// cross-conversation deduplication: the same question taught in two
// conversations is two cards.
func Aggregate(perConversation [][]classify.Classified) []FinalRecord {
	var records []FinalRecord
	for _, list := range perConversation {
		for _, c := range list {
			if !c.Accept {
				continue
			}
			records = append(records, FinalRecord{
				Question:           c.Question,
				Answer:             c.Answer,
				SourceConversation: c.SourceConversation,
				Title:              c.Title,
			})
		}
	}
	return records
}

// Tags derives the upload tags for a record: static tags plus the first word
// of the conversation title when it names a topic.
func Tags(r FinalRecord) []string {
	tags := []string{"chatgpt", "socratic"}
	if topic := titleTopic(r.Title); topic != "" {
		tags = append(tags, topic)
	}
	return tags
}
