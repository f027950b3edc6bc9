package cards

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// WriteAnkiTSV renders question/answer pairs as Anki-importable lines:
// one card per line, tab-separated, embedded newlines become <br> and tabs
// become four spaces.
func WriteAnkiTSV(w io.Writer, records []FinalRecord) error {
	for _, r := range records {
		q := ankiEscape(r.Question)
		a := ankiEscape(r.Answer)
		if _, err := fmt.Fprintf(w, "%s\t%s\n", q, a); err != nil {
			return fmt.Errorf("write anki line: %w", err)
		}
	}
	return nil
}

func ankiEscape(s string) string {
	s = strings.ReplaceAll(s, "\n", "<br>")
	return strings.ReplaceAll(s, "\t", "    ")
}

// csvHeader is the tabular encoding's first row. ReadCSV depends on it.
var csvHeader = []string{"question", "answer", "source", "title"}

// WriteCSV renders the tabular encoding with header and quoting; embedded
// newlines survive a round trip through ReadCSV.
func WriteCSV(w io.Writer, records []FinalRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Question, r.Answer, r.SourceConversation, r.Title}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses the tabular encoding back into records.
func ReadCSV(r io.Reader) ([]FinalRecord, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]FinalRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 4 {
			return nil, fmt.Errorf("csv row has %d fields, want 4", len(row))
		}
		records = append(records, FinalRecord{
			Question:           row[0],
			Answer:             row[1],
			SourceConversation: row[2],
			Title:              row[3],
		})
	}
	return records, nil
}

// WriteMarkdown renders a human-readable document, cards grouped under their
// source conversation title in first-seen order.
func WriteMarkdown(w io.Writer, records []FinalRecord, now time.Time) error {
	var sb strings.Builder
	sb.WriteString("# Extracted Flashcards\n\n")
	fmt.Fprintf(&sb, "Generated on: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Total cards: %d\n\n", len(records))

	var titles []string
	byTitle := make(map[string][]FinalRecord)
	for _, r := range records {
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		if _, ok := byTitle[title]; !ok {
			titles = append(titles, title)
		}
		byTitle[title] = append(byTitle[title], r)
	}

	for _, title := range titles {
		fmt.Fprintf(&sb, "## %s\n\n", title)
		for i, r := range byTitle[title] {
			fmt.Fprintf(&sb, "### Card %d\n\n", i+1)
			fmt.Fprintf(&sb, "**Question:** %s\n\n", r.Question)
			fmt.Fprintf(&sb, "**Answer:** %s\n\n", r.Answer)
			sb.WriteString("---\n\n")
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// jsonlCard is the line-delimited encoding's per-record shape.
type jsonlCard struct {
	Front  string   `json:"front"`
	Back   string   `json:"back"`
	Tags   []string `json:"tags"`
	Source string   `json:"source"`
}

// WriteJSONL renders one card object per line.
func WriteJSONL(w io.Writer, records []FinalRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		card := jsonlCard{
			Front:  r.Question,
			Back:   r.Answer,
			Tags:   []string{"chatgpt", "socratic"},
			Source: r.Title,
		}
		if err := enc.Encode(card); err != nil {
			return fmt.Errorf("write jsonl card: %w", err)
		}
	}
	return nil
}

type jsonDocument struct {
	Metadata struct {
		CreatedAt  string `json:"created_at"`
		TotalCards int    `json:"total_cards"`
		Source     string `json:"source"`
	} `json:"metadata"`
	Flashcards []FinalRecord `json:"flashcards"`
}

// WriteJSON renders the single-document encoding with a metadata envelope.
func WriteJSON(w io.Writer, records []FinalRecord, now time.Time) error {
	doc := jsonDocument{Flashcards: records}
	doc.Metadata.CreatedAt = now.Format(time.RFC3339)
	doc.Metadata.TotalCards = len(records)
	doc.Metadata.Source = "ChatGPT Socratic Dialogues"

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// titleTopic returns the first word of a title lowercased, unless it is a
// throwaway name.
func titleTopic(title string) string {
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return ""
	}
	topic := strings.ToLower(fields[0])
	switch topic {
	case "untitled", "new", "chat":
		return ""
	}
	return topic
}
