package prompt

import (
	"fmt"
	"strings"

	"medbot-ai/internal/kb"
	"medbot-ai/internal/llm"
	"medbot-ai/internal/query"
	"medbot-ai/internal/ranking"
)

const systemPrompt = `You are a careful medical information assistant. Answer using ONLY the provided context passages and knowledge-base facts.

Rules:
- Cite every factual claim with its source marker, e.g. [S1].
- Never state a specific dosage, diagnosis, or treatment change that is not present in a cited source.
- If the context does not answer the question, say so plainly.
- Recommend consulting a healthcare professional for decisions about medication or treatment.`

// Citation maps one marker in the prompt to the source behind it.
type Citation struct {
	Marker     string
	SourceName string
	SourceID   string
	KBFact     bool
}

// Prompt is the fully assembled input for the generation call, with the
// citation legend needed to verify the generated text afterwards.
type Prompt struct {
	System    string
	User      string
	Citations []Citation
}

// Messages renders the prompt as a chat message sequence.
func (p Prompt) Messages() []llm.Message {
	return []llm.Message{
		{Role: "system", Content: p.System},
		{Role: "user", Content: p.User},
	}
}

// Citation resolves a marker, e.g. "S2", to its citation entry.
func (p Prompt) Citation(marker string) (Citation, bool) {
	for _, c := range p.Citations {
		if c.Marker == marker {
			return c, true
		}
	}
	return Citation{}, false
}

// Build assembles the prompt from knowledge-base facts and ranked passages.
// Facts come first so the most reliable material leads the context. Pure
// assembly; no network calls happen here.
func Build(q query.Query, facts []kb.Fact, rc ranking.RankedContext) Prompt {
	var citations []Citation
	var context strings.Builder
	marker := 0

	nextMarker := func() string {
		marker++
		return fmt.Sprintf("S%d", marker)
	}

	for _, fact := range facts {
		m := nextMarker()
		citations = append(citations, Citation{
			Marker:     m,
			SourceName: fact.Source,
			SourceID:   fact.Title,
			KBFact:     true,
		})
		fmt.Fprintf(&context, "[%s] (%s) %s: %s\n", m, fact.Source, fact.Title, fact.Text)
		if fact.Severity != "" {
			fmt.Fprintf(&context, "    Severity: %s\n", fact.Severity)
		}
	}

	for _, doc := range rc.Documents {
		m := nextMarker()
		citations = append(citations, Citation{
			Marker:     m,
			SourceName: doc.SourceName,
			SourceID:   doc.SourceID,
		})
		if doc.Heading != "" {
			fmt.Fprintf(&context, "[%s] (%s) %s: %s\n", m, doc.SourceName, doc.Heading, doc.Text)
		} else {
			fmt.Fprintf(&context, "[%s] (%s) %s\n", m, doc.SourceName, doc.Text)
		}
	}

	var user strings.Builder
	if context.Len() > 0 {
		user.WriteString("Context:\n")
		user.WriteString(context.String())
		user.WriteString("\n")
	} else {
		user.WriteString("No reference context is available for this question.\n\n")
	}
	user.WriteString("Question: ")
	user.WriteString(q.Text)

	return Prompt{
		System:    systemPrompt,
		User:      user.String(),
		Citations: citations,
	}
}
