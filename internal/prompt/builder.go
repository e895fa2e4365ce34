// Package prompt assembles the grounded question prompt sent to the chat model.
package prompt

import (
	"strings"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

// Fallback is the sentence the model must reproduce when the context has no answer.
const Fallback = "The context does not contain this information."

const template = `You are a helpful museum assistant specializing in Salvador Dalí and The Dalí Museum.
Use ONLY the information from the CONTEXT to answer the QUESTION.
If the answer is not in the context, say exactly:
"` + Fallback + `"

CONTEXT:
{context}

QUESTION:
{question}

ANSWER:
`

// Build wraps the retrieved context and the question into the instruction template.
func Build(question string, chunks []domain.RetrievedChunk) string {
	r := strings.NewReplacer("{context}", Context(chunks), "{question}", question)
	return r.Replace(template)
}

// Context joins chunks in rank order, each preceded by a "[title | section]"
// header unless both fields are empty.
func Context(chunks []domain.RetrievedChunk) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		if h := Header(c.Title, c.Section); h != "" {
			blocks[i] = h + "\n" + c.Text
		} else {
			blocks[i] = c.Text
		}
	}
	return strings.Join(blocks, "\n\n")
}

// Header formats chunk metadata.
func Header(title, section string) string {
	if title == "" && section == "" {
		return ""
	}
	return "[" + title + " | " + section + "]"
}
