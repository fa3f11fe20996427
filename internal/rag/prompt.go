package rag

import "strings"

// BuildPrompt assembles the stuffing prompt: every retrieved chunk placed
// verbatim, in retrieval order, ahead of the question. No summarization
// or reduction across chunks.
func BuildPrompt(contexts []string, question string) string {
	var b strings.Builder
	b.WriteString("Use the following context to answer the question. If the context does not contain the answer, say so.\n\nContext:\n")
	for _, c := range contexts {
		b.WriteString(c)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
