package rag

import (
	"fmt"
	"strings"

	"github.com/Rudranshpardeshi09/StudyMind-AI/vectorstore"
)

const (
	// contextDocCap bounds each chunk's contribution to the prompt.
	contextDocCap = 800
	// historyTurns is how many trailing conversation turns are kept.
	historyTurns = 10
	// historyTurnCap bounds each retained turn.
	historyTurnCap = 300
)

// marksGuidance maps the requested mark weight to answer-shape
// instructions for the model.
func marksGuidance(marks int) string {
	switch {
	case marks <= 3:
		return "This is a 3-mark question. Give a concise answer in 2-3 short points. Do not over-explain."
	case marks <= 5:
		return "This is a 5-mark question. Give a moderately detailed answer with 4-5 key points and brief explanations."
	default:
		return fmt.Sprintf("This is a %d-mark question. Give a comprehensive, well-structured answer with an introduction, detailed explanations of each point, examples where relevant, and a short conclusion.", marks)
	}
}

// buildContext labels each chunk with its source document and page so
// the model can attribute its answer, and joins them with a visible
// separator.
func buildContext(hits []vectorstore.Hit) string {
	parts := make([]string, len(hits))
	for i, hit := range hits {
		text := hit.Text
		if len(text) > contextDocCap {
			text = text[:contextDocCap]
		}
		marker := hit.Marker
		if marker == "" {
			marker = "N/A"
		}
		parts[i] = fmt.Sprintf("[Source %d - %s, Page %s]\n%s", i+1, hit.Source, marker, text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// buildHistory renders the trailing conversation turns, each truncated,
// so long sessions cannot crowd the retrieved context out of the prompt.
func buildHistory(history []Turn) string {
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}

	var b strings.Builder
	for _, turn := range history {
		role := "Student"
		if strings.EqualFold(turn.Role, "assistant") {
			role = "Tutor"
		}
		content := turn.Content
		if len(content) > historyTurnCap {
			content = content[:historyTurnCap] + "..."
		}
		fmt.Fprintf(&b, "%s: %s\n", role, content)
	}
	return b.String()
}

func buildPrompt(question, syllabus string, marks int, history []Turn, hits []vectorstore.Hit) string {
	var b strings.Builder

	b.WriteString("You are an expert exam tutor. Answer the student's question using ONLY the study material below. ")
	b.WriteString("If the material does not cover the question, say so instead of inventing an answer.\n\n")

	b.WriteString("Study material:\n")
	b.WriteString(buildContext(hits))
	b.WriteString("\n\n")

	if syllabus = strings.TrimSpace(syllabus); syllabus != "" {
		b.WriteString("Syllabus context: ")
		b.WriteString(syllabus)
		b.WriteString("\n\n")
	}

	if h := buildHistory(history); h != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(h)
		b.WriteString("\n")
	}

	b.WriteString(marksGuidance(marks))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")

	return b.String()
}
