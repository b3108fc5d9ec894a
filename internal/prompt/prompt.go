package prompt

import (
	"fmt"
	"strings"

	"flowmind/internal/history"
)

// DefaultTitle is used for conversations with no user turns yet.
const DefaultTitle = "New Conversation"

// modePrefixes maps an agent operation mode to its instruction prefix.
// Unknown modes map to the empty prefix.
var modePrefixes = map[string]string{
	"educational": "You are an educational expert specialized in language teaching and correction (English, Spanish, and French). " +
		"If the user sends text, correct it and suggest improvements including grammar, vocabulary, and pronunciation tips.",
	"research": "You are a research agent specialized in providing detailed, well-sourced answers based on web information. " +
		"Provide accurate data, explain concepts clearly, and cite relevant sources if necessary.",
	"analysis": "You are a data analysis agent. Your task is to extract, interpret, and visualize raw data, generating insights and reports " +
		"to support strategic decisions. Use your statistical and visualization skills to transform data into actionable insights. " +
		"Always explain your methodology and the analysis performed.",
}

// ModePrefix returns the instruction prefix for an agent mode.
// Unknown modes return the empty string.
func ModePrefix(mode string) string {
	return modePrefixes[strings.ToLower(strings.TrimSpace(mode))]
}

// RAG composes the retrieval-augmented prompt: role instruction, retrieved
// context, then the user's question.
func RAG(contextText, question string) string {
	return fmt.Sprintf(`You are a virtual assistant.
Your job is to help users based on the information provided in the file.
Give short, clear, and precise answers.
Context: %s
Question: %s`, contextText, question)
}

// Agent composes the analysis-agent prompt: mode prefix (possibly empty)
// followed by the user query and any gathered context.
func Agent(mode, contextText, question string) string {
	var sb strings.Builder
	if prefix := ModePrefix(mode); prefix != "" {
		sb.WriteString(prefix)
		sb.WriteString("\n\n")
	}
	if contextText != "" {
		sb.WriteString("Context:\n")
		sb.WriteString(contextText)
		sb.WriteString("\n\n")
	}
	sb.WriteString("User Query: ")
	sb.WriteString(question)
	return sb.String()
}

// Conversation composes the general-chat prompt from prior turns and the new
// user input. With deepThink set, the model is asked to show its reasoning
// before answering.
func Conversation(turns []history.Turn, userInput string, deepThink bool) string {
	var sb strings.Builder
	if deepThink {
		sb.WriteString("Think step by step before answering. Show your reasoning.\n")
	}
	sb.WriteString("You are a friendly virtual assistant. Help users with clear, precise, and useful answers.\n")
	sb.WriteString("Previous messages:\n")
	for _, turn := range turns {
		sb.WriteString(turn.Role)
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("New user question:\n")
	sb.WriteString(userInput)
	return sb.String()
}

// Title derives a conversation title from the first user turn: the first 30
// characters, with an ellipsis when truncated. Empty input yields the
// default placeholder.
func Title(firstUserTurn string) string {
	trimmed := strings.TrimSpace(firstUserTurn)
	if trimmed == "" {
		return DefaultTitle
	}
	runes := []rune(trimmed)
	if len(runes) > 30 {
		return string(runes[:30]) + "..."
	}
	return trimmed
}
