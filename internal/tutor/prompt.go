package tutor

import (
	_ "embed"
	"slices"
	"strings"

	"github.com/ashureev/tutorly/internal/domain"
)

//go:embed system_prompt.md
var defaultSystemInstruction string

// HistoryWindow is the maximum number of prior turns included in a prompt.
const HistoryWindow = 10

const (
	studentLabel  = "Student"
	tutorLabel    = "Tutorly"
	historyHeader = "\n\n## Previous Conversation:"
)

// StopSequences keep the model from writing the next speaker's turn.
var StopSequences = []string{studentLabel + ":", tutorLabel + ":"}

// DefaultSystemInstruction returns the built-in tutoring persona.
func DefaultSystemInstruction() string {
	return strings.TrimSpace(defaultSystemInstruction)
}

// PromptBuilder assembles generation requests around a fixed system
// instruction. The zero value is not usable; use NewPromptBuilder.
type PromptBuilder struct {
	instruction string
}

// NewPromptBuilder creates a builder. An empty instruction selects the
// built-in persona.
func NewPromptBuilder(instruction string) *PromptBuilder {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultSystemInstruction()
	}
	return &PromptBuilder{instruction: instruction}
}

// SystemInstruction returns the instruction every prompt starts with.
func (b *PromptBuilder) SystemInstruction() string {
	return b.instruction
}

// Build assembles the prompt for message given the prior turns. history
// may arrive in any order; only the HistoryWindow most recent turns are
// kept, oldest first. The image, if any, rides alongside the text.
func (b *PromptBuilder) Build(history []domain.Turn, message string, image *Image) GenerationRequest {
	window := Window(history, HistoryWindow)

	parts := make([]string, 0, len(window)+4)
	parts = append(parts, b.instruction)
	if len(window) > 0 {
		parts = append(parts, historyHeader)
		for _, turn := range window {
			parts = append(parts, speakerLabel(turn.Sender)+": "+turn.Text)
		}
	}
	parts = append(parts, "\n\n"+studentLabel+": "+message)
	parts = append(parts, "\n"+tutorLabel+":")

	return GenerationRequest{
		SystemInstruction: b.instruction,
		History:           window,
		NewMessage:        message,
		Image:             image,
		Prompt:            strings.Join(parts, "\n"),
	}
}

// Window returns the last n turns of history in chronological order.
// The input slice is not modified.
func Window(history []domain.Turn, n int) []domain.Turn {
	if len(history) == 0 || n <= 0 {
		return nil
	}
	sorted := slices.Clone(history)
	slices.SortStableFunc(sorted, func(a, b domain.Turn) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	if len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}

func speakerLabel(sender domain.Sender) string {
	if sender == domain.SenderUser {
		return studentLabel
	}
	return tutorLabel
}
