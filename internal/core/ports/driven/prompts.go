package driven

// Prompt names used with PromptStore.Load.
const (
	// PromptAnswerSystem is the system framing for grounded answers.
	PromptAnswerSystem = "answer_system"
)

// PromptStore loads prompt templates by name.
// Implementations fall back to embedded defaults when a template is
// missing, so a prompt is always available.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)
}
