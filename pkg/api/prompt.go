package api

import "context"

// PromptRequest describes a text prompt shown to the user.
type PromptRequest struct {
	Title   string
	Message string
	Default string
}

// Prompter is the capability widgets use to talk to the user. It is
// injected at construction time; implementations usually open a modal.
//
// PromptText returns ok=false when the user cancelled. Any returned error
// is a failure of the provider itself, not a cancellation.
type Prompter interface {
	PromptText(ctx context.Context, req PromptRequest) (text string, ok bool, err error)
	Show(ctx context.Context, message string) error
	Confirm(ctx context.Context, message string) (bool, error)
}

// NoopPrompter cancels every prompt and discards output.
type NoopPrompter struct{}

func (NoopPrompter) PromptText(ctx context.Context, req PromptRequest) (string, bool, error) {
	return "", false, nil
}
func (NoopPrompter) Show(ctx context.Context, message string) error            { return nil }
func (NoopPrompter) Confirm(ctx context.Context, message string) (bool, error) { return false, nil }
