package explain

import "context"

// EntityInput is the metadata handed to a provider for one entity. It is a
// plain value so providers stay decoupled from the pipeline's types.
type EntityInput struct {
	Name      string
	Kind      string
	Signature string
	FilePath  string
	Language  string
	StartLine int
	EndLine   int
	Source    string
	Imports   []string
}

// Provider produces descriptive text for one entity. Calls may fail; the
// pipeline isolates failures per entity. ModelID and PromptVersion feed the
// cache key so switching either invalidates cached results without a source
// change.
type Provider interface {
	Explain(ctx context.Context, input EntityInput) (string, error)
	ModelID() string
	PromptVersion() string
}
