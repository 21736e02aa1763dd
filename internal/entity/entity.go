package entity

// Kind tags the syntactic role of an extracted entity.
type Kind string

const (
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindMethod    Kind = "method"
	KindComponent Kind = "component"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindEnum      Kind = "enum"
	KindConst     Kind = "const"
	KindRoute     Kind = "route"
	KindModule    Kind = "module"
)

// Span is a 1-based inclusive line range inside a file.
type Span struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Raw is the extractor-boundary shape: what a language backend reports for
// one construct, before identity assignment. Container names the enclosing
// declaration (e.g. a method's class) when there is one.
type Raw struct {
	Name      string
	Kind      Kind
	Exported  bool
	Span      Span
	Signature string
	RawSource string
	Container string
}

// Entity is a construct with a stable identity. ID is a deterministic
// function of (filePath, name, kind, span, rawSource): any edit inside the
// span, a span shift, or a rename yields a new Entity rather than a mutated
// one. ContentDigest depends on RawSource alone and drives cache keys.
type Entity struct {
	ID            string `json:"id"`
	FilePath      string `json:"file_path"`
	Name          string `json:"name"`
	Kind          Kind   `json:"kind"`
	Exported      bool   `json:"exported"`
	Span          Span   `json:"span"`
	Signature     string `json:"signature,omitempty"`
	ContentDigest string `json:"content_digest"`
	RawSource     string `json:"-"`
}
