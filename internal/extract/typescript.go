package extract

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/loupe-dev/loupe/internal/entity"
)

// TypeScriptExtractor handles TypeScript, TSX, and JavaScript files.
type TypeScriptExtractor struct {
	ts  *sitter.Parser
	tsx *sitter.Parser
	js  *sitter.Parser
}

func NewTypeScriptExtractor() *TypeScriptExtractor {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(typescript.GetLanguage())

	tsxParser := sitter.NewParser()
	tsxParser.SetLanguage(tsx.GetLanguage())

	jsParser := sitter.NewParser()
	jsParser.SetLanguage(javascript.GetLanguage())

	return &TypeScriptExtractor{ts: tsParser, tsx: tsxParser, js: jsParser}
}

func (t *TypeScriptExtractor) Language() string {
	return "typescript"
}

func (t *TypeScriptExtractor) Extensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx", ".mjs"}
}

func (t *TypeScriptExtractor) Extract(path string, content []byte) (*File, error) {
	parser := t.ts
	jsx := false
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsx":
		parser = t.tsx
		jsx = true
	case ".jsx":
		parser = t.tsx
		jsx = true
	case ".js", ".mjs":
		parser = t.js
	}

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	file := &File{
		Path:     path,
		Language: "typescript",
		Entities: make([]entity.Raw, 0),
	}
	t.walk(tree.RootNode(), content, file, walkState{jsx: jsx})

	for _, raw := range file.Entities {
		if raw.Exported && raw.Name != "" && raw.Container == "" {
			file.Exports = append(file.Exports, raw.Name)
		}
	}
	file.finish()
	return file, nil
}

type walkState struct {
	jsx       bool
	exported  bool
	className string
}

func (t *TypeScriptExtractor) walk(node *sitter.Node, content []byte, file *File, st walkState) {
	switch node.Type() {
	case "export_statement":
		child := st
		child.exported = true
		for i := 0; i < int(node.ChildCount()); i++ {
			t.walk(node.Child(i), content, file, child)
		}
		return

	case "function_declaration":
		if raw, ok := t.function(node, content, st); ok {
			file.Entities = append(file.Entities, raw)
		}
		return

	case "class_declaration":
		raw, ok := t.named(node, content, st, entity.KindClass, "class ")
		if !ok {
			return
		}
		file.Entities = append(file.Entities, raw)
		if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
			child := st
			child.className = raw.Name
			for i := 0; i < int(bodyNode.ChildCount()); i++ {
				t.walk(bodyNode.Child(i), content, file, child)
			}
		}
		return

	case "method_definition":
		if raw, ok := t.method(node, content, st); ok {
			file.Entities = append(file.Entities, raw)
		}
		return

	case "interface_declaration":
		if raw, ok := t.named(node, content, st, entity.KindInterface, "interface "); ok {
			file.Entities = append(file.Entities, raw)
		}
		return

	case "type_alias_declaration":
		if raw, ok := t.named(node, content, st, entity.KindType, "type "); ok {
			file.Entities = append(file.Entities, raw)
		}
		return

	case "enum_declaration":
		if raw, ok := t.named(node, content, st, entity.KindEnum, "enum "); ok {
			file.Entities = append(file.Entities, raw)
		}
		return

	case "lexical_declaration", "variable_declaration":
		file.Entities = append(file.Entities, t.variables(node, content, st)...)
		return

	case "expression_statement":
		if raw, ok := t.route(node, content); ok {
			file.Entities = append(file.Entities, raw)
		}

	case "import_statement":
		if sourceNode := node.ChildByFieldName("source"); sourceNode != nil {
			file.Imports = append(file.Imports, strings.Trim(sourceNode.Content(content), "\"'`"))
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		t.walk(node.Child(i), content, file, st)
	}
}

func (t *TypeScriptExtractor) function(node *sitter.Node, content []byte, st walkState) (entity.Raw, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return entity.Raw{}, false
	}
	name := nameNode.Content(content)

	return entity.Raw{
		Name:      name,
		Kind:      functionKind(name, st.jsx),
		Exported:  st.exported,
		Span:      nodeSpan(node),
		Signature: t.functionSignature(node, content),
		RawSource: nodeSource(node, content),
	}, true
}

func (t *TypeScriptExtractor) method(node *sitter.Node, content []byte, st walkState) (entity.Raw, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return entity.Raw{}, false
	}

	return entity.Raw{
		Name:      nameNode.Content(content),
		Kind:      entity.KindMethod,
		Exported:  st.exported,
		Span:      nodeSpan(node),
		Signature: t.functionSignature(node, content),
		RawSource: nodeSource(node, content),
		Container: st.className,
	}, true
}

func (t *TypeScriptExtractor) named(node *sitter.Node, content []byte, st walkState, kind entity.Kind, prefix string) (entity.Raw, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return entity.Raw{}, false
	}
	name := nameNode.Content(content)

	return entity.Raw{
		Name:      name,
		Kind:      kind,
		Exported:  st.exported,
		Span:      nodeSpan(node),
		Signature: prefix + name,
		RawSource: nodeSource(node, content),
	}, true
}

func (t *TypeScriptExtractor) variables(node *sitter.Node, content []byte, st walkState) []entity.Raw {
	out := make([]entity.Raw, 0)
	isConst := strings.HasPrefix(strings.TrimSpace(nodeSource(node, content)), "const")

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		valueNode := child.ChildByFieldName("value")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(content)

		kind := entity.KindConst
		signature := ""
		if valueNode != nil {
			switch valueNode.Type() {
			case "arrow_function", "function", "function_expression":
				kind = functionKind(name, st.jsx)
				signature = name + paramsOf(valueNode, content)
			}
		}
		if kind == entity.KindConst && !isConst {
			continue
		}

		out = append(out, entity.Raw{
			Name:      name,
			Kind:      kind,
			Exported:  st.exported,
			Span:      nodeSpan(node),
			Signature: signature,
			RawSource: nodeSource(node, content),
		})
	}
	return out
}

// route recognizes top-level app.get('/path', ...) style registrations.
func (t *TypeScriptExtractor) route(node *sitter.Node, content []byte) (entity.Raw, bool) {
	call := node.NamedChild(0)
	if call == nil || call.Type() != "call_expression" {
		return entity.Raw{}, false
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return entity.Raw{}, false
	}

	property := fn.ChildByFieldName("property")
	if property == nil {
		return entity.Raw{}, false
	}
	verb := strings.ToLower(property.Content(content))
	switch verb {
	case "get", "post", "put", "delete", "patch", "use":
	default:
		return entity.Raw{}, false
	}

	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return entity.Raw{}, false
	}
	first := args.NamedChild(0)
	if first.Type() != "string" {
		return entity.Raw{}, false
	}
	routePath := strings.Trim(first.Content(content), "\"'`")

	return entity.Raw{
		Name:      strings.ToUpper(verb) + " " + routePath,
		Kind:      entity.KindRoute,
		Exported:  true,
		Span:      nodeSpan(node),
		Signature: fn.Content(content),
		RawSource: nodeSource(node, content),
	}, true
}

func (t *TypeScriptExtractor) functionSignature(node *sitter.Node, content []byte) string {
	sig := ""
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		sig = nameNode.Content(content)
	}
	sig += paramsOf(node, content)
	if returnNode := node.ChildByFieldName("return_type"); returnNode != nil {
		sig += returnNode.Content(content)
	}
	return sig
}

func paramsOf(node *sitter.Node, content []byte) string {
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		return paramsNode.Content(content)
	}
	if paramNode := node.ChildByFieldName("parameter"); paramNode != nil {
		return "(" + paramNode.Content(content) + ")"
	}
	return "()"
}

// functionKind treats an uppercase-named function in a JSX file as a
// component.
func functionKind(name string, jsx bool) entity.Kind {
	if jsx && name != "" && name[0] >= 'A' && name[0] <= 'Z' {
		return entity.KindComponent
	}
	return entity.KindFunction
}
