package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/loupe-dev/loupe/internal/entity"
)

// PythonExtractor handles Python source files.
type PythonExtractor struct {
	parser *sitter.Parser
}

func NewPythonExtractor() *PythonExtractor {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonExtractor{parser: p}
}

func (p *PythonExtractor) Language() string {
	return "python"
}

func (p *PythonExtractor) Extensions() []string {
	return []string{".py"}
}

func (p *PythonExtractor) Extract(path string, content []byte) (*File, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	file := &File{
		Path:     path,
		Language: "python",
		Entities: make([]entity.Raw, 0),
	}
	p.walk(tree.RootNode(), content, file, "")

	for _, raw := range file.Entities {
		if raw.Exported && raw.Name != "" && raw.Container == "" {
			file.Exports = append(file.Exports, raw.Name)
		}
	}
	file.finish()
	return file, nil
}

func (p *PythonExtractor) walk(node *sitter.Node, content []byte, file *File, className string) {
	switch node.Type() {
	case "decorated_definition":
		// The decorated span (decorators included) is the entity span, so a
		// decorator edit churns the identity like any other source edit.
		if definitionNode := node.ChildByFieldName("definition"); definitionNode != nil {
			switch definitionNode.Type() {
			case "function_definition":
				if raw, ok := p.function(definitionNode, node, content, className, p.decorators(node, content)); ok {
					file.Entities = append(file.Entities, raw)
				}
				return
			case "class_definition":
				p.class(definitionNode, node, content, file)
				return
			}
		}

	case "function_definition":
		if raw, ok := p.function(node, node, content, className, nil); ok {
			file.Entities = append(file.Entities, raw)
		}
		return

	case "class_definition":
		p.class(node, node, content, file)
		return

	case "import_statement", "import_from_statement":
		file.Imports = append(file.Imports, p.imports(node, content)...)
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		p.walk(node.Child(i), content, file, className)
	}
}

func (p *PythonExtractor) function(node, spanNode *sitter.Node, content []byte, className string, decorators []string) (entity.Raw, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return entity.Raw{}, false
	}
	name := nameNode.Content(content)

	kind := entity.KindFunction
	if className != "" {
		kind = entity.KindMethod
	}
	if routeDecorated(decorators) {
		kind = entity.KindRoute
	}

	signature := "def " + name
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		signature += paramsNode.Content(content)
	}

	return entity.Raw{
		Name:      name,
		Kind:      kind,
		Exported:  pythonExported(name),
		Span:      nodeSpan(spanNode),
		Signature: signature,
		RawSource: nodeSource(spanNode, content),
		Container: className,
	}, true
}

func (p *PythonExtractor) class(node, spanNode *sitter.Node, content []byte, file *File) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)

	file.Entities = append(file.Entities, entity.Raw{
		Name:      name,
		Kind:      entity.KindClass,
		Exported:  pythonExported(name),
		Span:      nodeSpan(spanNode),
		Signature: "class " + name,
		RawSource: nodeSource(spanNode, content),
	})

	if bodyNode := node.ChildByFieldName("body"); bodyNode != nil {
		for i := 0; i < int(bodyNode.ChildCount()); i++ {
			p.walk(bodyNode.Child(i), content, file, name)
		}
	}
}

func (p *PythonExtractor) decorators(node *sitter.Node, content []byte) []string {
	out := make([]string, 0)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "decorator" {
			out = append(out, child.Content(content))
		}
	}
	return out
}

func (p *PythonExtractor) imports(node *sitter.Node, content []byte) []string {
	out := make([]string, 0)
	switch node.Type() {
	case "import_from_statement":
		if moduleNode := node.ChildByFieldName("module_name"); moduleNode != nil {
			out = append(out, moduleNode.Content(content))
		}
	case "import_statement":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "dotted_name":
				out = append(out, child.Content(content))
			case "aliased_import":
				if nameNode := child.ChildByFieldName("name"); nameNode != nil {
					out = append(out, nameNode.Content(content))
				}
			}
		}
	}
	return out
}

// routeDecorated matches common HTTP framework decorators such as
// @app.route("/x") or @router.get("/y").
func routeDecorated(decorators []string) bool {
	markers := []string{".route(", ".get(", ".post(", ".put(", ".delete(", ".patch("}
	for _, decorator := range decorators {
		for _, marker := range markers {
			if strings.Contains(decorator, marker) {
				return true
			}
		}
	}
	return false
}

// pythonExported follows the underscore convention.
func pythonExported(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}
