package extract

import (
	"context"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/loupe-dev/loupe/internal/entity"
)

// GoExtractor handles Go source files.
type GoExtractor struct {
	parser *sitter.Parser
}

func NewGoExtractor() *GoExtractor {
	p := sitter.NewParser()
	p.SetLanguage(golang.GetLanguage())
	return &GoExtractor{parser: p}
}

func (g *GoExtractor) Language() string {
	return "go"
}

func (g *GoExtractor) Extensions() []string {
	return []string{".go"}
}

func (g *GoExtractor) Extract(path string, content []byte) (*File, error) {
	tree, err := g.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	file := &File{
		Path:     path,
		Language: "go",
		Entities: make([]entity.Raw, 0),
	}
	g.walk(tree.RootNode(), content, file)

	for _, raw := range file.Entities {
		if raw.Exported && raw.Name != "" {
			file.Exports = append(file.Exports, raw.Name)
		}
	}
	file.finish()
	return file, nil
}

func (g *GoExtractor) walk(node *sitter.Node, content []byte, file *File) {
	switch node.Type() {
	case "function_declaration":
		if raw, ok := g.function(node, content); ok {
			file.Entities = append(file.Entities, raw)
		}

	case "method_declaration":
		if raw, ok := g.method(node, content); ok {
			file.Entities = append(file.Entities, raw)
		}

	case "type_declaration":
		file.Entities = append(file.Entities, g.typeDecl(node, content)...)

	case "const_declaration":
		file.Entities = append(file.Entities, g.constDecl(node, content)...)

	case "import_declaration":
		file.Imports = append(file.Imports, g.imports(node, content)...)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		g.walk(node.Child(i), content, file)
	}
}

func (g *GoExtractor) function(node *sitter.Node, content []byte) (entity.Raw, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return entity.Raw{}, false
	}
	name := nameNode.Content(content)

	return entity.Raw{
		Name:      name,
		Kind:      entity.KindFunction,
		Exported:  goExported(name),
		Span:      nodeSpan(node),
		Signature: g.funcSignature(node, content),
		RawSource: nodeSource(node, content),
	}, true
}

func (g *GoExtractor) method(node *sitter.Node, content []byte) (entity.Raw, bool) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return entity.Raw{}, false
	}
	name := nameNode.Content(content)

	receiver := ""
	container := ""
	if receiverNode := node.ChildByFieldName("receiver"); receiverNode != nil {
		receiver = receiverNode.Content(content)
		container = receiverBaseType(receiver)
	}

	return entity.Raw{
		Name:      name,
		Kind:      entity.KindMethod,
		Exported:  goExported(name),
		Span:      nodeSpan(node),
		Signature: strings.TrimSpace(receiver + " " + g.funcSignature(node, content)),
		RawSource: nodeSource(node, content),
		Container: container,
	}, true
}

func (g *GoExtractor) typeDecl(node *sitter.Node, content []byte) []entity.Raw {
	out := make([]entity.Raw, 0)
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "type_spec" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(content)

		kind := entity.KindType
		if typeNode := child.ChildByFieldName("type"); typeNode != nil && typeNode.Type() == "interface_type" {
			kind = entity.KindInterface
		}

		out = append(out, entity.Raw{
			Name:      name,
			Kind:      kind,
			Exported:  goExported(name),
			Span:      nodeSpan(child),
			Signature: "type " + name,
			RawSource: nodeSource(child, content),
		})
	}
	return out
}

func (g *GoExtractor) constDecl(node *sitter.Node, content []byte) []entity.Raw {
	out := make([]entity.Raw, 0)
	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		if n.Type() == "const_spec" {
			if nameNode := n.ChildByFieldName("name"); nameNode != nil {
				name := nameNode.Content(content)
				out = append(out, entity.Raw{
					Name:      name,
					Kind:      entity.KindConst,
					Exported:  goExported(name),
					Span:      nodeSpan(n),
					RawSource: nodeSource(n, content),
				})
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			collect(n.Child(i))
		}
	}
	collect(node)
	return out
}

func (g *GoExtractor) imports(node *sitter.Node, content []byte) []string {
	out := make([]string, 0)
	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		if n.Type() == "import_spec" {
			if pathNode := n.ChildByFieldName("path"); pathNode != nil {
				out = append(out, strings.Trim(pathNode.Content(content), `"`))
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			collect(n.Child(i))
		}
	}
	collect(node)
	return out
}

func (g *GoExtractor) funcSignature(node *sitter.Node, content []byte) string {
	sig := "func"
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		sig += " " + nameNode.Content(content)
	}
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		sig += paramsNode.Content(content)
	}
	if resultNode := node.ChildByFieldName("result"); resultNode != nil {
		sig += " " + resultNode.Content(content)
	}
	return sig
}

// receiverBaseType reduces "(s *Store[T])" to "Store".
func receiverBaseType(receiver string) string {
	receiver = strings.Trim(receiver, "()")
	fields := strings.Fields(receiver)
	if len(fields) == 0 {
		return ""
	}
	base := fields[len(fields)-1]
	base = strings.TrimLeft(base, "*")
	if idx := strings.IndexByte(base, '['); idx != -1 {
		base = base[:idx]
	}
	return base
}

func goExported(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func nodeSpan(node *sitter.Node) entity.Span {
	return entity.Span{
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
}

func nodeSource(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}
