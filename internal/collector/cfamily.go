package collector

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

// CFamilyFrontend handles C and C++ with the matching grammar. A fresh
// tree-sitter parser is used per file so one frontend can serve many
// workers.
type CFamilyFrontend struct {
	language string
	exts     []string
	grammar  *sitter.Language
	scoped   bool
}

func NewCFrontend() *CFamilyFrontend {
	return &CFamilyFrontend{
		language: "c",
		exts:     []string{".c"},
		grammar:  c.GetLanguage(),
	}
}

func NewCPPFrontend() *CFamilyFrontend {
	return &CFamilyFrontend{
		language: "cpp",
		exts:     []string{".cc", ".cpp", ".cxx", ".c++"},
		grammar:  cpp.GetLanguage(),
		scoped:   true,
	}
}

func (f *CFamilyFrontend) Language() string { return f.language }

func (f *CFamilyFrontend) Extensions() []string { return f.exts }

func (f *CFamilyFrontend) Collect(ctx context.Context, filename string, content []byte) (*Unit, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(f.grammar)

	tree, err := p.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &walker{
		content: content,
		scoped:  f.scoped,
		index:   make(map[string]int),
	}
	w.visit(tree.RootNode())
	w.resolveCalls()

	return &Unit{Path: filename, Language: f.language, Functions: w.functions}, nil
}

type walker struct {
	content   []byte
	scoped    bool
	scope     []string
	functions []Function
	scopes    [][]string
	index     map[string]int
}

func (w *walker) visit(node *sitter.Node) {
	switch node.Type() {
	case "namespace_definition":
		body := node.ChildByFieldName("body")
		if body == nil {
			return
		}
		name := ""
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			name = w.text(nameNode)
		}
		w.within(name, body)
		return

	case "class_specifier", "struct_specifier", "union_specifier":
		body := node.ChildByFieldName("body")
		if body == nil || !w.scoped {
			return
		}
		name := ""
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			name = w.text(nameNode)
		}
		w.within(name, body)
		return

	case "function_definition":
		w.definition(node)
		return

	case "declaration", "field_declaration":
		w.declaration(node)
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.visit(node.NamedChild(i))
	}
}

// within visits body with name pushed on the scope. Anonymous scopes
// add nothing.
func (w *walker) within(name string, body *sitter.Node) {
	if name != "" {
		w.scope = append(w.scope, name)
		defer func() { w.scope = w.scope[:len(w.scope)-1] }()
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		w.visit(body.NamedChild(i))
	}
}

func (w *walker) definition(node *sitter.Node) {
	declarator := functionDeclarator(node.ChildByFieldName("declarator"))
	if declarator == nil {
		return
	}
	fn := w.function(declarator, int(node.StartPoint().Row)+1)
	if fn == nil {
		return
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	fn.HasBody = true
	seen := make(map[string]bool, len(fn.Calls))
	for _, call := range fn.Calls {
		seen[call] = true
	}
	w.scanBody(body, fn, seen)
}

func (w *walker) declaration(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if declarator := functionDeclarator(node.NamedChild(i)); declarator != nil {
			w.function(declarator, int(node.StartPoint().Row)+1)
		}
	}
}

// function returns the record for the declarator's qualified name,
// creating it on first sight.
func (w *walker) function(declarator *sitter.Node, line int) *Function {
	nameNode := declarator.ChildByFieldName("declarator")
	if nameNode == nil {
		return nil
	}
	name := w.qualify(w.text(nameNode))
	if name == "" {
		return nil
	}
	if i, ok := w.index[name]; ok {
		return &w.functions[i]
	}
	w.index[name] = len(w.functions)
	w.functions = append(w.functions, Function{Name: name, Line: line})
	w.scopes = append(w.scopes, append([]string(nil), w.scope...))
	return &w.functions[len(w.functions)-1]
}

func (w *walker) qualify(name string) string {
	if name == "" || len(w.scope) == 0 || strings.HasPrefix(name, "::") {
		return strings.TrimPrefix(name, "::")
	}
	return strings.Join(w.scope, "::") + "::" + name
}

func (w *walker) scanBody(node *sitter.Node, fn *Function, seen map[string]bool) {
	if isStatement(node.Type()) {
		fn.NumStatements++
	}
	if node.Type() == "call_expression" {
		if callee := w.calleeName(node.ChildByFieldName("function")); callee != "" && !seen[callee] {
			seen[callee] = true
			fn.Calls = append(fn.Calls, callee)
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.scanBody(node.NamedChild(i), fn, seen)
	}
}

func (w *walker) calleeName(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "identifier", "qualified_identifier":
		return w.text(node)
	case "template_function":
		return w.calleeName(node.ChildByFieldName("name"))
	case "field_expression":
		field := node.ChildByFieldName("field")
		if field == nil {
			return ""
		}
		name := w.text(field)
		if arg := node.ChildByFieldName("argument"); arg != nil && arg.Type() == "this" && len(w.scope) > 0 {
			return strings.Join(w.scope, "::") + "::" + name
		}
		return name
	default:
		return ""
	}
}

// resolveCalls qualifies unqualified call names with the innermost
// enclosing scope that declares them.
func (w *walker) resolveCalls() {
	for i := range w.functions {
		scope := w.scopes[i]
		for j, call := range w.functions[i].Calls {
			if strings.Contains(call, "::") {
				continue
			}
			for k := len(scope); k > 0; k-- {
				candidate := strings.Join(scope[:k], "::") + "::" + call
				if _, ok := w.index[candidate]; ok {
					w.functions[i].Calls[j] = candidate
					break
				}
			}
		}
		w.functions[i].Calls = dedupe(w.functions[i].Calls)
	}
}

func (w *walker) text(node *sitter.Node) string {
	return strings.Join(strings.Fields(node.Content(w.content)), "")
}

// functionDeclarator unwraps pointer, reference and parenthesized
// declarators down to a function declarator.
func functionDeclarator(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Type() {
		case "function_declarator":
			return node
		case "pointer_declarator", "reference_declarator", "parenthesized_declarator":
			next := node.ChildByFieldName("declarator")
			if next == nil && node.NamedChildCount() > 0 {
				next = node.NamedChild(int(node.NamedChildCount()) - 1)
			}
			node = next
		default:
			return nil
		}
	}
	return nil
}

// isStatement counts every statement node except blocks, plus local
// declarations.
func isStatement(nodeType string) bool {
	if nodeType == "compound_statement" {
		return false
	}
	return nodeType == "declaration" || strings.HasSuffix(nodeType, "_statement")
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, value := range values {
		if seen[value] {
			continue
		}
		seen[value] = true
		out = append(out, value)
	}
	return out
}
