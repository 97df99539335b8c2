package parser

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/graphward/code-graph-guard/internal/engine"
)

// extractor accumulates the entities of one file while walking its AST.
type extractor struct {
	source   []byte
	relPath  string
	file     engine.ParsedEntity
	declared []engine.ParsedEntity
}

func (ex *extractor) text(n *sitter.Node) string {
	return n.Content(ex.source)
}

// walk visits every named node, extracting declarations as it descends.
func (ex *extractor) walk(node *sitter.Node) {
	switch node.Type() {
	case "import_statement":
		ex.addImport(node)
	case "export_statement":
		ex.addExport(node)
	case "function_declaration", "generator_function_declaration":
		ex.addFunction(node)
	case "class_declaration":
		ex.addClass(node)
	case "interface_declaration":
		ex.addInterface(node)
	case "lexical_declaration", "variable_declaration":
		ex.addVariables(node)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		ex.walk(node.NamedChild(i))
	}
}

// addImport records one import statement: module specifier plus its named,
// default, and namespace bindings.
func (ex *extractor) addImport(node *sitter.Node) {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return
	}
	module := strings.Trim(ex.text(sourceNode), "\"'`")
	ref := engine.ImportRef{Module: module}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "import_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			clause := child.NamedChild(j)
			switch clause.Type() {
			case "identifier": // default import
				ref.Bindings = append(ref.Bindings, ex.text(clause))
			case "namespace_import":
				for k := 0; k < int(clause.NamedChildCount()); k++ {
					if clause.NamedChild(k).Type() == "identifier" {
						ref.Bindings = append(ref.Bindings, ex.text(clause.NamedChild(k)))
					}
				}
			case "named_imports":
				for k := 0; k < int(clause.NamedChildCount()); k++ {
					spec := clause.NamedChild(k)
					if spec.Type() != "import_specifier" {
						continue
					}
					if name := spec.ChildByFieldName("name"); name != nil {
						ref.Bindings = append(ref.Bindings, ex.text(name))
					}
				}
			}
		}
	}
	ex.file.Imports = append(ex.file.Imports, ref)
}

// addExport records exported names. The exported declaration itself is
// extracted by the normal walk.
func (ex *extractor) addExport(node *sitter.Node) {
	isDefault := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "default" {
			isDefault = true
			break
		}
	}

	if decl := node.ChildByFieldName("declaration"); decl != nil {
		if name := declaredName(decl, ex.source); name != "" {
			ex.file.Exports = append(ex.file.Exports, engine.ExportRef{Name: name, Default: isDefault})
		} else if isDefault {
			ex.file.Exports = append(ex.file.Exports, engine.ExportRef{Name: "default", Default: true})
		}
		return
	}

	// export { a, b as c }
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "export_clause" {
			continue
		}
		for j := 0; j < int(child.NamedChildCount()); j++ {
			spec := child.NamedChild(j)
			if spec.Type() != "export_specifier" {
				continue
			}
			name := spec.ChildByFieldName("alias")
			if name == nil {
				name = spec.ChildByFieldName("name")
			}
			if name != nil {
				ex.file.Exports = append(ex.file.Exports, engine.ExportRef{Name: ex.text(name)})
			}
		}
	}
}

// declaredName returns the name of a declaration node, or "".
func declaredName(decl *sitter.Node, source []byte) string {
	if name := decl.ChildByFieldName("name"); name != nil {
		return name.Content(source)
	}
	// lexical_declaration: take the first declarator's name
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		child := decl.NamedChild(i)
		if child.Type() == "variable_declarator" {
			if name := child.ChildByFieldName("name"); name != nil {
				return name.Content(source)
			}
		}
	}
	return ""
}

func (ex *extractor) addFunction(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := ex.text(nameNode)
	ex.addCallable(name, node, node.ChildByFieldName("body"))
}

// addCallable records a Function or Component entity (component when the
// name is capitalized and the body produces JSX) with its call references.
func (ex *extractor) addCallable(name string, node, body *sitter.Node) {
	kind := engine.KindFunction
	if isCapitalized(name) && containsJSX(body) {
		kind = engine.KindComponent
	}

	entity := engine.ParsedEntity{
		Kind:     kind,
		Name:     name,
		Body:     ex.text(node),
		FilePath: ex.relPath,
	}
	if body != nil {
		calls, instantiates, hooks := collectCalls(body, ex.source)
		entity.Calls = calls
		entity.Instantiates = instantiates
		ex.file.UsesHooks = append(ex.file.UsesHooks, hooks...)
	}
	ex.contain(entity)
}

func (ex *extractor) addClass(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := ex.text(nameNode)

	entity := engine.ParsedEntity{
		Kind:     engine.KindClass,
		Name:     name,
		Body:     ex.text(node),
		FilePath: ex.relPath,
	}

	extends, implements := heritage(node, ex.source)
	entity.Extends = extends
	entity.Implements = implements
	// React class components extend Component / React.Component.
	for _, base := range extends {
		if base == "Component" || base == "PureComponent" ||
			strings.HasSuffix(base, ".Component") || strings.HasSuffix(base, ".PureComponent") {
			entity.Kind = engine.KindComponent
			break
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		calls, instantiates, hooks := collectCalls(body, ex.source)
		entity.Calls = calls
		entity.Instantiates = instantiates
		ex.file.UsesHooks = append(ex.file.UsesHooks, hooks...)
	}
	ex.contain(entity)
}

func (ex *extractor) addInterface(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	entity := engine.ParsedEntity{
		Kind:     engine.KindInterface,
		Name:     ex.text(nameNode),
		Body:     ex.text(node),
		FilePath: ex.relPath,
	}
	ex.contain(entity)
}

// addVariables extracts const/let/var declarators whose value is a function
// expression, arrow function, or styled-components template.
func (ex *extractor) addVariables(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		value := decl.ChildByFieldName("value")
		if nameNode == nil || value == nil {
			continue
		}
		name := ex.text(nameNode)

		switch value.Type() {
		case "arrow_function", "function", "function_expression", "generator_function":
			ex.addCallable(name, decl, value.ChildByFieldName("body"))
		case "call_expression", "template_string":
			if isStyledExpression(value, ex.source) {
				ex.file.Styles = append(ex.file.Styles, name)
			}
		}
	}
}

// contain registers a declared entity and the file's CONTAINS reference to it.
func (ex *extractor) contain(entity engine.ParsedEntity) {
	ex.declared = append(ex.declared, entity)
	ex.file.Contains = append(ex.file.Contains, engine.Ref{Kind: entity.Kind, Name: entity.Name})
}

// collectCalls walks a body for call targets, constructor instantiations,
// and hook usages (use* call names).
func collectCalls(body *sitter.Node, source []byte) (calls, instantiates, hooks []string) {
	seen := make(map[string]bool)
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Type() {
		case "call_expression":
			if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() == "identifier" {
				name := fn.Content(source)
				key := "c:" + name
				if !seen[key] {
					seen[key] = true
					if isHookName(name) {
						hooks = append(hooks, name)
					} else {
						calls = append(calls, name)
					}
				}
			}
		case "new_expression":
			if ctor := n.ChildByFieldName("constructor"); ctor != nil && ctor.Type() == "identifier" {
				name := ctor.Content(source)
				if !seen["n:"+name] {
					seen["n:"+name] = true
					instantiates = append(instantiates, name)
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(body)
	return calls, instantiates, hooks
}

// heritage extracts extends/implements targets from a class declaration.
// TypeScript uses extends_clause/implements_clause; plain JavaScript puts the
// base expression directly under class_heritage.
func heritage(classNode *sitter.Node, source []byte) (extends, implements []string) {
	for i := 0; i < int(classNode.ChildCount()); i++ {
		child := classNode.Child(i)
		if child.Type() != "class_heritage" {
			continue
		}
		foundClause := false
		for j := 0; j < int(child.ChildCount()); j++ {
			clause := child.Child(j)
			switch clause.Type() {
			case "extends_clause":
				foundClause = true
				extends = append(extends, clauseIdentifiers(clause, source)...)
			case "implements_clause":
				foundClause = true
				implements = append(implements, clauseIdentifiers(clause, source)...)
			}
		}
		if !foundClause {
			// JS grammar: class_heritage wraps the base expression directly
			extends = append(extends, clauseIdentifiers(child, source)...)
		}
	}
	return extends, implements
}

func clauseIdentifiers(clause *sitter.Node, source []byte) []string {
	var names []string
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		n := clause.NamedChild(i)
		switch n.Type() {
		case "identifier", "type_identifier":
			names = append(names, n.Content(source))
		case "member_expression", "nested_type_identifier", "generic_type":
			names = append(names, n.Content(source))
		}
	}
	return names
}

// isStyledExpression detects styled-components values:
// styled.div`…`, styled(Button)`…`.
func isStyledExpression(value *sitter.Node, source []byte) bool {
	text := value.Content(source)
	return strings.HasPrefix(text, "styled.") || strings.HasPrefix(text, "styled(")
}

// containsJSX reports whether the subtree produces JSX.
func containsJSX(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "jsx_element", "jsx_self_closing_element", "jsx_fragment":
		return true
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if containsJSX(n.NamedChild(i)) {
			return true
		}
	}
	return false
}

// isHookName reports React hook naming: use followed by an uppercase letter.
func isHookName(name string) bool {
	return len(name) > 3 && strings.HasPrefix(name, "use") &&
		unicode.IsUpper(rune(name[3]))
}

func isCapitalized(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0]))
}
