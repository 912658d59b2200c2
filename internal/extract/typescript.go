package extract

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
)

// TypeScriptExtractor implements Extractor for TypeScript and JavaScript
// source files using Tree-sitter. Visibility follows the same
// leading-underscore convention as Python so both languages share one rule.
type TypeScriptExtractor struct {
	tsParser *sitter.Parser
	jsParser *sitter.Parser
}

// NewTypeScriptExtractor creates a new TypeScript/JavaScript extractor.
func NewTypeScriptExtractor() *TypeScriptExtractor {
	tsParser := sitter.NewParser()
	tsParser.SetLanguage(typescript.GetLanguage())
	jsParser := sitter.NewParser()
	jsParser.SetLanguage(javascript.GetLanguage())
	return &TypeScriptExtractor{tsParser: tsParser, jsParser: jsParser}
}

// Language returns "ts".
func (p *TypeScriptExtractor) Language() string {
	return "ts"
}

// SupportedExtensions returns TypeScript and JavaScript extensions.
func (p *TypeScriptExtractor) SupportedExtensions() []string {
	return []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
}

func (p *TypeScriptExtractor) parserFor(path string) *sitter.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return p.jsParser
	default:
		return p.tsParser
	}
}

// Extract parses TS/JS source and returns its artifact declarations:
// classes (with extends), functions and methods (ordered typed parameters,
// return annotations), class fields, arrow functions bound to const, and
// module-scope variable declarations.
func (p *TypeScriptExtractor) Extract(path string, content []byte) ([]artifact.Declaration, error) {
	start := time.Now()

	tree, err := p.parserFor(path).ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, &ParseError{File: path, Message: err.Error()}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		if perr := firstSyntaxError(root, path); perr != nil {
			return nil, perr
		}
	}

	var decls []artifact.Declaration
	p.walk(root, path, "", content, &decls)

	logging.ExtractDebug("TypeScriptExtractor: %s - %d declarations in %v",
		path, len(decls), time.Since(start))
	return decls, nil
}

func (p *TypeScriptExtractor) walk(
	node *sitter.Node,
	path, owner string,
	content []byte,
	decls *[]artifact.Declaration,
) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "class_declaration":
			p.collectClass(child, path, content, decls)

		case "function_declaration", "generator_function_declaration":
			p.collectFunction(child, path, owner, content, decls)

		case "method_definition":
			p.collectFunction(child, path, owner, content, decls)

		case "public_field_definition", "field_definition":
			p.collectField(child, path, owner, content, decls)

		case "lexical_declaration", "variable_declaration":
			p.collectVarDecl(child, path, owner, content, decls)

		case "export_statement":
			p.walk(child, path, owner, content, decls)

		default:
			p.walk(child, path, owner, content, decls)
		}
	}
}

func (p *TypeScriptExtractor) collectClass(
	node *sitter.Node,
	path string,
	content []byte,
	decls *[]artifact.Declaration,
) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)

	var bases []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "class_heritage" {
			continue
		}
		collectHeritage(child, content, &bases)
	}

	*decls = append(*decls, artifact.Declaration{
		Kind:       artifact.KindClass,
		Name:       name,
		Visibility: artifact.VisibilityOf(name),
		Bases:      bases,
		Loc:        artifact.Location{File: path, Line: int(node.StartPoint().Row) + 1},
	})

	if body := node.ChildByFieldName("body"); body != nil {
		p.walk(body, path, name, content, decls)
	}
}

// collectHeritage pulls identifiers from extends clauses. The JS grammar
// exposes the extended expression directly under class_heritage; the TS
// grammar nests it inside an extends_clause.
func collectHeritage(node *sitter.Node, content []byte, bases *[]string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "extends_clause":
			collectHeritage(child, content, bases)
		case "identifier", "type_identifier", "member_expression", "nested_type_identifier":
			*bases = append(*bases, child.Content(content))
		}
	}
}

func (p *TypeScriptExtractor) collectFunction(
	node *sitter.Node,
	path, owner string,
	content []byte,
	decls *[]artifact.Declaration,
) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)
	if owner != "" && name == "constructor" {
		// The constructor is the class's instantiation surface, not a
		// separately declared method.
		return
	}

	decl := artifact.Declaration{
		Kind:       artifact.KindFunction,
		Name:       name,
		Owner:      owner,
		Params:     p.parseParams(node.ChildByFieldName("parameters"), content),
		Returns:    typeAnnotationText(node.ChildByFieldName("return_type"), content),
		Visibility: artifact.VisibilityOf(name),
		Loc:        artifact.Location{File: path, Line: int(node.StartPoint().Row) + 1},
	}
	*decls = append(*decls, decl)
}

func (p *TypeScriptExtractor) collectField(
	node *sitter.Node,
	path, owner string,
	content []byte,
	decls *[]artifact.Declaration,
) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)

	// Arrow-function fields are methods in practice.
	if value := node.ChildByFieldName("value"); value != nil && value.Type() == "arrow_function" {
		*decls = append(*decls, artifact.Declaration{
			Kind:       artifact.KindFunction,
			Name:       name,
			Owner:      owner,
			Params:     p.parseParams(value.ChildByFieldName("parameters"), content),
			Returns:    typeAnnotationText(value.ChildByFieldName("return_type"), content),
			Visibility: artifact.VisibilityOf(name),
			Loc:        artifact.Location{File: path, Line: int(node.StartPoint().Row) + 1},
		})
		return
	}

	*decls = append(*decls, artifact.Declaration{
		Kind:       artifact.KindAttribute,
		Name:       name,
		Owner:      owner,
		Visibility: artifact.VisibilityOf(name),
		Loc:        artifact.Location{File: path, Line: int(node.StartPoint().Row) + 1},
	})
}

// collectVarDecl handles const/let/var declarations. Arrow functions become
// function declarations; anything else at module scope is an attribute.
func (p *TypeScriptExtractor) collectVarDecl(
	node *sitter.Node,
	path, owner string,
	content []byte,
	decls *[]artifact.Declaration,
) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		declarator := node.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}
		nameNode := declarator.ChildByFieldName("name")
		if nameNode == nil || nameNode.Type() != "identifier" {
			continue
		}
		name := nameNode.Content(content)
		value := declarator.ChildByFieldName("value")

		if value != nil && (value.Type() == "arrow_function" || value.Type() == "function_expression" || value.Type() == "function") {
			*decls = append(*decls, artifact.Declaration{
				Kind:       artifact.KindFunction,
				Name:       name,
				Owner:      owner,
				Params:     p.parseParams(value.ChildByFieldName("parameters"), content),
				Returns:    typeAnnotationText(value.ChildByFieldName("return_type"), content),
				Visibility: artifact.VisibilityOf(name),
				Loc:        artifact.Location{File: path, Line: int(declarator.StartPoint().Row) + 1},
			})
			continue
		}

		*decls = append(*decls, artifact.Declaration{
			Kind:       artifact.KindAttribute,
			Name:       name,
			Owner:      owner,
			Visibility: artifact.VisibilityOf(name),
			Loc:        artifact.Location{File: path, Line: int(declarator.StartPoint().Row) + 1},
		})
	}
}

func (p *TypeScriptExtractor) parseParams(node *sitter.Node, content []byte) []artifact.Param {
	if node == nil {
		return nil
	}
	var params []artifact.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		var param artifact.Param

		switch child.Type() {
		case "required_parameter", "optional_parameter":
			if pattern := child.ChildByFieldName("pattern"); pattern != nil {
				param.Name = pattern.Content(content)
			}
			param.Type = typeAnnotationText(child.ChildByFieldName("type"), content)
		case "identifier":
			// Plain JS parameters have no wrapper node.
			param.Name = child.Content(content)
		case "rest_pattern":
			param.Name = child.Content(content)
		default:
			continue
		}

		if param.Name != "" {
			params = append(params, param)
		}
	}
	return params
}

// typeAnnotationText returns the annotated type without the ": " prefix.
func typeAnnotationText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	if inner := node.NamedChild(0); inner != nil {
		return inner.Content(content)
	}
	return strings.TrimPrefix(strings.TrimSpace(node.Content(content)), ":")
}

// References counts call and new expressions per referenced name.
func (p *TypeScriptExtractor) References(path string, content []byte) (map[string]int, error) {
	tree, err := p.parserFor(path).ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, &ParseError{File: path, Message: err.Error()}
	}
	defer tree.Close()

	refs := make(map[string]int)
	countTSCalls(tree.RootNode(), content, refs)
	return refs, nil
}

func countTSCalls(node *sitter.Node, content []byte, refs map[string]int) {
	switch node.Type() {
	case "call_expression":
		if fn := node.ChildByFieldName("function"); fn != nil {
			switch fn.Type() {
			case "identifier":
				refs[fn.Content(content)]++
			case "member_expression":
				if prop := fn.ChildByFieldName("property"); prop != nil {
					refs[prop.Content(content)]++
				}
				if obj := fn.ChildByFieldName("object"); obj != nil && obj.Type() == "identifier" {
					refs[obj.Content(content)]++
				}
			}
		}
	case "new_expression":
		if ctor := node.ChildByFieldName("constructor"); ctor != nil && ctor.Type() == "identifier" {
			refs[ctor.Content(content)]++
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		countTSCalls(node.NamedChild(i), content, refs)
	}
}
