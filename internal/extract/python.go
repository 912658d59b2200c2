package extract

import (
	"context"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/mamertofabian/maid-runner-sub001/internal/artifact"
	"github.com/mamertofabian/maid-runner-sub001/internal/logging"
)

// PythonExtractor implements Extractor for Python source files using
// Tree-sitter. Visibility follows the leading-underscore convention.
type PythonExtractor struct {
	parser *sitter.Parser
}

// NewPythonExtractor creates a new Python extractor.
func NewPythonExtractor() *PythonExtractor {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &PythonExtractor{parser: parser}
}

// Language returns "py".
func (p *PythonExtractor) Language() string {
	return "py"
}

// SupportedExtensions returns [".py", ".pyw"].
func (p *PythonExtractor) SupportedExtensions() []string {
	return []string{".py", ".pyw"}
}

// Extract parses Python source and returns its artifact declarations:
// classes (with base classes), functions and methods (ordered, typed
// parameters and return annotations), class attributes, and module-level
// assignments.
func (p *PythonExtractor) Extract(path string, content []byte) ([]artifact.Declaration, error) {
	start := time.Now()

	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
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
	seenAttrs := make(map[artifact.Key]bool)
	p.walk(root, path, "", content, &decls, seenAttrs)

	logging.ExtractDebug("PythonExtractor: %s - %d declarations in %v",
		path, len(decls), time.Since(start))
	return decls, nil
}

// walk visits a node's named children, collecting declarations. owner is the
// enclosing class name, empty at module scope.
func (p *PythonExtractor) walk(
	node *sitter.Node,
	path, owner string,
	content []byte,
	decls *[]artifact.Declaration,
	seenAttrs map[artifact.Key]bool,
) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		switch child.Type() {
		case "class_definition":
			p.collectClass(child, path, content, decls, seenAttrs)

		case "function_definition":
			p.collectFunction(child, path, owner, content, decls, seenAttrs)

		case "decorated_definition":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				inner := child.NamedChild(j)
				switch inner.Type() {
				case "class_definition":
					p.collectClass(inner, path, content, decls, seenAttrs)
				case "function_definition":
					p.collectFunction(inner, path, owner, content, decls, seenAttrs)
				}
			}

		case "expression_statement":
			// Assignments at module scope and inside class bodies are
			// attribute declarations. Module-level assignments must be
			// detected here; they are part of a file's public surface.
			p.collectAssignment(child, path, owner, content, decls, seenAttrs)

		default:
			p.walk(child, path, owner, content, decls, seenAttrs)
		}
	}
}

func (p *PythonExtractor) collectClass(
	node *sitter.Node,
	path string,
	content []byte,
	decls *[]artifact.Declaration,
	seenAttrs map[artifact.Key]bool,
) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)

	var bases []string
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			arg := supers.NamedChild(i)
			if arg.Type() == "identifier" || arg.Type() == "attribute" {
				bases = append(bases, arg.Content(content))
			}
		}
	}

	*decls = append(*decls, artifact.Declaration{
		Kind:       artifact.KindClass,
		Name:       name,
		Visibility: artifact.VisibilityOf(name),
		Bases:      bases,
		Loc:        artifact.Location{File: path, Line: int(node.StartPoint().Row) + 1},
	})

	if body := node.ChildByFieldName("body"); body != nil {
		p.walk(body, path, name, content, decls, seenAttrs)
	}
}

func (p *PythonExtractor) collectFunction(
	node *sitter.Node,
	path, owner string,
	content []byte,
	decls *[]artifact.Declaration,
	seenAttrs map[artifact.Key]bool,
) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(content)

	decl := artifact.Declaration{
		Kind:       artifact.KindFunction,
		Name:       name,
		Owner:      owner,
		Params:     p.parseParams(node.ChildByFieldName("parameters"), owner != "", content),
		Visibility: artifact.VisibilityOf(name),
		Loc:        artifact.Location{File: path, Line: int(node.StartPoint().Row) + 1},
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		decl.Returns = ret.Content(content)
	}
	*decls = append(*decls, decl)

	// Instance attributes assigned via self.x inside a method body belong
	// to the owning class.
	if owner != "" {
		if body := node.ChildByFieldName("body"); body != nil {
			p.collectSelfAttrs(body, path, owner, content, decls, seenAttrs)
		}
	}
}

// parseParams flattens a parameters node into ordered Params. The implicit
// receiver (self/cls) of methods is not part of the declared signature.
func (p *PythonExtractor) parseParams(node *sitter.Node, isMethod bool, content []byte) []artifact.Param {
	if node == nil {
		return nil
	}
	var params []artifact.Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		var param artifact.Param

		switch child.Type() {
		case "identifier":
			param = artifact.Param{Name: child.Content(content)}
		case "typed_parameter":
			if inner := child.NamedChild(0); inner != nil {
				param.Name = inner.Content(content)
			}
			if typ := child.ChildByFieldName("type"); typ != nil {
				param.Type = typ.Content(content)
			}
		case "default_parameter":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				param.Name = nameNode.Content(content)
			}
		case "typed_default_parameter":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				param.Name = nameNode.Content(content)
			}
			if typ := child.ChildByFieldName("type"); typ != nil {
				param.Type = typ.Content(content)
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			param = artifact.Param{Name: child.Content(content)}
		default:
			continue
		}

		if param.Name == "" {
			continue
		}
		if isMethod && len(params) == 0 && (param.Name == "self" || param.Name == "cls") {
			continue
		}
		params = append(params, param)
	}
	return params
}

// collectAssignment records identifier assignments as attribute declarations.
func (p *PythonExtractor) collectAssignment(
	stmt *sitter.Node,
	path, owner string,
	content []byte,
	decls *[]artifact.Declaration,
	seenAttrs map[artifact.Key]bool,
) {
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if child.Type() != "assignment" && child.Type() != "augmented_assignment" {
			continue
		}
		left := child.ChildByFieldName("left")
		if left == nil || left.Type() != "identifier" {
			continue
		}
		name := left.Content(content)
		key := artifact.Key{Kind: artifact.KindAttribute, Owner: owner, Name: name}
		if seenAttrs[key] {
			continue
		}
		seenAttrs[key] = true
		*decls = append(*decls, artifact.Declaration{
			Kind:       artifact.KindAttribute,
			Name:       name,
			Owner:      owner,
			Visibility: artifact.VisibilityOf(name),
			Loc:        artifact.Location{File: path, Line: int(child.StartPoint().Row) + 1},
		})
	}
}

// collectSelfAttrs finds self.<name> assignment targets in a method body.
func (p *PythonExtractor) collectSelfAttrs(
	node *sitter.Node,
	path, owner string,
	content []byte,
	decls *[]artifact.Declaration,
	seenAttrs map[artifact.Key]bool,
) {
	if node.Type() == "assignment" {
		if left := node.ChildByFieldName("left"); left != nil && left.Type() == "attribute" {
			obj := left.ChildByFieldName("object")
			attr := left.ChildByFieldName("attribute")
			if obj != nil && attr != nil && obj.Content(content) == "self" {
				name := attr.Content(content)
				key := artifact.Key{Kind: artifact.KindAttribute, Owner: owner, Name: name}
				if !seenAttrs[key] {
					seenAttrs[key] = true
					*decls = append(*decls, artifact.Declaration{
						Kind:       artifact.KindAttribute,
						Name:       name,
						Owner:      owner,
						Visibility: artifact.VisibilityOf(name),
						Loc:        artifact.Location{File: path, Line: int(node.StartPoint().Row) + 1},
					})
				}
			}
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		p.collectSelfAttrs(node.NamedChild(i), path, owner, content, decls, seenAttrs)
	}
}

// References counts call and instantiation expressions per callee name.
// An import alone is not a reference.
func (p *PythonExtractor) References(path string, content []byte) (map[string]int, error) {
	tree, err := p.parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, &ParseError{File: path, Message: err.Error()}
	}
	defer tree.Close()

	refs := make(map[string]int)
	countPythonCalls(tree.RootNode(), content, refs)
	return refs, nil
}

func countPythonCalls(node *sitter.Node, content []byte, refs map[string]int) {
	if node.Type() == "call" {
		if fn := node.ChildByFieldName("function"); fn != nil {
			switch fn.Type() {
			case "identifier":
				refs[fn.Content(content)]++
			case "attribute":
				// obj.method(...) references both the method and, when the
				// receiver is a plain identifier, the receiver itself.
				if attr := fn.ChildByFieldName("attribute"); attr != nil {
					refs[attr.Content(content)]++
				}
				if obj := fn.ChildByFieldName("object"); obj != nil && obj.Type() == "identifier" {
					refs[obj.Content(content)]++
				}
			}
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		countPythonCalls(node.NamedChild(i), content, refs)
	}
}

// firstSyntaxError locates the first ERROR node for a ParseError report.
func firstSyntaxError(node *sitter.Node, path string) *ParseError {
	if node.IsError() {
		return &ParseError{
			File:    path,
			Line:    int(node.StartPoint().Row) + 1,
			Col:     int(node.StartPoint().Column) + 1,
			Message: "syntax error",
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if perr := firstSyntaxError(node.Child(i), path); perr != nil {
			return perr
		}
	}
	return nil
}
