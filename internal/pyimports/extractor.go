//go:build cgo

package pyimports

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"autoskip/internal/skip"
	"autoskip/internal/slogutil"
)

// Extractor parses Python files with tree-sitter and collects their imports.
// It is not safe for concurrent use.
type Extractor struct {
	parser      *sitter.Parser
	searchPaths []string
	logger      *slog.Logger
}

// NewExtractor creates an extractor. searchPaths anchor relative imports.
func NewExtractor(searchPaths []string, logger *slog.Logger) *Extractor {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Extractor{
		parser:      parser,
		searchPaths: searchPaths,
		logger:      slogutil.OrDiscard(logger).With("component", "pyimports"),
	}
}

// Extract implements skip.Extractor. Files that are not Python source
// (extension modules, namespace package directories) have no dependencies.
func (x *Extractor) Extract(path string) ([]string, []string, error) {
	if filepath.Ext(path) != ".py" {
		return nil, nil, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}

	imports, err := x.ExtractSource(context.Background(), path, source)
	if err != nil {
		return nil, nil, err
	}
	return imports.Names(), imports.Confirmed(), nil
}

// ExtractSource collects the imports of source, which was read from path
func (x *Extractor) ExtractSource(ctx context.Context, path string, source []byte) (*Imports, error) {
	tree, err := x.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		return nil, fmt.Errorf("%s:%d: %w", path, line, skip.ErrMalformedSource)
	}

	v := &visitor{
		source:      source,
		fileDir:     filepath.Dir(path),
		searchPaths: x.searchPaths,
		imports:     newImports(),
	}
	v.walk(root)

	x.logger.Debug("Extracted imports", "file", path, "names", len(v.imports.deps))
	return v.imports, nil
}

// firstErrorLine returns the 1-based line of the first ERROR or MISSING node
func firstErrorLine(n *sitter.Node) int {
	if n.IsError() || n.IsMissing() {
		return int(n.StartPoint().Row) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			return firstErrorLine(child)
		}
	}
	return int(n.StartPoint().Row) + 1
}

type visitor struct {
	source      []byte
	fileDir     string
	searchPaths []string
	imports     *Imports
}

func (v *visitor) text(n *sitter.Node) string {
	return n.Content(v.source)
}

// walk visits every scope; import statements are leaves of the walk
func (v *visitor) walk(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		v.importStatement(n)
		return
	case "import_from_statement":
		v.importFrom(n)
		return
	case "future_import_statement":
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		v.walk(n.NamedChild(i))
	}
}

// importStatement handles "import a.b" and "import a.b as c"
func (v *visitor) importStatement(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			v.imports.addModule(v.text(child))
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				v.imports.addModule(v.text(name))
			}
		}
	}
}

// importFrom handles "from m import x", including relative and wildcard forms
func (v *visitor) importFrom(n *sitter.Node) {
	var module string
	var names []string
	var sawImport bool

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "relative_import":
			module = v.relative(child)
		case "dotted_name":
			if !sawImport {
				module = v.text(child)
			} else {
				names = append(names, v.text(child))
			}
		case "aliased_import":
			if name := child.ChildByFieldName("name"); name != nil {
				names = append(names, v.text(name))
			}
		}
	}

	if module == "" {
		return
	}
	v.imports.addModule(module)
	for _, name := range names {
		v.imports.addCandidate(module + "." + name)
	}
}

// relative anchors a relative_import node (dots plus optional module) to a
// dotted name; every enclosing package prefix is recorded as a module.
func (v *visitor) relative(n *sitter.Node) string {
	var prefix, module string
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "import_prefix":
			prefix = v.text(child)
		case "dotted_name":
			module = v.text(child)
		}
	}

	pkg := anchorPackage(v.fileDir, countLevel(prefix), v.searchPaths)
	v.imports.addModule(pkg)
	return relativeModule(pkg, module)
}
