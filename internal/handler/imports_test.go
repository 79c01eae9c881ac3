package handler

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// each blank-line separated import group holds one origin: stdlib, module or third party
func TestImportGroupsAreNotMixed(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	origin := func(path string) string {
		switch {
		case strings.HasPrefix(path, "bookkeeping/"):
			return "module"
		case strings.Contains(strings.SplitN(path, "/", 2)[0], "."):
			return "third-party"
		default:
			return "stdlib"
		}
	}

	fset := token.NewFileSet()
	for _, name := range files {
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		require.NoError(t, err, name)

		prevLine, prevOrigin := 0, ""
		for _, spec := range f.Imports {
			path, err := strconv.Unquote(spec.Path.Value)
			require.NoError(t, err)
			line := fset.Position(spec.Pos()).Line
			o := origin(path)
			if prevLine != 0 && line == prevLine+1 {
				assert.Equal(t, prevOrigin, o, "%s: %q shares a group with %s imports", name, path, prevOrigin)
			}
			prevLine, prevOrigin = line, o
		}
	}
}
