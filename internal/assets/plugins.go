package assets

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// entryNamespace holds the generated modules that import each entry's paths in order.
const entryNamespace = "bundlecfg-entry"

// entryPlugin serves one virtual module per entry. Each module imports the
// polyfills and the entry's files in declaration order.
func entryPlugin(workDir string, entries map[string][]string) api.Plugin {
	return api.Plugin{
		Name: "bundlecfg-entries",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: "^" + entryNamespace + ":"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					return api.OnResolveResult{
						Path:      strings.TrimPrefix(args.Path, entryNamespace+":"),
						Namespace: entryNamespace,
					}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: entryNamespace},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					paths, ok := entries[args.Path]
					if !ok {
						return api.OnLoadResult{}, fmt.Errorf("%w: %s", ErrUnknownEntry, args.Path)
					}
					contents := entrySource(paths)
					return api.OnLoadResult{
						Contents:   &contents,
						ResolveDir: workDir,
						Loader:     api.LoaderJS,
					}, nil
				})
		},
	}
}

func entrySource(paths []string) string {
	var sb strings.Builder
	for _, p := range paths {
		quoted, _ := json.Marshal(filepath.ToSlash(p))
		sb.WriteString("import ")
		sb.Write(quoted)
		sb.WriteString(";\n")
	}
	return sb.String()
}

// aliasPlugin maps "^" and "^/..." imports onto the alias directory.
func aliasPlugin(alias, dir string) api.Plugin {
	filter := "^" + regexp.QuoteMeta(alias) + "(/|$)"
	return api.Plugin{
		Name: "bundlecfg-alias",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: filter},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					rest := strings.TrimPrefix(strings.TrimPrefix(args.Path, alias), "/")
					target := filepath.Join(dir, filepath.FromSlash(rest))

					result := build.Resolve(target, api.ResolveOptions{
						Importer:   args.Importer,
						ResolveDir: args.ResolveDir,
						Kind:       args.Kind,
						Namespace:  "file",
					})
					if len(result.Errors) > 0 {
						return api.OnResolveResult{Errors: result.Errors}, nil
					}
					return api.OnResolveResult{
						Path:      result.Path,
						Namespace: result.Namespace,
						External:  result.External,
					}, nil
				})
		},
	}
}

// includePlugin rejects TypeScript sources outside the transform include
// directories, as only those are compiled.
func includePlugin(dirs []string) api.Plugin {
	return api.Plugin{
		Name: "bundlecfg-include",
		Setup: func(build api.PluginBuild) {
			build.OnLoad(api.OnLoadOptions{Filter: `\.tsx?$`, Namespace: "file"},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					if withinAny(args.Path, dirs) {
						return api.OnLoadResult{}, nil
					}
					return api.OnLoadResult{
						Errors: []api.Message{{
							Text: fmt.Sprintf("%s is outside the configured include directories", args.Path),
						}},
					}, nil
				})
		},
	}
}

func withinAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}
