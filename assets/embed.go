// Package assets embeds the default tile palette and the SQL migrations.
package assets

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed palette.yaml sql/*.sql
var FS embed.FS

// Palette returns the raw default palette YAML.
func Palette() ([]byte, error) {
	return FS.ReadFile("palette.yaml")
}

// Migrations lists the embedded migration files in lexical order.
func Migrations() ([]string, error) {
	entries, err := fs.ReadDir(FS, "sql")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		out = append(out, "sql/"+e.Name())
	}
	sort.Strings(out)
	return out, nil
}
