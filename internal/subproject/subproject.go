// Package subproject implements the subproject detector (C10): it
// groups a flat nodeid list by the nearest ancestor directory carrying
// a project manifest, so each group's worker subprocesses can be
// launched with the right working directory in a monorepo.
package subproject

import (
	"os"
	"path/filepath"

	"rtest/internal/collect"
	"rtest/internal/logging"
)

// Group is one subproject's nodeids, in input order, plus the
// directory its workers should run in.
type Group struct {
	WorkingDirectory string
	Nodeids          []collect.Nodeid
}

// Detect groups nodeids by nearest-ancestor manifest directory relative
// to sessionRoot. markers names the manifest filenames to look for
// (e.g. "pyproject.toml", "setup.py"). Nodeids whose file has no
// manifest ancestor fall back to sessionRoot. Group order is the order
// each working directory is first encountered; nodeid order within a
// group matches input order.
func Detect(sessionRoot string, nodeids []collect.Nodeid, markers []string) ([]Group, error) {
	groups := make(map[string]*Group)
	var order []string

	for _, id := range nodeids {
		parsed, err := collect.Parse(id)
		if err != nil {
			return nil, err
		}

		wd, err := nearestManifestDir(sessionRoot, parsed.Path, markers)
		if err != nil {
			return nil, err
		}

		g, ok := groups[wd]
		if !ok {
			g = &Group{WorkingDirectory: wd}
			groups[wd] = g
			order = append(order, wd)
		}
		g.Nodeids = append(g.Nodeids, id)
	}

	result := make([]Group, 0, len(order))
	for _, wd := range order {
		result = append(result, *groups[wd])
	}

	logging.Discover("subproject detection: %d group(s) under %s", len(result), sessionRoot)
	return result, nil
}

// nearestManifestDir walks upward from the directory containing
// relPath (relative to sessionRoot) looking for any marker file,
// stopping at sessionRoot. Returns sessionRoot if none is found.
func nearestManifestDir(sessionRoot, relPath string, markers []string) (string, error) {
	dir := filepath.Dir(filepath.Join(sessionRoot, relPath))
	root := filepath.Clean(sessionRoot)

	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		if dir == root || dir == "." || dir == string(filepath.Separator) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return root, nil
}
