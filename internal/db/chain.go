package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/baiirun/openfocus/internal/archive"
	"github.com/baiirun/openfocus/internal/model"
)

// list parses every .zip file in dir. A .zip whose name does not follow the
// archive grammar is an error, not something to skip.
func list(dir string) ([]archive.Archive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read document: %w", model.ErrIO, err)
	}

	var archives []archive.Archive
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), archive.Ext) {
			continue
		}
		a, err := archive.ParseName(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		archives = append(archives, a)
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].Name() < archives[j].Name()
	})
	return archives, nil
}

// resolve orders archives from the root to the head. archives must be sorted
// by name; the first root in that order wins when there are several.
//
// Every non-root archive must lie on the chain: a fork, a duplicate id, or an
// archive whose parent never appears is an ErrInvalidChain.
func resolve(archives []archive.Archive, logger *slog.Logger) ([]archive.Archive, error) {
	byID := make(map[string]int, len(archives))
	children := make(map[string][]int)
	var roots []int

	for i, a := range archives {
		if j, dup := byID[a.ID]; dup {
			return nil, fmt.Errorf("%w: archives %s and %s share id %s",
				model.ErrInvalidChain, archives[j].Name(), a.Name(), a.ID)
		}
		byID[a.ID] = i
		if a.IsRoot() {
			roots = append(roots, i)
			continue
		}
		children[a.ParentID] = append(children[a.ParentID], i)
	}

	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: database has no root", model.ErrNotFound)
	}
	root := roots[0]
	if len(roots) > 1 {
		ignored := make([]string, 0, len(roots)-1)
		for _, i := range roots[1:] {
			ignored = append(ignored, archives[i].Name())
		}
		logger.Warn("document has several root archives; folding from the first",
			"root", archives[root].Name(),
			"ignored", ignored)
	}

	if err := checkForks(archives, children); err != nil {
		return nil, err
	}

	visited := make([]bool, len(archives))
	var chain []archive.Archive
	for cur := root; ; {
		if visited[cur] {
			return nil, fmt.Errorf("%w: cycle at archive %s", model.ErrInvalidChain, archives[cur].Name())
		}
		visited[cur] = true
		chain = append(chain, archives[cur])

		next := children[archives[cur].ID]
		if len(next) == 0 {
			break
		}
		cur = next[0]
	}

	for i, a := range archives {
		if !visited[i] && !a.IsRoot() {
			return nil, fmt.Errorf("%w: archive %s is not reachable from root %s (parent %s)",
				model.ErrInvalidChain, a.Name(), archives[root].Name(), a.ParentID)
		}
	}

	logger.Debug("resolved chain", "root", archives[root].Name(), "length", len(chain))
	return chain, nil
}

// checkForks fails when two archives extend the same parent.
func checkForks(archives []archive.Archive, children map[string][]int) error {
	parents := make([]string, 0, len(children))
	for p := range children {
		parents = append(parents, p)
	}
	sort.Strings(parents)

	for _, p := range parents {
		kids := children[p]
		if len(kids) < 2 {
			continue
		}
		names := make([]string, len(kids))
		for i, k := range kids {
			names[i] = archives[k].Name()
		}
		return fmt.Errorf("%w: archive %s is extended by %d archives: %s",
			model.ErrInvalidChain, p, len(kids), strings.Join(names, ", "))
	}
	return nil
}
