package usecase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/forPelevin/annoset/internal/logging"
	"github.com/forPelevin/annoset/internal/ports"
	"github.com/forPelevin/annoset/internal/types"
)

// Subsets lists the sets nested under set: every directory of
// annotations/<set> other than raw and converted. With recursive, nested
// subsets are listed too, parents before children. Directories reached twice
// through symlinks are visited once.
func (u Usecase) Subsets(set string, recursive bool) ([]string, error) {
	var (
		out     []string
		visited = map[string]struct{}{}
		queue   = []string{set}
	)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		dir := u.d.Project.SetDir(current)
		real, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return nil, fmt.Errorf("list subsets of %s: %w", current, err)
		}
		if _, ok := visited[real]; ok {
			continue
		}
		visited[real] = struct{}{}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("list subsets of %s: %w", current, err)
		}
		var names []string
		for _, e := range entries {
			if e.Name() == "raw" || e.Name() == "converted" {
				continue
			}
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil || !info.IsDir() {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			sub := current + "/" + name
			out = append(out, sub)
			if recursive {
				queue = append(queue, sub)
			}
		}
	}
	return out, nil
}

// RemoveSet deletes the converted files of set and drops its rows from the
// index. Raw annotations are kept. With recursive, subsets are removed too.
func (u Usecase) RemoveSet(ctx context.Context, set string, recursive bool) error {
	set = trimSet(set)
	targets := []string{set}
	if recursive {
		subs, err := u.Subsets(set, true)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		targets = append(targets, subs...)
	}

	log := u.logger("sets")
	return u.d.Index.Update(ctx, func(current []types.Record) ([]types.Record, error) {
		for _, t := range targets {
			path := filepath.Join(u.d.Project.SetDir(t), "converted")
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				log.Warn("converted annotations do not exist (yet?)", logging.String("path", path))
				continue
			}
			if err := os.RemoveAll(path); err != nil {
				return nil, fmt.Errorf("remove %s: %w", path, err)
			}
		}
		kept := current[:0:0]
		for _, r := range current {
			if !slices.Contains(targets, r.Set) {
				kept = append(kept, r)
			}
		}
		log.Info("set removed", logging.String(logging.FieldSet, set), logging.Int("rows", len(current)-len(kept)))
		return kept, nil
	})
}

type RenameInput struct {
	Set          string
	NewSet       string
	Recursive    bool
	IgnoreErrors bool
}

// RenameSet moves the raw and converted files of a set under a new name and
// rewrites its index rows. With Recursive, subsets follow their parent.
func (u Usecase) RenameSet(ctx context.Context, in RenameInput) error {
	set, newSet := trimSet(in.Set), trimSet(in.NewSet)
	if set == "" || newSet == "" {
		return fmt.Errorf("%w: set names are required", ports.ErrPrecondition)
	}

	currentPath := u.d.Project.SetDir(set)
	newPath := u.d.Project.SetDir(newSet)
	if _, err := os.Stat(currentPath); err != nil {
		return fmt.Errorf("%w: '%s' does not exist, aborting", ports.ErrMissingFile, currentPath)
	}
	if _, err := os.Stat(newPath); err == nil {
		return fmt.Errorf("%w: '%s' already exists, aborting", ports.ErrPathExists, newPath)
	}

	// Subsets move first so that each parent is moved after its children.
	type move struct{ from, to string }
	var moves []move
	if in.Recursive {
		subs, err := u.Subsets(set, true)
		if err != nil {
			return err
		}
		for i := len(subs) - 1; i >= 0; i-- {
			to := newSet + strings.TrimPrefix(subs[i], set)
			if _, err := os.Stat(u.d.Project.SetDir(to)); err == nil {
				return fmt.Errorf("%w: '%s' already exists, aborting", ports.ErrPathExists, u.d.Project.SetDir(to))
			}
			moves = append(moves, move{subs[i], to})
		}
	}
	moves = append(moves, move{set, newSet})

	return u.d.Index.Update(ctx, func(current []types.Record) ([]types.Record, error) {
		if !in.IgnoreErrors && !in.Recursive && !slices.ContainsFunc(current, func(r types.Record) bool { return r.Set == set }) {
			return nil, fmt.Errorf("%w: set '%s' has no indexed annotation, aborting; use ignore errors to force", ports.ErrPrecondition, set)
		}
		for _, m := range moves {
			from, to := u.d.Project.SetDir(m.from), u.d.Project.SetDir(m.to)
			if err := os.MkdirAll(to, 0o755); err != nil {
				return nil, err
			}
			for _, sub := range []string{"raw", "converted"} {
				src := filepath.Join(from, sub)
				if _, err := os.Stat(src); err != nil {
					continue
				}
				if err := os.Rename(src, filepath.Join(to, sub)); err != nil {
					return nil, fmt.Errorf("move %s: %w", src, err)
				}
			}
		}
		renamed := make([]types.Record, len(current))
		for i, r := range current {
			for _, m := range moves {
				if r.Set == m.from {
					r.Set = m.to
					break
				}
			}
			renamed[i] = r
		}
		u.logger("sets").Info("set renamed", logging.String(logging.FieldSet, set), logging.String("new_set", newSet))
		return renamed, nil
	})
}

func trimSet(set string) string {
	return strings.TrimRight(set, `/\`)
}
