package installer

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

type treeEntry struct {
	rel  string
	dir  bool
	mode os.FileMode
	data []byte
}

// mirrorTree copies src to <d>/<base(src)> for every directory d directly
// under parent. The source is read completely before anything is written,
// so a destination on the same filesystem as src is safe.
func mirrorTree(fs afero.Fs, src, parent string) ([]string, error) {
	var entries []treeEntry
	err := afero.Walk(fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if info.IsDir() {
			entries = append(entries, treeEntry{rel: rel, dir: true, mode: info.Mode().Perm()})
			return nil
		}
		b, err := afero.ReadFile(fs, p)
		if err != nil {
			return err
		}
		entries = append(entries, treeEntry{rel: rel, mode: info.Mode().Perm(), data: b})
		return nil
	})
	if err != nil {
		return nil, err
	}

	targets, err := afero.ReadDir(fs, parent)
	if err != nil {
		return nil, err
	}
	var dsts []string
	for _, t := range targets {
		if !t.IsDir() {
			continue
		}
		dst := filepath.Join(parent, t.Name(), filepath.Base(src))
		for _, e := range entries {
			p := filepath.Join(dst, e.rel)
			if e.dir {
				if err := fs.MkdirAll(p, e.mode|0o700); err != nil {
					return dsts, err
				}
				continue
			}
			if err := fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return dsts, err
			}
			if err := afero.WriteFile(fs, p, e.data, e.mode); err != nil {
				return dsts, err
			}
		}
		dsts = append(dsts, dst)
	}
	return dsts, nil
}
