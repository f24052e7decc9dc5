package harness

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/cconform/internal/script"
)

// DefaultSourceExt is the extension of test sources.
const DefaultSourceExt = ".c"

// DiscoverOptions controls test discovery.
type DiscoverOptions struct {
	// SourceExt selects source files. Defaults to DefaultSourceExt.
	SourceExt string

	// Names restricts discovery to these test names. Empty means all.
	Names []string

	// Recursive descends into subdirectories.
	Recursive bool

	// Registered reports names that have a compiled-in script. Such
	// sources are test cases even without a script file.
	Registered func(name string) bool
}

// Discover scans dir for source files paired with a same-stem validation
// script. Sources without a script are skipped silently. The result is
// sorted by name.
func Discover(dir string, opts DiscoverOptions) ([]TestCase, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("test directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	ext := opts.SourceExt
	if ext == "" {
		ext = DefaultSourceExt
	}

	var filter map[string]bool
	if len(opts.Names) > 0 {
		filter = make(map[string]bool, len(opts.Names))
		for _, name := range opts.Names {
			filter[name] = true
		}
	}

	var cases []TestCase
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ext {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(strings.TrimSuffix(rel, ext))

		// Filter before pairing so excluded tests cost nothing
		if filter != nil && !filter[name] {
			return nil
		}

		stem := strings.TrimSuffix(filepath.Base(path), ext)
		scriptPath, found := script.FindScript(filepath.Dir(path), stem)
		if !found && (opts.Registered == nil || !opts.Registered(name)) {
			return nil
		}

		cases = append(cases, TestCase{
			Name:       name,
			SourcePath: path,
			ScriptPath: scriptPath,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	sort.Slice(cases, func(i, j int) bool {
		return cases[i].Name < cases[j].Name
	})
	return cases, nil
}
