// Package loader discovers and parses per-environment config fragments
// from a working tree.
package loader

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/cloudshipai/gitconfd/internal/materializer"
)

var filenamePattern = regexp.MustCompile(`^config\.([^.]+)\.json$`)

// Load walks fsys recursively and returns every Environment whose
// defining file's captured <env> group matches envRegex, sorted by
// environment name (stable, case-insensitive). Discovery order is
// lexicographic by full path. A duplicate environment name within the
// tree is an AmbiguousEnvironment error, never a silent pick.
func Load(fsys afero.Fs, envRegex *regexp.Regexp) ([]materializer.Environment, error) {
	var paths []string
	err := afero.Walk(fsys, "/", func(path string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() {
			return nil
		}
		m := filenamePattern.FindStringSubmatch(filepath.Base(path))
		if m == nil || !envRegex.MatchString(m[1]) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, materializer.Wrap(materializer.ErrInternal, "loader.Load", err)
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths)) // lowercase name -> defining path
	envs := make([]materializer.Environment, 0, len(paths))

	for _, path := range paths {
		m := filenamePattern.FindStringSubmatch(filepath.Base(path))
		capturedName := m[1]

		raw, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, materializer.Wrap(materializer.ErrInternal, "loader.Load", err)
		}

		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, materializer.Wrap(materializer.ErrInternal, fmt.Sprintf("loader.Load: parse %s", path), err)
		}

		name, envType := capturedName, ""
		for k, v := range doc {
			switch strings.ToLower(k) {
			case "environment":
				if s, ok := v.(string); ok {
					name = s
				}
			case "environmenttype":
				if s, ok := v.(string); ok {
					envType = s
				}
			}
		}

		key := strings.ToLower(name)
		if prev, ok := seen[key]; ok {
			return nil, materializer.Wrap(materializer.ErrAmbiguousEnvironment, "loader.Load",
				fmt.Errorf("environment %q defined by both %s and %s", name, prev, path))
		}
		seen[key] = path

		envs = append(envs, materializer.Environment{Name: name, EnvType: envType, ConfigData: doc})
	}

	sort.SliceStable(envs, func(i, j int) bool {
		return strings.ToLower(envs[i].Name) < strings.ToLower(envs[j].Name)
	})

	return envs, nil
}
