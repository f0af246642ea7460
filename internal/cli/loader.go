package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/sebo/internal/harness"
)

// LoadError represents an error that occurred while loading a scenario.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// scenarioExts lists the file extensions recognised as scenarios.
var scenarioExts = map[string]bool{".yaml": true, ".yml": true, ".cue": true}

// LoadScenarioFile loads a scenario from a YAML or CUE file.
//
// CUE files are evaluated first, so definitions, references and
// constraints are resolved; the concrete result is then decoded with the
// same strict rules as YAML scenarios.
func LoadScenarioFile(path string) (*harness.Scenario, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "scenario file not found"}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "is a directory"}
	}

	switch filepath.Ext(path) {
	case ".cue":
		return loadCUEScenario(path)
	case ".yaml", ".yml":
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error()}
		}
		return scenario, nil
	default:
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: "unsupported scenario extension (want .yaml, .yml or .cue)"}
	}
}

func loadCUEScenario(path string) (*harness.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error()}
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Path: path, Message: errors.Details(err, nil)}
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Path: path, Message: errors.Details(err, nil)}
	}

	// JSON is a subset of YAML, so the harness decoder handles the export.
	exported, err := value.MarshalJSON()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Path: path, Message: err.Error()}
	}
	scenario, err := harness.ParseScenario(exported)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error()}
	}
	return scenario, nil
}

// FindScenarioFiles walks dir and returns scenario files in lexical order.
// The golden directory is skipped. A non-empty filter is matched as a glob
// against the file name without its extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if !scenarioExts[ext] {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	sort.Strings(files)
	return files, err
}

// scenarioFileName returns the file name of path without its extension.
func scenarioFileName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
