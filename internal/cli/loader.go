package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/reducerx/internal/harness"
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeScanError      = "E002" // Directory scan error
	ErrCodeNoFiles        = "E003" // No scenario files found
	ErrCodeLoadFailed     = "E004" // Scenario YAML invalid
	ErrCodeNotFound       = "E005" // Path, journal or run not found
	ErrCodeCompileFailed  = "E006" // CUE handler failed to compile
	ErrCodeJournalFailed  = "E007" // Journal read or write error
	ErrCodeReplayMismatch = "E008" // Replay diverged from the journal
	ErrCodeScenarioFailed = "E009" // Expectation or assertion failed
)

// LoadError is a scenario problem with a stable error code.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s:%d:%d: %s: %s", e.Path, e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FindScenarioFiles expands paths into scenario files. Files are taken as
// given; directories are walked for .yaml and .yml files. A non-empty
// filter is a glob matched against the file name without extension.
// Results are sorted and deduplicated.
func FindScenarioFiles(paths []string, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("invalid filter pattern: %v", err)}
		}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !matchesFilter(path, filter) || seen[path] {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: root, Message: "path not found"}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Path: root, Message: err.Error()}
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isScenarioFile(path) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Path: root, Message: err.Error()}
		}
	}

	sort.Strings(files)
	return files, nil
}

func isScenarioFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

func matchesFilter(path, filter string) bool {
	if filter == "" {
		return true
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	matched, _ := filepath.Match(filter, name)
	return matched
}

// classifyError maps a harness error to a LoadError with a code.
func classifyError(path string, err error) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &LoadError{Code: ErrCodeNotFound, Path: path, Message: err.Error()}
	}

	var hle *harness.LoadError
	if errors.As(err, &hle) && strings.HasSuffix(hle.Field, ".cue") {
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Path:    path,
			Message: hle.Field + ": " + hle.Message,
			Pos:     hle.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error()}
}

// loadScenario loads and validates one file. The error is a *LoadError.
func loadScenario(path string) (*harness.Scenario, error) {
	s, err := harness.LoadScenario(path)
	if err != nil {
		return nil, classifyError(path, err)
	}
	return s, nil
}
