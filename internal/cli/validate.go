package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reducerx/internal/harness"
)

// ValidationError is one problem found in a scenario file.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// FileValidation holds the validation outcome for one file.
type FileValidation struct {
	Path   string            `json:"path"`
	Name   string            `json:"name,omitempty"`
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario|dir>...",
		Short: "Validate scenarios without running them",
		Long: `Validate scenario files without dispatching any actions.

Reports every structural problem in each file (missing fields, unknown
variants, malformed steps and assertions) and compiles every CUE handler.
Faster than run for development feedback.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	files, err := FindScenarioFiles(paths, "")
	if err != nil {
		le := classifyError("", err)
		_ = out.Error(le.Code, le.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		_ = out.Error(ErrCodeNoFiles, "no scenario files found", paths)
		return NewExitError(ExitCommandError, "no scenario files found")
	}
	out.VerboseLog("Found %d scenario file(s)", len(files))

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	invalid := 0
	for _, file := range files {
		fv := validateFile(file)
		result.Files = append(result.Files, fv)
		if !fv.Valid {
			result.Valid = false
			invalid++
		}
		if opts.Format != "json" {
			printFileValidation(out, fv)
		}
	}

	if opts.Format == "json" {
		code, msg := "", ""
		if invalid > 0 {
			code, msg = ErrCodeLoadFailed, fmt.Sprintf("%d invalid scenario file(s)", invalid)
		}
		if err := out.Result(result, code, msg); err != nil {
			return err
		}
	} else if invalid == 0 {
		fmt.Fprintf(out.Writer, "%s %d scenario file(s) valid\n", out.Mark(true), len(files))
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid scenario file(s)", invalid))
	}
	return nil
}

// validateFile strictly decodes a file and collects every problem.
func validateFile(path string) FileValidation {
	fv := FileValidation{Path: path}

	s, err := harness.ReadScenario(path)
	if err != nil {
		le := classifyError(path, err)
		fv.Errors = []ValidationError{{Code: le.Code, Message: err.Error()}}
		return fv
	}
	fv.Name = s.Name

	for _, err := range harness.Validate(s) {
		fv.Errors = append(fv.Errors, toValidationError(path, err))
	}
	fv.Valid = len(fv.Errors) == 0
	return fv
}

func toValidationError(path string, err error) ValidationError {
	le := classifyError(path, err)
	ve := ValidationError{Code: le.Code, Message: err.Error()}

	var hle *harness.LoadError
	if errors.As(err, &hle) {
		ve.Field = hle.Field
		ve.Message = hle.Message
		if hle.Pos.IsValid() {
			ve.Line = hle.Pos.Line()
			ve.Column = hle.Pos.Column()
		}
	}
	return ve
}

func printFileValidation(out *OutputFormatter, fv FileValidation) {
	w := out.Writer
	if fv.Valid {
		out.VerboseLog("%s valid", fv.Path)
		return
	}
	fmt.Fprintf(w, "%s %s\n", out.Mark(false), fv.Path)
	for _, e := range fv.Errors {
		loc := ""
		if e.Line > 0 {
			loc = fmt.Sprintf(" (line %d, column %d)", e.Line, e.Column)
		}
		if e.Field != "" {
			fmt.Fprintf(w, "  [%s] %s: %s%s\n", e.Code, e.Field, e.Message, loc)
		} else {
			fmt.Fprintf(w, "  [%s] %s%s\n", e.Code, e.Message, loc)
		}
	}
}
