package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rezonia/mdfe-builder/internal/model"
)

// openOutput returns stdout when path is empty. The returned close func is
// always safe to call.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func checkFormat() error {
	switch outputFormat {
	case "json", "table":
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

// readForm loads a form state saved as JSON
func readForm(path string) (*model.FormState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read form: %w", err)
	}
	var form model.FormState
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, fmt.Errorf("failed to parse form %s: %w", path, err)
	}
	return &form, nil
}

func writeForm(path string, form *model.FormState) error {
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	if err := writeJSON(w, form); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

// collectFiles expands globs and walks directories, keeping files that
// match one of the extensions
func collectFiles(args []string, exts ...string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}
			if !info.IsDir() {
				files = append(files, arg)
				continue
			}
			matches = []string{arg}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				if hasExt(match, exts) {
					files = append(files, match)
				}
				continue
			}
			err = filepath.Walk(match, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && hasExt(path, exts) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

func hasExt(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
