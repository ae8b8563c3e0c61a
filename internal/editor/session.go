// Package editor manages interactive edit sessions: a temporary document
// is written, handed to an external editor, re-read, and always cleaned
// up, with operator cancellation detected by comparing bytes.
package editor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// Launcher opens a document in an external editor and blocks until the
// editor exits, having possibly modified the file in place.
type Launcher interface {
	Launch(ctx context.Context, path string) error
}

// ValidationError reports that an edited document failed the session's
// validator. It is distinguishable from cancellation, which is not an
// error at all.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("edited document is invalid: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Session runs interactive edits through an injected Launcher.
//
// The launcher is an explicit dependency rather than ambient
// configuration so sessions are testable without spawning processes.
type Session struct {
	launcher Launcher

	// Validate, when set, is invoked on the edited text before Edit
	// returns it. A failure surfaces as a ValidationError.
	Validate func(text string) error
}

// NewSession creates a session using the given launcher.
func NewSession(launcher Launcher) *Session {
	return &Session{launcher: launcher}
}

// Edit writes initial text to a temporary document, launches the editor,
// and re-reads the document.
//
// Returns the edited text and changed=true when the operator modified
// the document. When the re-read bytes are identical to the initial text
// the session was cancelled: Edit returns changed=false and callers must
// treat that as a no-op, not an error. The temporary document is removed
// on every exit path.
func (s *Session) Edit(ctx context.Context, initial string) (text string, changed bool, err error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("pvectl-edit-%s.yaml", uuid.NewString()))

	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		return "", false, fmt.Errorf("failed to write edit document: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = fmt.Errorf("failed to remove edit document: %w", rmErr)
		}
	}()

	if err := s.launcher.Launch(ctx, path); err != nil {
		return "", false, fmt.Errorf("editor failed: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, fmt.Errorf("failed to re-read edit document: %w", err)
	}

	edited := string(data)
	if edited == initial {
		return "", false, nil
	}

	if s.Validate != nil {
		if err := s.Validate(edited); err != nil {
			return "", false, &ValidationError{Err: err}
		}
	}

	return edited, true, nil
}

// ExecLauncher launches a local editor binary attached to the caller's
// terminal.
type ExecLauncher struct {
	Command string
}

// NewExecLauncher resolves the editor command: explicit override first,
// then $VISUAL, then $EDITOR, then vi.
func NewExecLauncher(override string) *ExecLauncher {
	cmd := override
	if cmd == "" {
		cmd = os.Getenv("VISUAL")
	}
	if cmd == "" {
		cmd = os.Getenv("EDITOR")
	}
	if cmd == "" {
		cmd = "vi"
	}
	return &ExecLauncher{Command: cmd}
}

// Launch runs the editor on path and blocks until it exits.
func (l *ExecLauncher) Launch(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, l.Command, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s exited with error: %w", l.Command, err)
	}
	return nil
}
