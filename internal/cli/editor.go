package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/starford/hypo/internal"
)

// editorArgv returns the user's editor invocation, split on whitespace so
// values like "code --wait" work.
func editorArgv() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return strings.Fields(v)
		}
	}
	return []string{"vi"}
}

// editNote round-trips a note through the editor: the content goes to a
// temp file, the editor runs attached to the terminal, and the result is
// validated before it atomically replaces the original. A failed edit
// leaves the note untouched.
func editNote(ctx context.Context, app *internal.App, id string) error {
	raw, err := app.Vault.Raw(id)
	if err != nil {
		return asNotFound(err, id)
	}

	tmp, err := os.CreateTemp("", "hypo-"+id+"-*.md")
	if err != nil {
		return fmt.Errorf("edit: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("edit: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("edit: close temp file: %w", err)
	}

	argv := editorArgv()
	editor := exec.CommandContext(ctx, argv[0], append(argv[1:], tmp.Name())...)
	editor.Stdin = os.Stdin
	editor.Stdout = os.Stdout
	editor.Stderr = os.Stderr
	if err := editor.Run(); err != nil {
		return fmt.Errorf("edit: editor %s: %w", argv[0], err)
	}

	edited, err := os.ReadFile(tmp.Name())
	if err != nil {
		return fmt.Errorf("edit: read temp file: %w", err)
	}
	if bytes.Equal(edited, raw) {
		return nil
	}

	svc, err := app.Service()
	if err != nil {
		return err
	}
	return svc.Update(ctx, id, edited)
}
