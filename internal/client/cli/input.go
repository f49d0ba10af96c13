package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/gatherer/internal/common"
	"golang.org/x/term"
)

// readTerminalPassword reads without echo. Tests replace it.
var readTerminalPassword = term.ReadPassword

// FilePair asks for the file at Path to be uploaded for form field Field.
type FilePair struct {
	Field string
	Path  string
}

// readLine returns one line without its line ending. A final line without
// a newline is returned as is; io.EOF comes back only when nothing was read.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadUsername prompts for the surveyor's login name.
func ReadUsername(r *bufio.Reader, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Username: "); err != nil {
		return "", err
	}
	line, err := readLine(r)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(line)
	if name == "" {
		return "", fmt.Errorf("%w: username is required", common.ErrorValidation)
	}
	return name, nil
}

// ReadPassword prompts for a password on the terminal. The caller owns the
// returned buffer and should wipe it.
func ReadPassword(w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Password: "); err != nil {
		return nil, err
	}
	pw, err := readTerminalPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	if len(pw) == 0 {
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	}
	return pw, nil
}

// ReadFilePairs prompts for field=path lines until an empty line or EOF.
func ReadFilePairs(r *bufio.Reader, w io.Writer) ([]FilePair, error) {
	if _, err := fmt.Fprintln(w, "Enter files as field=path, one per line (empty line to finish)"); err != nil {
		return nil, err
	}

	var lines []string
	for {
		line, err := readLine(r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		lines = append(lines, line)
	}
	return ParseFilePairs(lines)
}

// ParseFilePairs parses field=path items. Surrounding spaces are dropped,
// the path keeps any '=' after the first, and a field may appear once.
func ParseFilePairs(items []string) ([]FilePair, error) {
	out := make([]FilePair, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		field, path, ok := strings.Cut(it, "=")
		field, path = strings.TrimSpace(field), strings.TrimSpace(path)
		if !ok || field == "" || path == "" {
			return nil, fmt.Errorf("expected field=path, got %q", it)
		}
		if _, dup := seen[field]; dup {
			return nil, fmt.Errorf("field %q given more than once", field)
		}
		seen[field] = struct{}{}
		out = append(out, FilePair{Field: field, Path: path})
	}
	return out, nil
}
