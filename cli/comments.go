package cli

import (
	"bufio"
	"io"
	"strings"

	"opusedit/status"
)

// ReadComments parses a newline-separated NAME=VALUE comment list, as fed to
// --set-all on standard input. Blank lines and lines starting with # are
// skipped; any other line without an equals sign is rejected.
func ReadComments(r io.Reader) ([]string, error) {
	var comments []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if !strings.Contains(line, "=") {
			return nil, status.New(status.BadArguments,
				"malformed comment %q: missing an equals sign", line)
		}
		comments = append(comments, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, status.Wrap(status.StandardError, err, "could not read the comments")
	}
	return comments, nil
}
