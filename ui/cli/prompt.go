// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// readLine reads one line from in. The prompt is only shown to a person at
// a terminal so piped input stays clean.
func readLine(in io.Reader, out io.Writer, prompt string, interactive bool) (string, error) {
	if interactive {
		_, _ = fmt.Fprint(out, prompt)
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
