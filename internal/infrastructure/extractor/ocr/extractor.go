// Package ocr runs the tesseract command line over image uploads.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrNotConfigured = errors.New("ocr binary is not configured")

type Extractor struct {
	binary string
	args   []string
}

// NewExtractor builds an extractor around the tesseract binary at path.
func NewExtractor(path string) *Extractor {
	return &Extractor{
		binary: strings.TrimSpace(path),
		args:   []string{"--oem", "3", "--psm", "1", "-l", "eng"},
	}
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if e.binary == "" {
		return "", ErrNotConfigured
	}

	args := append([]string{path, "stdout"}, e.args...)
	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("run %s: %w", e.binary, err)
		}
		return "", fmt.Errorf("run %s: %w: %s", e.binary, err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}
