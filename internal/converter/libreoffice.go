package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultBinary is the LibreOffice executable looked up in PATH.
const DefaultBinary = "soffice"

// ErrProtected is returned for password-protected documents.
var ErrProtected = errors.New("document is password protected")

// LibreOffice converts word-processor documents to PDF with a headless
// LibreOffice process per document.
type LibreOffice struct {
	binary string
	// killGrace bounds how long Wait blocks after the process is killed.
	killGrace time.Duration
}

// NewLibreOffice creates a converter using the given executable.
func NewLibreOffice(binary string) *LibreOffice {
	if binary == "" {
		binary = DefaultBinary
	}
	return &LibreOffice{binary: binary, killGrace: 5 * time.Second}
}

// CheckInstallation verifies LibreOffice is available.
func (l *LibreOffice) CheckInstallation(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, l.binary, "--version")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("LibreOffice not found in PATH (%s): %w", l.binary, err)
	}
	version := strings.TrimSpace(string(output))
	log.Info().Str("version", version).Msg("LibreOffice found")
	return version, nil
}

// ConvertToPDF converts inputPath into outDir and returns the PDF path.
// The process is killed when ctx is done.
func (l *LibreOffice) ConvertToPDF(ctx context.Context, inputPath, outDir string) (string, error) {
	start := time.Now()

	if err := validateInput(inputPath); err != nil {
		return "", fmt.Errorf("input validation failed: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	// A private profile lets several conversions run side by side.
	profileDir := filepath.Join(outDir, fmt.Sprintf("lo_profile_%s", uuid.NewString()))
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create profile directory: %w", err)
	}
	defer os.RemoveAll(profileDir)

	cmd := exec.CommandContext(ctx,
		l.binary,
		fmt.Sprintf("-env:UserInstallation=file://%s", filepath.ToSlash(profileDir)),
		"--headless",
		"--norestore",
		"--nolockcheck",
		"--convert-to", "pdf",
		"--outdir", outDir,
		inputPath,
	)
	cmd.WaitDelay = l.killGrace

	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Msg("LibreOffice command")

	output, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("conversion interrupted after %v: %w", time.Since(start).Round(time.Millisecond), ctxErr)
	}
	if err != nil {
		if isProtected(output) {
			return "", ErrProtected
		}
		return "", fmt.Errorf("conversion failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	expected := ExpectedOutputPath(inputPath, outDir)
	info, err := os.Stat(expected)
	if err != nil {
		if isProtected(output) {
			return "", ErrProtected
		}
		return "", fmt.Errorf("output file not created: %w", err)
	}
	if info.Size() == 0 {
		return "", errors.New("output file is empty")
	}

	log.Info().Str("input", inputPath).Str("output", expected).Dur("duration", time.Since(start)).Msg("conversion successful")
	return expected, nil
}

// validateInput checks that the input is a readable, non-empty file.
func validateInput(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file")
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty")
	}
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("file not readable: %w", err)
	}
	return file.Close()
}

func isProtected(output []byte) bool {
	s := strings.ToLower(string(output))
	return strings.Contains(s, "password") || strings.Contains(s, "encrypted")
}

// ExpectedOutputPath is where LibreOffice writes the PDF for inputPath.
func ExpectedOutputPath(inputPath, outDir string) string {
	base := filepath.Base(inputPath)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".pdf")
}

// SupportedExtensions lists the word-processor formats accepted for conversion.
func SupportedExtensions() []string {
	return []string{"doc", "docx", "odt", "rtf"}
}

// IsSupported checks if a file extension is supported for conversion.
func IsSupported(extension string) bool {
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	for _, s := range SupportedExtensions() {
		if ext == s {
			return true
		}
	}
	return false
}
