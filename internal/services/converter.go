package services

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
)

// DocumentConverter renders PDF pages as images and extracts embedded
// text. Conversion quality is a collaborator concern; the extraction
// pipeline only depends on this boundary.
type DocumentConverter interface {
	// RenderPages rasterizes every page of the PDF into image files
	// under outputDir and returns their paths in page order.
	RenderPages(ctx context.Context, pdfPath, outputDir string) ([]string, error)
	// ExtractText returns the embedded text of the whole document.
	ExtractText(ctx context.Context, pdfPath string) (string, error)
}

// PopplerConverter implements DocumentConverter with the poppler CLI
// tools (pdftoppm, pdftotext).
type PopplerConverter struct {
	dpi int
}

// NewPopplerConverter creates a converter rendering at the given DPI.
// 300 DPI keeps table text legible for the vision model.
func NewPopplerConverter(dpi int) *PopplerConverter {
	if dpi <= 0 {
		dpi = 300
	}
	return &PopplerConverter{dpi: dpi}
}

// RenderPages rasterizes the PDF with pdftoppm and returns the page
// image paths in page order
func (c *PopplerConverter) RenderPages(ctx context.Context, pdfPath, outputDir string) ([]string, error) {
	prefix := filepath.Join(outputDir, "page")

	cmd := exec.CommandContext(ctx, "pdftoppm", "-png", "-r", fmt.Sprintf("%d", c.dpi), pdfPath, prefix)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (%s)", err, stderr.String())
	}

	pages, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to list rendered pages: %w", err)
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order
	sort.Strings(pages)

	return pages, nil
}

// ExtractText extracts the embedded text of the PDF with pdftotext
func (c *PopplerConverter) ExtractText(ctx context.Context, pdfPath string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", pdfPath, "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed: %w (%s)", err, stderr.String())
	}

	return stdout.String(), nil
}
