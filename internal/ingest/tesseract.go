package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Tesseract recognizes text by shelling out to the tesseract binary. It
// satisfies TextRecognizer.
type Tesseract struct {
	binary string
}

// NewTesseract creates a recognizer using the given binary, or "tesseract"
// from PATH when empty.
func NewTesseract(binary string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	return &Tesseract{binary: binary}
}

// RecognizeText runs OCR on the image at path and returns the recognized
// text. Errors are expected to be downgraded to empty text by the caller.
func (t *Tesseract) RecognizeText(ctx context.Context, imagePath string) (string, error) {
	// "stdout" tells tesseract to print the text instead of writing a file.
	cmd := exec.CommandContext(ctx, t.binary, imagePath, "stdout")

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract %s: %w: %s", imagePath, err, stderr.String())
	}
	return out.String(), nil
}
