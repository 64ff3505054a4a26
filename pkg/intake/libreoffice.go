package intake

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/analytiqhub/docrouter/pkg/apperr"
)

// LibreOfficeConverter implements Converter by shelling out to a headless
// LibreOffice binary (spec.md §4.K step 5's "external converter"). The
// exclusive file-lock the step names is held by the caller (Intake.Lock),
// not here — this type only runs one conversion per call.
type LibreOfficeConverter struct {
	// Binary is the soffice/libreoffice executable name or path.
	Binary string
}

// NewLibreOfficeConverter builds a LibreOfficeConverter invoking binary
// (e.g. "libreoffice" or "/Applications/LibreOffice.app/Contents/MacOS/soffice").
func NewLibreOfficeConverter(binary string) *LibreOfficeConverter {
	return &LibreOfficeConverter{Binary: binary}
}

// ConvertToPDF writes data to a temp file with sourceExt, invokes LibreOffice
// headless conversion into the same directory, and returns the resulting
// PDF bytes.
func (l *LibreOfficeConverter) ConvertToPDF(ctx context.Context, data []byte, sourceExt string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "docrouter-convert-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating conversion tempdir: %v", apperr.ErrStorageFailed, err)
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, uuid.NewString()+sourceExt)
	if err := os.WriteFile(inputPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("%w: writing conversion input: %v", apperr.ErrStorageFailed, err)
	}

	cmd := exec.CommandContext(ctx, l.Binary,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", dir,
		inputPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: libreoffice conversion failed: %v: %s", apperr.ErrStorageFailed, err, out)
	}

	outputPath := inputPath[:len(inputPath)-len(sourceExt)] + ".pdf"
	pdfBytes, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading converted pdf: %v", apperr.ErrStorageFailed, err)
	}
	return pdfBytes, nil
}
