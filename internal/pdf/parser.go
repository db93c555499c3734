package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNotPDF is returned for files that do not carry a PDF header
var ErrNotPDF = errors.New("not a PDF file")

// Metadata contains extracted PDF metadata
type Metadata struct {
	Title     string
	Author    string
	Subject   string
	Keywords  []string
	PageCount int
}

// ParsePDF extracts metadata from a PDF file. Unreadable document info is not
// an error: the title falls back to the file name and PageCount stays 0.
func ParsePDF(filePath string) (*Metadata, error) {
	meta := &Metadata{
		Title: extractTitleFromFilename(filePath),
	}

	f, err := os.Open(filePath)
	if err != nil {
		return meta, nil
	}
	defer f.Close()

	info, err := api.PDFInfo(f, filePath, nil, false, model.NewDefaultConfiguration())
	if err != nil {
		return meta, nil
	}

	if info.PageCount > 0 {
		meta.PageCount = info.PageCount
	}
	if info.Title != "" {
		meta.Title = info.Title
	}
	if info.Author != "" {
		meta.Author = info.Author
	}
	if info.Subject != "" {
		meta.Subject = info.Subject
	}
	if len(info.Keywords) > 0 {
		meta.Keywords = info.Keywords
	}

	return meta, nil
}

// IsPDF reports whether the file starts with the %PDF- magic bytes
func IsPDF(filePath string) (bool, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, 5)
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(header, []byte("%PDF-")), nil
}

// ValidatePDF checks if a file is a valid PDF
func ValidatePDF(filePath string) error {
	ok, err := IsPDF(filePath)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotPDF, filepath.Base(filePath))
	}

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	return api.Validate(f, model.NewDefaultConfiguration())
}

// GetPageCount returns the number of pages in a PDF
func GetPageCount(filePath string) (int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := api.PDFInfo(f, filePath, nil, false, model.NewDefaultConfiguration())
	if err != nil {
		return 0, err
	}

	return info.PageCount, nil
}

func extractTitleFromFilename(filePath string) string {
	base := filepath.Base(filePath)
	title := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSpace(strings.NewReplacer("_", " ").Replace(title))
}

// CoverImage contains extracted cover image data
type CoverImage struct {
	Data      []byte
	Extension string // ".jpg", ".png", etc.
}

// ExtractCover returns the largest image embedded on the first page, which for
// scanned books and most publisher PDFs is the cover
func ExtractCover(filePath string) (*CoverImage, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pageMaps, err := api.ExtractImagesRaw(f, []string{"1"}, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	var (
		best     *CoverImage
		bestSize int
	)
	for _, pageMap := range pageMaps {
		for _, img := range pageMap {
			data, err := io.ReadAll(img)
			if err != nil {
				continue
			}
			if len(data) > bestSize {
				bestSize = len(data)
				best = &CoverImage{Data: data, Extension: imageExtension(img.FileType)}
			}
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no images found on first page")
	}
	return best, nil
}

func imageExtension(imageType string) string {
	switch strings.ToLower(imageType) {
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	case "tiff", "tif":
		return ".tiff"
	case "webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
