package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// CoverExtensions are the image types a cover can be stored as
var CoverExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".tiff", ".webp"}

// FileStorage keeps the PDF blobs and cover images that Book.FileRef and
// Book.CoverRef point at
type FileStorage struct {
	basePath  string
	booksDir  string
	coversDir string
}

// NewFileStorage creates a new file storage handler
func NewFileStorage(basePath string) (*FileStorage, error) {
	fs := &FileStorage{
		basePath:  basePath,
		booksDir:  filepath.Join(basePath, "books"),
		coversDir: filepath.Join(basePath, "covers"),
	}

	// Create directories if they don't exist
	if err := os.MkdirAll(fs.booksDir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(fs.coversDir, 0755); err != nil {
		return nil, err
	}

	return fs, nil
}

// SaveBook copies a PDF into the library and returns its path and size
func (fs *FileStorage) SaveBook(id string, reader io.Reader) (string, int64, error) {
	filePath := fs.GetBookPath(id)

	file, err := os.Create(filePath)
	if err != nil {
		return "", 0, err
	}

	n, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return "", 0, err
	}

	return filePath, n, nil
}

// SaveCover saves a cover image and returns the file path
func (fs *FileStorage) SaveCover(id string, data []byte, ext string) (string, error) {
	if ext == "" {
		ext = ".jpg"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	ext = strings.ToLower(ext)
	if !slices.Contains(CoverExtensions, ext) {
		return "", fmt.Errorf("unsupported cover type %q", ext)
	}
	filePath := filepath.Join(fs.coversDir, id+ext)

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", err
	}

	return filePath, nil
}

// GetBookPath returns the path to a book file
func (fs *FileStorage) GetBookPath(id string) string {
	return filepath.Join(fs.booksDir, id+".pdf")
}

// GetCoverPath returns the path to a cover file, or "" if there is none
func (fs *FileStorage) GetCoverPath(id string) string {
	for _, ext := range CoverExtensions {
		path := filepath.Join(fs.coversDir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// DeleteBook removes a book file and its cover. Missing files are ignored.
func (fs *FileStorage) DeleteBook(id string) error {
	if err := os.Remove(fs.GetBookPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}

	if coverPath := fs.GetCoverPath(id); coverPath != "" {
		if err := os.Remove(coverPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

// OpenBook opens a book file for reading
func (fs *FileStorage) OpenBook(id string) (*os.File, error) {
	return os.Open(fs.GetBookPath(id))
}
