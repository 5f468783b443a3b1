package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// File is one selected file. ContentType may be empty; it is then sniffed
// from Data.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return File{
		Name:        filepath.Base(path),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}

func (f File) contentType() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	return mimetype.Detect(f.Data).String()
}

// IsImage reports whether the file's content type is image/*.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.contentType(), "image/")
}

// extension returns the part after the last dot, or "" for names without
// one and for dotfiles such as ".hidden".
func extension(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) < 2 || (len(parts) == 2 && parts[0] == "") {
		return ""
	}
	return parts[len(parts)-1]
}
