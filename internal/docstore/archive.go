package docstore

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/xcaeag/menufromproject/internal/fsutil"
)

const projectExt = ".qgs"

var zipMagic = []byte("PK\x03\x04")

func isArchive(name string, data []byte) bool {
	return bytes.HasPrefix(data, zipMagic) || strings.EqualFold(filepath.Ext(name), ".qgz")
}

// extract unpacks an archive into dir and returns the path of the project
// file it contains.
func extract(data []byte, dir string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: open archive: %v", ErrCorrupt, err)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for _, f := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return "", fmt.Errorf("%w: entry %q escapes archive root", ErrCorrupt, f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return "", err
			}
			continue
		}
		if err := writeEntry(f, target); err != nil {
			return "", err
		}
	}

	path, err := fsutil.FindSingleByExtension(root, projectExt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return path, nil
}

func writeEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %v", ErrCorrupt, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("%w: extract %s: %v", ErrCorrupt, f.Name, err)
	}
	return out.Close()
}
