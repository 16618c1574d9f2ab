package export

import (
	"io"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileWriter writes to a temp file and atomically renames it on Close.
// The first write error is kept and later writes become no-ops.
type FileWriter struct {
	fs   afero.Fs
	path string
	f    afero.File
	tmp  string
	werr error
}

// NewFileWriter creates the temp file next to path, creating the directory
// if needed.
func NewFileWriter(fs afero.Fs, path string) (*FileWriter, error) {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := afero.TempFile(fs, dir, filepath.Base(path)+".*")
	if err != nil {
		return nil, err
	}
	return &FileWriter{fs: fs, path: path, f: f, tmp: f.Name()}, nil
}

// Write implements io.Writer.
func (fw *FileWriter) Write(p []byte) (int, error) {
	if fw.werr != nil {
		return 0, fw.werr
	}
	n, err := fw.f.Write(p)
	fw.werr = err
	return n, err
}

// Close renames the temp file into place. If a write failed earlier that
// error is returned and the target is left untouched.
func (fw *FileWriter) Close() error {
	err := fw.f.Close()
	if fw.werr != nil {
		err = fw.werr
	}
	if err == nil {
		err = fw.fs.Rename(fw.tmp, fw.path)
	}
	if err != nil {
		_ = fw.fs.Remove(fw.tmp)
	}
	return err
}

// Abort discards the temp file.
func (fw *FileWriter) Abort() {
	_ = fw.f.Close()
	_ = fw.fs.Remove(fw.tmp)
}

var _ io.WriteCloser = (*FileWriter)(nil)

// WriteFile renders rep into dir/name and returns the written path.
func WriteFile(fs afero.Fs, dir, name string, r *Renderer, rep Report) (string, error) {
	path := filepath.Join(dir, name)
	fw, err := NewFileWriter(fs, path)
	if err != nil {
		return "", err
	}
	if err := r.Render(fw, rep); err != nil {
		fw.Abort()
		return "", err
	}
	if err := fw.Close(); err != nil {
		return "", err
	}
	return path, nil
}
