// Package report writes the pipeline's CSV outputs.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/sw33tLie/adscope/internal/utils"
)

// ErrFallbackFailed wraps the error of a failed temp-file fallback write.
var ErrFallbackFailed = errors.New("fallback write failed")

var bom = []byte{0xEF, 0xBB, 0xBF}

// OpenFileFunc matches os.OpenFile.
type OpenFileFunc func(name string, flag int, perm os.FileMode) (*os.File, error)

// Options configures a Writer. Zero values use the real filesystem.
type Options struct {
	Log utils.Logger
	// TempDir is where fallback files are staged. Defaults to os.TempDir().
	TempDir  string
	OpenFile OpenFileFunc
	Rename   func(oldpath, newpath string) error
	// OnFallback is called after a successful temp-file fallback.
	OnFallback func(path string)
}

// Writer writes BOM-prefixed CSV files with a one-shot temp-file fallback.
type Writer struct {
	log        utils.Logger
	tempDir    string
	openFile   OpenFileFunc
	rename     func(oldpath, newpath string) error
	onFallback func(path string)
}

func NewWriter(opts Options) *Writer {
	w := &Writer{
		log:        utils.OrNop(opts.Log),
		tempDir:    opts.TempDir,
		openFile:   opts.OpenFile,
		rename:     opts.Rename,
		onFallback: opts.OnFallback,
	}
	if w.tempDir == "" {
		w.tempDir = os.TempDir()
	}
	if w.openFile == nil {
		w.openFile = os.OpenFile
	}
	if w.rename == nil {
		w.rename = os.Rename
	}
	return w
}

// writeCSV encodes header and rows and stores them at path.
func (w *Writer) writeCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	buf.Write(bom)
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return w.store(path, buf.Bytes())
}

func (w *Writer) store(path string, content []byte) error {
	err := w.writePrimary(path, content)
	if err == nil {
		return nil
	}
	if !errors.Is(err, utils.ErrOutputLocked) && !errors.Is(err, fs.ErrPermission) {
		return err
	}

	w.log.Warnf("Cannot write %s directly (%v), retrying through a temporary file", path, err)
	if ferr := w.writeViaTemp(path, content); ferr != nil {
		w.log.Errorf("Failed to save %s via temporary file: %v", path, ferr)
		return fmt.Errorf("%w: %s: %v", ErrFallbackFailed, path, ferr)
	}
	w.log.Infof("Saved %s via temporary file", path)
	if w.onFallback != nil {
		w.onFallback(path)
	}
	return nil
}

func (w *Writer) writePrimary(path string, content []byte) error {
	lock, err := utils.NewOutputLock(path)
	if err != nil {
		return err
	}
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer lock.Unlock()

	f, err := w.openFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	return writeAndSync(f, content)
}

// writeViaTemp stages content in tempDir and renames it over path. A
// cross-device rename is retried through a sibling of path.
func (w *Writer) writeViaTemp(path string, content []byte) error {
	tmp, err := os.CreateTemp(w.tempDir, "adscope-*.csv")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer removeIfExists(tmpPath)

	if err := writeAndSync(tmp, content); err != nil {
		return err
	}

	err = w.rename(tmpPath, path)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	sib, err := os.CreateTemp(filepath.Dir(path), ".adscope-*.tmp")
	if err != nil {
		return err
	}
	sibPath := sib.Name()
	defer removeIfExists(sibPath)

	if err := writeAndSync(sib, content); err != nil {
		return err
	}
	return w.rename(sibPath, path)
}

// writeAndSync writes content, fsyncs and closes f.
func writeAndSync(f *os.File, content []byte) error {
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func removeIfExists(path string) {
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
}

// readCSV strips an optional BOM and returns the header plus rows.
func readCSV(r io.Reader) ([]string, [][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	data = bytes.TrimPrefix(data, bom)
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("empty CSV file")
	}
	return records[0], records[1:], nil
}
