package csvstore

import (
	"bufio"
	"encoding/csv"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// writeCSVAtomic writes header and rows to a temporary file next to path and
// renames it into place. It returns the BLAKE3 digest of the written bytes.
func writeCSVAtomic(path string, header []string, rows [][]string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	hasher := blake3.New()
	bw := bufio.NewWriterSize(io.MultiWriter(tmp, hasher), 64*1024)
	w := csv.NewWriter(bw)
	if err := w.Write(header); err != nil {
		cleanup()
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		cleanup()
		return "", err
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	_ = syncDir(dir)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// syncDir fsyncs the directory so the rename survives a crash.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
