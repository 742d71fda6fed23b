package monitor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
)

const (
	// DefaultRetention is the number of newest logs kept uncompressed.
	DefaultRetention = 10
	archiveDirName   = "archive"
)

// RotationResult summarises one rotation pass.
type RotationResult struct {
	Kept     int
	Archived int
	Skipped  []string
}

// Rotate compresses *.jsonl files in dir older than the `keep` newest
// into dir/archive/<name>.gz, deleting the originals on success. Files
// named in exclude (an open log still being written, for instance) are
// always kept. A file that cannot even be opened for a read probe is
// recorded in Skipped rather than failing the whole pass.
func Rotate(dir string, keep int, dryRun bool, exclude []string) (RotationResult, error) {
	if keep < 0 {
		keep = 0
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return RotationResult{}, fmt.Errorf("ensure log dir: %w", err)
	}
	archiveDir := filepath.Join(dir, archiveDirName)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return RotationResult{}, fmt.Errorf("ensure archive dir: %w", err)
	}

	excludeSet := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		resolved, err := filepath.Abs(e)
		if err != nil {
			resolved = e
		}
		excludeSet[resolved] = true
	}

	candidates, err := collectJSONL(dir)
	if err != nil {
		return RotationResult{}, err
	}

	var result RotationResult
	for i, path := range candidates {
		resolved, err := filepath.Abs(path)
		if err != nil {
			resolved = path
		}
		if excludeSet[resolved] {
			result.Kept++
			continue
		}
		if i < keep {
			result.Kept++
			continue
		}

		if !canOpen(path) {
			result.Skipped = append(result.Skipped, path)
			continue
		}

		if dryRun {
			result.Archived++
			continue
		}

		archivePath := filepath.Join(archiveDir, filepath.Base(path)+".gz")
		if err := compressAndRemove(path, archivePath); err != nil {
			result.Skipped = append(result.Skipped, path)
			os.Remove(archivePath)
			continue
		}
		result.Archived++
	}

	return result, nil
}

// collectJSONL lists *.jsonl files in dir sorted newest-first by mtime.
func collectJSONL(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	type fileInfo struct {
		path  string
		mtime int64
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: filepath.Join(dir, e.Name()), mtime: info.ModTime().UnixNano()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mtime > files[j].mtime })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

func canOpen(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func compressAndRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		gz.Close()
		out.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Remove(src)
}
