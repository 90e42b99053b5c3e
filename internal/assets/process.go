package assets

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Action tells ProcessDir what to do with one source file.
type Action int

const (
	ActionCopy Action = iota
	ActionSkip
	ActionReplace
)

// Decision is returned by a ProcessFunc.
type Decision struct {
	Action  Action
	Content string // used with ActionReplace
}

// Copy writes the source bytes unchanged.
func Copy() Decision { return Decision{Action: ActionCopy} }

// Skip leaves the file out of the output.
func Skip() Decision { return Decision{Action: ActionSkip} }

// Replace writes content in place of the source bytes.
func Replace(content string) Decision { return Decision{Action: ActionReplace, Content: content} }

// ReadFunc returns the source bytes of the file being processed.
type ReadFunc func() ([]byte, error)

// ProcessFunc decides per file. name is the base filename.
type ProcessFunc func(name string, read ReadFunc) (Decision, error)

// ProcessDir hashes and writes every regular file in srcDir into destDir.
// A missing srcDir is not an error. fn may be nil (copy everything).
// It returns the number of files written.
func (w *Writer) ProcessDir(ctx context.Context, srcDir, destDir string, fn ProcessFunc) (int, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, assetError(err, "failed to read asset directory", srcDir)
	}
	return w.process(ctx, entries, destDir, fn,
		func(name string) ([]byte, error) { return os.ReadFile(filepath.Join(srcDir, name)) },
		func(name, base, ext string) error {
			_, err := w.WriteFile(ctx, filepath.Join(srcDir, name), destDir, base, ext)
			return err
		})
}

// ProcessFS is ProcessDir over the root of an fs.FS, used for embedded defaults.
func (w *Writer) ProcessFS(ctx context.Context, fsys fs.FS, destDir string, fn ProcessFunc) (int, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return 0, assetError(err, "failed to read embedded assets", destDir)
	}
	read := func(name string) ([]byte, error) { return fs.ReadFile(fsys, name) }
	return w.process(ctx, entries, destDir, fn, read,
		func(name, base, ext string) error {
			b, err := read(name)
			if err != nil {
				return assetError(err, "failed to read embedded asset", name)
			}
			_, err = w.WriteBytes(destDir, base, ext, b)
			return err
		})
}

func (w *Writer) process(
	ctx context.Context,
	entries []fs.DirEntry,
	destDir string,
	fn ProcessFunc,
	read func(name string) ([]byte, error),
	copyFile func(name, base, ext string) error,
) (int, error) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	written := 0
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return written, err
		}
		name := e.Name()
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)

		d := Copy()
		if fn != nil {
			var err error
			if d, err = fn(name, func() ([]byte, error) { return read(name) }); err != nil {
				return written, assetError(err, "asset processing failed", name)
			}
		}

		var err error
		switch d.Action {
		case ActionSkip:
			continue
		case ActionReplace:
			_, err = w.WriteString(destDir, base, ext, d.Content)
		default:
			err = copyFile(name, base, ext)
		}
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
