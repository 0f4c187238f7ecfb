package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFileNew writes data to a new file at path. It fails with an
// error satisfying errors.Is(err, fs.ErrExist) when the file already
// exists.
func WriteFileNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MkdirAllNew creates path along with any missing parents, failing with
// an error satisfying errors.Is(err, fs.ErrExist) when path itself
// already exists.
func MkdirAllNew(path string) error {
	if _, err := os.Lstat(path); err == nil {
		return &os.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	return os.MkdirAll(path, 0o755)
}

// CopyFile copies src to dst, following symlinks and preserving the
// source's permission bits. An existing dst is overwritten.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("copy %s: not a regular file", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := out.Chmod(info.Mode().Perm()); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyFileInto copies src into the directory dstDir, keeping the source
// file name.
func CopyFileInto(src, dstDir string) error {
	return CopyFile(src, filepath.Join(dstDir, filepath.Base(src)))
}
