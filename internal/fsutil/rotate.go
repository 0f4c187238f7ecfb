package fsutil

import (
	"fmt"
	"os"
)

// RotateBounded moves an existing file at path out of the way before it
// is rewritten: path becomes path.1, a previous path.1 becomes path.2,
// and so on up to backups copies. The oldest backup is dropped. A
// missing path is not an error.
func RotateBounded(path string, backups int) error {
	if backups < 1 {
		return fmt.Errorf("rotate %s: backups must be positive", path)
	}
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for i := backups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", path, i)
		if _, err := os.Lstat(from); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := os.Rename(from, fmt.Sprintf("%s.%d", path, i+1)); err != nil {
			return err
		}
	}
	return os.Rename(path, path+".1")
}
