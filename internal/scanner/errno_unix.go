//go:build !windows

package scanner

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isNotDirErr(err error) bool {
	return errors.Is(err, unix.ENOTDIR)
}
