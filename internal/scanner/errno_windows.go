//go:build windows

package scanner

import (
	"errors"

	"golang.org/x/sys/windows"
)

func isNotDirErr(err error) bool {
	return errors.Is(err, windows.ERROR_DIRECTORY)
}
