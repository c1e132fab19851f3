package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, KindAccessDenied},
		{"not exist", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, KindNotFound},
		{"canceled", fmt.Errorf("walk: %w", context.Canceled), KindCancelled},
		{"deadline", context.DeadlineExceeded, KindCancelled},
		{"sentinel not dir", ErrNotDirectory, KindNotDirectory},
		{"other", errors.New("disk on fire"), KindIO},
		{"already typed", &ScanError{Op: "read", Path: "/x", Kind: KindNotFound, Err: errors.New("gone")}, KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassify_RealNotDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := os.ReadDir(file)
	assert.Equal(t, KindNotDirectory, Classify(err))
}

func TestScanError_IsMatchesKindAndCause(t *testing.T) {
	cause := &fs.PathError{Op: "readdir", Path: "/x", Err: fs.ErrPermission}
	err := newScanError("expand", "/x", cause)

	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "expand /x: readdir /x: permission denied", err.Error())
}

func TestNewScanError_KeepsExistingScanError(t *testing.T) {
	inner := &ScanError{Op: "read", Path: "/a", Kind: KindNotFound, Err: fs.ErrNotExist}
	got := newScanError("expand", "/b", fmt.Errorf("wrapped: %w", inner))
	assert.Same(t, inner, got)
}

func TestCancelledError(t *testing.T) {
	err := cancelledError("scan", "/x", nil)
	assert.True(t, IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "cancelled", KindCancelled.String())
}
