// Package device provides access to the raw storage targets a scan reads
// from: logical volumes, whole physical disks, and file-backed images. It
// owns the platform addressing rules and the read semantics the carving loop
// depends on, including bad-sector tolerance on physical media.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrAccessDenied reports that opening the device failed for lack of
// privileges. Raw device access typically requires elevation.
var ErrAccessDenied = errors.New("access denied: opening this device requires elevated privileges")

// physicalDrivePrefix is the Windows raw-device syntax for whole disks.
const physicalDrivePrefix = `\\.\PhysicalDrive`

// IsPhysical reports whether the path addresses a whole physical disk rather
// than a logical volume or file-backed image. Read errors on physical media
// are expected (bad sectors) and non-fatal; on logical targets they are
// fatal.
func IsPhysical(path string) bool {
	return strings.HasPrefix(path, physicalDrivePrefix) || strings.HasPrefix(path, "/dev/")
}

// Handle is an open, sequentially-read byte source. It is owned exclusively
// by one scan for its duration and closed on completion, cancellation, or
// fatal error.
type Handle struct {
	f        *os.File
	path     string
	physical bool
}

// Open opens the device at path for sequential reading. Permission failures
// are classified as ErrAccessDenied.
func Open(path string) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("opening device %q: %w", path, ErrAccessDenied)
		}
		return nil, fmt.Errorf("opening device %q: %w", path, err)
	}
	return &Handle{f: f, path: path, physical: IsPhysical(path)}, nil
}

// Path returns the device path the handle was opened with.
func (h *Handle) Path() string { return h.path }

// Physical reports whether the handle addresses a whole physical disk.
func (h *Handle) Physical() bool { return h.physical }

// ReadBlock fills buf from the current offset. It returns the number of
// bytes read; a short final block is returned with a nil error, and a clean
// end of stream is reported as (0, io.EOF).
func (h *Handle) ReadBlock(buf []byte) (int, error) {
	n, err := io.ReadFull(h.f, buf)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return n, nil
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	default:
		return n, err
	}
}

// Skip advances the read offset by n bytes without reading. Used to step
// over unreadable sectors on physical media.
func (h *Handle) Skip(n int64) error {
	if _, err := h.f.Seek(n, io.SeekCurrent); err != nil {
		return fmt.Errorf("skipping %d bytes on %q: %w", n, h.path, err)
	}
	return nil
}

// Close releases the handle.
func (h *Handle) Close() error { return h.f.Close() }

// Drive describes one enumerated storage target.
type Drive struct {
	// Path is the openable device path (root path for logical volumes,
	// raw-device path for physical disks).
	Path string

	// Model is the human-readable device model, when known.
	Model string

	// Size is the device size in bytes, zero when unknown.
	Size int64
}

// Enumerator lists the storage targets available for scanning. The engine
// only consumes this interface; platform front-ends provide implementations.
type Enumerator interface {
	// LogicalDrives lists mounted logical volumes.
	LogicalDrives(ctx context.Context) ([]Drive, error)

	// PhysicalDrives lists whole physical disks.
	PhysicalDrives(ctx context.Context) ([]Drive, error)
}

// PhysicalSizer answers size queries for physical media, which cannot be
// sized by seeking. Platform front-ends provide implementations.
type PhysicalSizer interface {
	PhysicalSize(ctx context.Context, path string) (int64, error)
}

// Size returns the size in bytes of a logical or file-backed target by
// seeking to its end. For physical media it delegates to sizer; a nil sizer
// makes physical targets unsizeable.
func Size(ctx context.Context, path string, sizer PhysicalSizer) (int64, error) {
	if IsPhysical(path) {
		if sizer == nil {
			return 0, fmt.Errorf("no physical drive sizer available for %q", path)
		}
		return sizer.PhysicalSize(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return 0, fmt.Errorf("sizing device %q: %w", path, ErrAccessDenied)
		}
		return 0, fmt.Errorf("sizing device %q: %w", path, err)
	}
	defer f.Close()

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("sizing device %q: %w", path, err)
	}
	return size, nil
}
