// Package config loads build descriptions for bootpack.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kdrag0n/bootpack"
)

// Build is a resolved build description.
type Build struct {
	Stub       string
	Firmware   string
	DeviceTree string
	// Ramdisk may be empty, which encodes an empty ramdisk region.
	Ramdisk string
	Output  string

	Image              bootpack.Config
	RamdiskCompression int
	Stamp              []bootpack.Replacement
}

// OpError wraps an underlying error with the operation and file it came from.
type OpError struct {
	Op   string
	Path string
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := e.Op
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ErrNotFound is returned when the build file cannot be read.
var ErrNotFound = errors.New("not found")

// Defaults returns the mkbootimg defaults: 2048 byte pages, header version 0,
// every address zero.
func Defaults() Build {
	return Build{
		Image: bootpack.Config{
			PageSize:      bootpack.DefaultPageSize,
			HeaderVersion: bootpack.HeaderV0,
		},
		RamdiskCompression: bootpack.CompNone,
	}
}

// Load reads a YAML build file. Relative input paths are resolved against the
// file's directory; "today" as patch level resolves against now.
func Load(path string, now time.Time) (Build, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Build{}, &OpError{
			Op:   "config.load",
			Path: path,
			Err:  fmt.Errorf("%w: %v", ErrNotFound, err),
		}
	}

	var dto YAMLBuild
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return Build{}, &OpError{
			Op:   "config.load",
			Path: path,
			Err:  fmt.Errorf("%w: %v", bootpack.ErrInvalidConfig, err),
		}
	}

	return MapBuild(path, dto, now)
}
