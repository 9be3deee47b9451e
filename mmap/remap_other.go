//go:build unix && !linux

package mmap

import "github.com/pkg/errors"

const remapSupported = false

var errRemapUnsupported = errors.New("mremap is not available on this platform")

func remap(data []byte, newLength int, mayMove bool) ([]byte, error) {
	return nil, errRemapUnsupported
}
