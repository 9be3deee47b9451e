//go:build linux

package mmap

import "golang.org/x/sys/unix"

const remapSupported = true

func remap(data []byte, newLength int, mayMove bool) ([]byte, error) {
	flags := 0
	if mayMove {
		flags = unix.MREMAP_MAYMOVE
	}

	return unix.Mremap(data, newLength, flags)
}
