// Package mmap provides an allocator that maps anonymous pages directly from the operating system.
// It is only available on unix platforms. On Linux, blocks can be resized with mremap, either in
// place or by letting the kernel move the pages.
package mmap
