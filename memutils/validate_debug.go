//go:build debug_mem_utils

package memutils

import "unsafe"

const (
	// DebugMargin is the number of guard bytes that allocators in this module place after each
	// block they hand out. It is zero unless the debug_mem_utils build tag is present.
	DebugMargin int = 16
	// corruptionDetectionMagicValue is a 4-byte pattern that is repeated across the guard bytes
	corruptionDetectionMagicValue uint32 = 0x7F84E666
)

// WriteMagicValue writes an easy-to-identify guard across DebugMargin bytes at the provided pointer and offset.
// This method no-ops unless the debug_mem_utils build tag is present.
func WriteMagicValue(data unsafe.Pointer, offset int) {
	dest := unsafe.Add(data, offset)
	for i := 0; i < DebugMargin; i += 4 {
		// Guards follow arbitrary block sizes, so they are not necessarily 4-byte aligned
		b := (*[4]byte)(unsafe.Add(dest, i))
		b[0] = byte((corruptionDetectionMagicValue) & 0xFF)
		b[1] = byte((corruptionDetectionMagicValue >> 8) & 0xFF)
		b[2] = byte((corruptionDetectionMagicValue >> 16) & 0xFF)
		b[3] = byte((corruptionDetectionMagicValue >> 24) & 0xFF)
	}
}

// ValidateMagicValue verifies that the guard written by WriteMagicValue is still present.
// It returns true if the value is still present and false otherwise.
// This method no-ops unless the debug_mem_utils build tag is present.
func ValidateMagicValue(data unsafe.Pointer, offset int) bool {
	source := unsafe.Add(data, offset)
	for i := 0; i < DebugMargin; i += 4 {
		b := (*[4]byte)(unsafe.Add(source, i))
		value := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		if value != corruptionDetectionMagicValue {
			return false
		}
	}

	return true
}

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_mem_utils build tag is present
func DebugValidate(validatable Validatable) {
	err := validatable.Validate()
	if err != nil {
		panic(err)
	}
}

// DebugCheckPow2 will verify that the numerical value passed in is a power of two, and panics if it is not.
// This method no-ops unless the debug_mem_utils build tag is present.
func DebugCheckPow2[T Number](value T, name string) {
	err := CheckPow2[T](value, name)
	if err != nil {
		panic(err)
	}
}
