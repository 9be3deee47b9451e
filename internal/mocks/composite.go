package mocks

import (
	"go.uber.org/mock/gomock"
)

// ResizingAllocator is an allocator mock that also implements alloc.InPlaceResizer
type ResizingAllocator struct {
	*MockAllocator
	*MockInPlaceResizer
}

func NewResizingAllocator(ctrl *gomock.Controller) ResizingAllocator {
	return ResizingAllocator{
		MockAllocator:      NewMockAllocator(ctrl),
		MockInPlaceResizer: NewMockInPlaceResizer(ctrl),
	}
}

// NativeAllocator is an allocator mock that also implements alloc.ZeroAllocator and alloc.Reallocator
type NativeAllocator struct {
	*MockAllocator
	*MockZeroAllocator
	*MockReallocator
}

func NewNativeAllocator(ctrl *gomock.Controller) NativeAllocator {
	return NativeAllocator{
		MockAllocator:     NewMockAllocator(ctrl),
		MockZeroAllocator: NewMockZeroAllocator(ctrl),
		MockReallocator:   NewMockReallocator(ctrl),
	}
}
