package alloc

import (
	"unsafe"

	"github.com/vkngwrapper/arsenal/allocapi/memutils"
)

const danglingRegionAlign uint = 4096

// danglingRegion is never read or written. It provides addresses for zero-sized blocks that live in
// memory the runtime knows about, so pointer checks do not trip over them.
var danglingRegion [danglingRegionAlign]byte

func dangling(align uint) unsafe.Pointer {
	if align <= danglingRegionAlign {
		return memutils.AlignPointer(unsafe.Pointer(&danglingRegion[0]), align)
	}

	// Above a page the address is the alignment itself. It is outside every Go allocation and is
	// never dereferenced.
	return unsafe.Add(unsafe.Pointer(nil), align)
}
