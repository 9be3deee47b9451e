package tracking

import (
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/arsenal/allocapi/alloc"
	"github.com/vkngwrapper/arsenal/allocapi/internal/utils"
	"golang.org/x/exp/slog"
)

// CreateOptions contains optional settings when creating a tracking Allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags alloc.CreateFlags

	// Limit is the maximum number of requested bytes that may be live at once. Zero means no limit.
	//
	// The limit is enforced before the wrapped allocator is called: an allocation or resize that
	// would cross it fails with alloc.ErrExhausted.
	Limit int
}

// New wraps inner in a tracking Allocator
//
// logger - Where to send call traces and misuse reports, may be nil
//
// inner - The allocator that will actually provide memory
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, inner alloc.Allocator, options CreateOptions) *Allocator {
	allocator := &Allocator{
		logger: utils.LoggerOrDiscard(logger),
		inner:  inner,
		limit:  int64(options.Limit),
		blocks: swiss.NewMap[uintptr, blockInfo](64),
	}
	allocator.mutex.UseMutex = options.Flags&alloc.CreateExternallySynchronized == 0

	return allocator
}
