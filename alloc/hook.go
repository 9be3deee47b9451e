package alloc

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/atomic"
	"golang.org/x/exp/slog"
)

// AllocErrorHook is called by HandleAllocError when an infallible operation cannot obtain memory.
// A hook must not return normally: it should terminate the process or panic.
type AllocErrorHook func(layout Layout)

const allocErrorExitCode = 134

var (
	allocErrorHook atomic.Pointer[AllocErrorHook]

	hookLogger  = slog.New(slog.NewTextHandler(os.Stderr, nil))
	exitProcess = os.Exit
)

func defaultAllocErrorHook(layout Layout) {
	hookLogger.Error(fmt.Sprintf("memory allocation of %d bytes failed", layout.Size()),
		slog.Int("size", layout.Size()),
		slog.Uint64("align", uint64(layout.Align())),
	)
	exitProcess(allocErrorExitCode)
}

// SetAllocErrorHook registers the process-wide hook called by HandleAllocError, replacing any hook
// registered before. Passing nil restores the default hook, which logs the failed layout to stderr
// and exits the process.
func SetAllocErrorHook(hook AllocErrorHook) {
	if hook == nil {
		allocErrorHook.Store(nil)
		return
	}

	allocErrorHook.Store(&hook)
}

// TakeAllocErrorHook unregisters the current hook and returns it, or returns the default hook if
// none was registered
func TakeAllocErrorHook() AllocErrorHook {
	hook := allocErrorHook.Swap(nil)
	if hook == nil {
		return defaultAllocErrorHook
	}

	return *hook
}

func currentAllocErrorHook() AllocErrorHook {
	hook := allocErrorHook.Load()
	if hook == nil {
		return defaultAllocErrorHook
	}

	return *hook
}

// HandleAllocError reports that an infallible operation could not allocate layout. It calls the
// registered hook and does not return. If the hook returns anyway, HandleAllocError panics.
func HandleAllocError(layout Layout) {
	currentAllocErrorHook()(layout)
	panic(errors.AssertionFailedf("allocation error hook returned after failing to allocate %s", layout))
}

// CapacityOverflow reports that an infallible operation was asked for a capacity that cannot be
// represented. It panics with an error wrapping ErrCapacityOverflow.
func CapacityOverflow(format string, args ...interface{}) {
	panic(errors.Wrapf(ErrCapacityOverflow, format, args...))
}
