package checkout

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUserOrOrderNotFound aborts a wallet-path checkout before any line is
// attempted: without a resolvable order and paying customer nothing can run.
var ErrUserOrOrderNotFound = errors.New("user or order not found")

// ErrTxTimeout marks a checkout whose unit of work exceeded its time budget.
// Every effect rolled back; the caller should retry with a smaller cart.
var ErrTxTimeout = errors.New("checkout transaction timed out")

// AllFailedError reports a checkout where every line failed. The batch was
// discarded and no sale, stock or wallet effect persists.
type AllFailedError struct {
	Errors []string
}

func (e *AllFailedError) Error() string {
	return fmt.Sprintf("no lines sold: %s", strings.Join(e.Errors, "; "))
}
