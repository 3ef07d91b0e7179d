package stock

import (
	"errors"
	"fmt"
)

// Mode selects which quantity vectors a sale consumes.
type Mode string

const (
	// ModeOffline decrements only the available-stock vector.
	ModeOffline Mode = "OFFLINE"
	// ModeOnline decrements both the available and the reserved vector; the
	// reservation was carved out when the customer's cart was built and is
	// the proof that capacity was actually set aside.
	ModeOnline Mode = "ONLINE"
)

// ErrInsufficientStock marks an ordinary out-of-stock failure on the offline path.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrReservationMismatch marks an online sale whose pre-made reservation does
// not cover the requested quantity. Unlike a stock-out this signals a data
// integrity problem upstream.
var ErrReservationMismatch = errors.New("reservation mismatch")

// InsufficientStockError reports an offline line that exceeds available stock.
type InsufficientStockError struct {
	Code      string
	Size      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s size %s: %d available, %d requested", e.Code, e.Size, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ReservationMismatchError reports an online line whose stock and reservation
// vectors disagree with the requested quantity.
type ReservationMismatchError struct {
	Code      string
	Size      string
	Available int
	Reserved  int
	Requested int
}

func (e *ReservationMismatchError) Error() string {
	return fmt.Sprintf("product %s size %s: %d available, %d reserved, %d requested", e.Code, e.Size, e.Available, e.Reserved, e.Requested)
}

func (e *ReservationMismatchError) Unwrap() error { return ErrReservationMismatch }

// Request describes one stock mutation.
type Request struct {
	Code     string
	Size     string
	Quantity int
	Mode     Mode
}

// ReserveAndConsume checks and decrements the product's quantity vectors for
// one sale line. Offline sales require sufficient available stock; online
// sales additionally require the pre-made reservation to cover the quantity
// and decrement both vectors. On failure neither vector is touched.
//
// Persistence of the mutated vectors is the caller's responsibility and must
// happen inside the caller's unit of work.
func ReserveAndConsume(sizes, reserved *Vector, req Request) error {
	if req.Quantity <= 0 {
		return fmt.Errorf("product %s size %s: quantity must be positive", req.Code, req.Size)
	}
	available := sizes.Quantity(req.Size)
	switch req.Mode {
	case ModeOnline:
		held := reserved.Quantity(req.Size)
		if available < req.Quantity || held < req.Quantity {
			return &ReservationMismatchError{
				Code:      req.Code,
				Size:      req.Size,
				Available: available,
				Reserved:  held,
				Requested: req.Quantity,
			}
		}
		*sizes = sizes.Take(req.Size, req.Quantity)
		*reserved = reserved.Take(req.Size, req.Quantity)
		return nil
	default:
		if available < req.Quantity {
			return &InsufficientStockError{
				Code:      req.Code,
				Size:      req.Size,
				Available: available,
				Requested: req.Quantity,
			}
		}
		*sizes = sizes.Take(req.Size, req.Quantity)
		return nil
	}
}
