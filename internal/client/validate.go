package client

import (
	"errors"
	"fmt"

	"github.com/nexus-edge/modbuscli/internal/domain"
)

// validateReadRange checks quantity limits and the address-space bound
// before any frame is built. Address + count - 1 must stay within the
// 16-bit address space.
func validateReadRange(class domain.RegisterClass, address, quantity uint16) error {
	if quantity == 0 {
		return fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidArgument)
	}
	if max := class.MaxReadQuantity(); quantity > max {
		return fmt.Errorf("%w: quantity %d exceeds maximum %d for %s reads", domain.ErrInvalidArgument, quantity, max, class)
	}
	return validateAddressSpan(address, quantity)
}

// validateWriteRange checks writability and quantity limits for
// multiple-value writes.
func validateWriteRange(class domain.RegisterClass, address uint16, count int) error {
	if !class.Writable() {
		return fmt.Errorf("%w: %s registers are read-only", domain.ErrInvalidArgument, class)
	}
	if count == 0 {
		return fmt.Errorf("%w: no values to write", domain.ErrInvalidArgument)
	}
	if max := int(class.MaxWriteQuantity()); count > max {
		return fmt.Errorf("%w: %d values exceed maximum %d for %s writes", domain.ErrInvalidArgument, count, max, class)
	}
	return validateAddressSpan(address, uint16(count))
}

func validateAddressSpan(address, quantity uint16) error {
	if int(address)+int(quantity)-1 > 0xFFFF {
		return fmt.Errorf("%w: address %d + count %d exceeds the 16-bit address space", domain.ErrInvalidArgument, address, quantity)
	}
	return nil
}

func errorsIsTimeout(err error) bool {
	return errors.Is(err, domain.ErrTimeout)
}
