package domain

import (
	"fmt"
	"slices"
)

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {},
	OrderStatusCancelled: {},
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool { return len(orderTransitions[s]) == 0 }

// Next validates the move from s to target. PAID and CANCELLED are absorbing;
// the error names the current state so callers can tell which conflict it is.
func (s OrderStatus) Next(target OrderStatus) (OrderStatus, error) {
	next, ok := orderTransitions[s]
	if !ok {
		return s, fmt.Errorf("%w: unknown order status %q", ErrInvalidOrderState, s)
	}
	if slices.Contains(next, target) {
		return target, nil
	}
	switch s {
	case OrderStatusPaid:
		return s, fmt.Errorf("%w: %s -> %s", ErrAlreadyPaid, s, target)
	case OrderStatusCancelled:
		return s, fmt.Errorf("%w: %s -> %s", ErrAlreadyCancelled, s, target)
	default:
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidOrderState, s, target)
	}
}

// Cancel moves a CREATED order to CANCELLED.
func (o *Order) Cancel() error {
	next, err := o.Status.Next(OrderStatusCancelled)
	if err != nil {
		return err
	}
	o.Status = next
	return nil
}

// MarkPaid moves a CREATED order to PAID.
func (o *Order) MarkPaid() error {
	next, err := o.Status.Next(OrderStatusPaid)
	if err != nil {
		return err
	}
	o.Status = next
	return nil
}

// PaymentStatus is the payment lifecycle state. REFUNDED is only ever set
// outside this service.
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusCaptured  PaymentStatus = "CAPTURED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusInitiated: {PaymentStatusCaptured, PaymentStatusFailed},
	PaymentStatusCaptured:  {PaymentStatusRefunded},
	PaymentStatusFailed:    {},
	PaymentStatusRefunded:  {},
}

func (s PaymentStatus) Next(target PaymentStatus) (PaymentStatus, error) {
	next, ok := paymentTransitions[s]
	if !ok || !slices.Contains(next, target) {
		return s, fmt.Errorf("payment: invalid status transition %s -> %s", s, target)
	}
	return target, nil
}

func (p *Payment) transition(target PaymentStatus) error {
	next, err := p.Status.Next(target)
	if err != nil {
		return err
	}
	p.Status = next
	return nil
}

// Capture settles an INITIATED payment.
func (p *Payment) Capture() error { return p.transition(PaymentStatusCaptured) }

// Fail terminates an INITIATED payment.
func (p *Payment) Fail() error { return p.transition(PaymentStatusFailed) }
