//go:build !linux

package ioreg

import "time"

// Poller is unavailable on this platform; every operation returns ErrUnsupported.
type Poller struct{}

func NewPoller() (*Poller, error) {
	return nil, ErrUnsupported
}

func (p *Poller) Wait([]Event, time.Duration) (int, error) {
	return 0, ErrUnsupported
}

func (p *Poller) Close() error {
	return ErrUnsupported
}

func (p *Poller) add(int, Token, Interest) error {
	return ErrUnsupported
}

func (p *Poller) modify(int, Token, Interest) error {
	return ErrUnsupported
}

func (p *Poller) remove(int) error {
	return ErrUnsupported
}
