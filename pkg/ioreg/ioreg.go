// Package ioreg wraps raw file descriptors so an event loop can register, re-register
// and deregister readiness interest on them. It carries no scheduling logic: every call
// delegates to the OS poller and returns its error unchanged, with no retry and no
// buffering.
package ioreg

import (
	"errors"
	"strings"
)

// ErrUnsupported is returned on platforms without an epoll poller
var ErrUnsupported = errors.New("ioreg: readiness polling not supported on this platform")

// Interest is the set of readiness kinds a source is registered for
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable
)

// Is reports whether every kind in other is part of i
func (i Interest) Is(other Interest) bool {
	return i&other == other && other != 0
}

func (i Interest) String() string {
	var parts []string
	if i.Is(Readable) {
		parts = append(parts, "readable")
	}
	if i.Is(Writable) {
		parts = append(parts, "writable")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Token correlates readiness events with the source that was registered under it
type Token uint64

// Event is one readiness notification returned by Poller.Wait
type Event struct {
	Token    Token
	Readable bool
	Writable bool
	Error    bool
	Hangup   bool
}

// Source is a pollable raw descriptor. The descriptor is borrowed: Source never closes it.
type Source struct {
	fd int
}

// NewSource wraps fd
func NewSource(fd int) *Source {
	return &Source{fd: fd}
}

// FD returns the wrapped descriptor
func (s *Source) FD() int {
	return s.fd
}

// Register adds the source to p under token
func (s *Source) Register(p *Poller, token Token, interest Interest) error {
	return p.add(s.fd, token, interest)
}

// Reregister replaces the token and interest of an already registered source
func (s *Source) Reregister(p *Poller, token Token, interest Interest) error {
	return p.modify(s.fd, token, interest)
}

// Deregister removes the source from p
func (s *Source) Deregister(p *Poller) error {
	return p.remove(s.fd)
}
