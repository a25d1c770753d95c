//go:build linux

package ioreg

import (
	"time"

	"golang.org/x/sys/unix"
)

// Poller is an edge-triggered epoll instance
type Poller struct {
	epfd int
	raw  []unix.EpollEvent
}

// NewPoller creates an epoll instance with close-on-exec set
func NewPoller() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Poller{epfd: epfd}, nil
}

// Wait blocks until at least one registered source is ready or timeout elapses, then
// fills events and returns how many were written. A negative timeout blocks
// indefinitely. EINTR is returned to the caller like any other error.
func (p *Poller) Wait(events []Event, timeout time.Duration) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	if cap(p.raw) < len(events) {
		p.raw = make([]unix.EpollEvent, len(events))
	}
	raw := p.raw[:len(events)]

	n, err := unix.EpollWait(p.epfd, raw, timeoutMillis(timeout))
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		ev := raw[i]
		events[i] = Event{
			Token:    unpackToken(&ev),
			Readable: ev.Events&(unix.EPOLLIN|unix.EPOLLPRI) != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Error:    ev.Events&unix.EPOLLERR != 0,
			Hangup:   ev.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
		}
	}
	return n, nil
}

// Close releases the epoll descriptor
func (p *Poller) Close() error {
	return unix.Close(p.epfd)
}

func (p *Poller) add(fd int, token Token, interest Interest) error {
	ev := epollEvent(token, interest)
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *Poller) modify(fd int, token Token, interest Interest) error {
	ev := epollEvent(token, interest)
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (p *Poller) remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func epollEvent(token Token, interest Interest) unix.EpollEvent {
	ev := unix.EpollEvent{Events: unix.EPOLLET}
	if interest.Is(Readable) {
		ev.Events |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if interest.Is(Writable) {
		ev.Events |= unix.EPOLLOUT
	}
	// the 64-bit epoll data word is exposed as two int32 halves
	ev.Fd = int32(uint32(token))
	ev.Pad = int32(uint32(token >> 32))
	return ev
}

func unpackToken(ev *unix.EpollEvent) Token {
	return Token(uint64(uint32(ev.Fd)) | uint64(uint32(ev.Pad))<<32)
}

func timeoutMillis(d time.Duration) int {
	if d < 0 {
		return -1
	}
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		ms = 1
	}
	return int(ms)
}
