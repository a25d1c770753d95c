package ioreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterest(t *testing.T) {
	tests := []struct {
		interest Interest
		readable bool
		writable bool
		str      string
	}{
		{0, false, false, "none"},
		{Readable, true, false, "readable"},
		{Writable, false, true, "writable"},
		{Readable | Writable, true, true, "readable|writable"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.readable, tt.interest.Is(Readable))
			assert.Equal(t, tt.writable, tt.interest.Is(Writable))
			assert.Equal(t, tt.str, tt.interest.String())
			assert.False(t, tt.interest.Is(0))
		})
	}
}

func TestSource_FD(t *testing.T) {
	assert.Equal(t, 5, NewSource(5).FD())
}
