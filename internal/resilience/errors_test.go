package resilience

import (
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"tagged transient", NewTransientError(eris.New("status 503"), 503), true},
		{"tagged permanent", NewPermanentError(eris.New("status 401"), 401), false},
		{"wrapped transient", eris.Wrap(NewTransientError(eris.New("x"), 500), "outer"), true},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"reset by peer string", eris.New("read tcp: connection reset by peer"), true},
		{"dns failure string", eris.New("dial tcp: lookup x: no such host"), true},
		{"io timeout string", eris.New("context deadline: i/o timeout"), true},
		{"plain error", eris.New("something broke"), false},
		// A permanent tag wins even over a transient-looking message.
		{"permanent beats pattern", NewPermanentError(eris.New("i/o timeout"), 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsPermanent(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPermanent(NewPermanentError(eris.New("bad key"), 403)))
	assert.True(t, IsPermanent(eris.Wrap(NewPermanentError(eris.New("x"), 400), "outer")))
	assert.False(t, IsPermanent(NewTransientError(eris.New("x"), 503)))
	assert.False(t, IsPermanent(eris.New("plain")))
}

func TestIsTransientHTTPStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 410, 501} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := eris.New("inner")
	te := NewTransientError(inner, 503)
	assert.Equal(t, "inner", te.Error())
	assert.Equal(t, inner, te.Unwrap())

	pe := NewPermanentError(inner, 400)
	assert.Equal(t, "inner", pe.Error())
	assert.Equal(t, inner, pe.Unwrap())
}
