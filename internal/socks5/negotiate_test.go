package socks5

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// fakeConn reads from a fixed input and records everything written.
type fakeConn struct {
	io.Reader
	out bytes.Buffer
}

func newFakeConn(in []byte) *fakeConn {
	return &fakeConn{Reader: bytes.NewReader(in)}
}

func (c *fakeConn) Write(p []byte) (int, error) {
	return c.out.Write(p)
}

func TestNegotiate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		in           []byte
		authRequired bool
		wantMethod   AuthMethod
		wantOut      []byte
		wantErr      error
	}{
		{
			name:       "no auth offered and accepted",
			in:         []byte{0x05, 0x01, 0x00},
			wantMethod: MethodNoAuth,
			wantOut:    []byte{0x05, 0x00},
		},
		{
			name:       "only userpass offered without auth",
			in:         []byte{0x05, 0x01, 0x02},
			wantMethod: MethodNoAcceptable,
			wantOut:    []byte{0x05, 0xFF},
			wantErr:    ErrNoAcceptableAuth,
		},
		{
			name:         "userpass selected when auth required",
			in:           []byte{0x05, 0x02, 0x00, 0x02},
			authRequired: true,
			wantMethod:   MethodUsernamePassword,
			wantOut:      []byte{0x05, 0x02},
		},
		{
			name:         "only no auth offered when auth required",
			in:           []byte{0x05, 0x01, 0x00},
			authRequired: true,
			wantMethod:   MethodNoAcceptable,
			wantOut:      []byte{0x05, 0xFF},
			wantErr:      ErrNoAcceptableAuth,
		},
		{
			name:       "unknown methods ignored",
			in:         []byte{0x05, 0x03, 0x01, 0x80, 0x00},
			wantMethod: MethodNoAuth,
			wantOut:    []byte{0x05, 0x00},
		},
		{
			name:    "zero methods",
			in:      []byte{0x05, 0x00},
			wantErr: ErrProtocol,
		},
		{
			name:    "truncated method list",
			in:      []byte{0x05, 0x03, 0x00},
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "empty input",
			in:      nil,
			wantErr: io.EOF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newFakeConn(tt.in)
			method, err := Negotiate(c, tt.authRequired)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v want %v", err, tt.wantErr)
			}
			if tt.wantOut != nil && method != tt.wantMethod {
				t.Fatalf("method=%s want %s", method, tt.wantMethod)
			}
			if !bytes.Equal(c.out.Bytes(), tt.wantOut) {
				t.Fatalf("wrote %x want %x", c.out.Bytes(), tt.wantOut)
			}
		})
	}
}

func TestNegotiateInvalidVersion(t *testing.T) {
	t.Parallel()

	c := newFakeConn([]byte{0x04, 0x01, 0x00})
	_, err := Negotiate(c, false)

	var verErr *InvalidVersionError
	if !errors.As(err, &verErr) {
		t.Fatalf("expected InvalidVersionError, got %v", err)
	}
	if verErr.Version != 0x04 {
		t.Fatalf("version=%d want 4", verErr.Version)
	}
	if c.out.Len() != 0 {
		t.Fatalf("expected no reply, wrote %x", c.out.Bytes())
	}
}

func TestNegotiateReadsOnlyHandshake(t *testing.T) {
	t.Parallel()

	// Trailing bytes belong to the next stage and must be left unread.
	c := newFakeConn([]byte{0x05, 0x01, 0x00, 0xAA, 0xBB})
	if _, err := Negotiate(c, false); err != nil {
		t.Fatal(err)
	}
	rest, err := io.ReadAll(c)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rest, []byte{0xAA, 0xBB}) {
		t.Fatalf("remaining %x", rest)
	}
}
