package socks5

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/pkg/errors"
)

func TestWriteReply(t *testing.T) {
	t.Parallel()

	for rep := ReplySucceeded; rep <= ReplyAddressTypeNotSupported; rep++ {
		var buf bytes.Buffer
		if err := WriteReply(&buf, rep); err != nil {
			t.Fatal(err)
		}
		want := []byte{0x05, byte(rep), 0x00, 0x01, 0, 0, 0, 0, 0, 0}
		if !bytes.Equal(buf.Bytes(), want) {
			t.Fatalf("%s: got %x want %x", rep, buf.Bytes(), want)
		}
	}
}

func TestReplyFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		want   Reply
		wantOK bool
	}{
		{err: nil, want: ReplySucceeded, wantOK: true},
		{err: &UnsupportedCommandError{Command: 2}, want: ReplyCommandNotSupported, wantOK: true},
		{err: errors.Wrap(&UnsupportedAddressTypeError{Type: 9}, "request"), want: ReplyAddressTypeNotSupported, wantOK: true},
		{err: fmt.Errorf("dial: %w", ErrConnectionRefused), want: ReplyConnectionRefused, wantOK: true},
		{err: ErrConnectTimeout, want: ReplyTTLExpired, wantOK: true},
		{err: ErrHostUnreachable, want: ReplyHostUnreachable, wantOK: true},
		{err: ErrNetworkUnreachable, want: ReplyHostUnreachable, wantOK: true},
		{err: &InvalidVersionError{Version: 4}, want: ReplyGeneralFailure, wantOK: true},
		{err: ErrInvalidAddress, want: ReplyGeneralFailure, wantOK: true},
		{err: errors.Wrap(io.ErrUnexpectedEOF, "read port"), wantOK: false},
		{err: ErrAuthFailed, wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ReplyFor(tt.err)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Errorf("ReplyFor(%v)=(%s, %v) want (%s, %v)", tt.err, got, ok, tt.want, tt.wantOK)
		}
	}
}
