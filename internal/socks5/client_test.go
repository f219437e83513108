package socks5

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"golang.org/x/sync/errgroup"
)

func TestClientDialToServer(t *testing.T) {
	tests := []struct {
		name    string
		auth    Auth
		reply   Reply
		wantErr error
	}{
		{name: "no_auth", reply: ReplySucceeded},
		{name: "user_pass", auth: Auth{Username: "user", Password: "pass"}, reply: ReplySucceeded},
		{name: "bad_pass", auth: Auth{Username: "user", Password: "wrong"}, wantErr: ErrAuthFailed},
		{name: "refused", reply: ReplyConnectionRefused, wantErr: &ReplyError{Reply: ReplyConnectionRefused}},
	}

	creds := Credentials{{Username: "user", Password: "pass"}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clientConn, serverConn := net.Pipe()
			defer clientConn.Close()
			defer serverConn.Close()

			authRequired := tt.auth.Username != ""

			g := errgroup.Group{}
			g.Go(func() error {
				defer serverConn.Close()

				method, err := Negotiate(serverConn, authRequired)
				if err != nil {
					return err
				}
				if method == MethodUsernamePassword {
					if _, err := Authenticate(serverConn, creds); err != nil {
						return err
					}
				}

				req, err := ReadRequest(serverConn)
				if err != nil {
					return err
				}
				if req.Command != CommandConnect {
					return fmt.Errorf("unexpected command: %s", req.Command)
				}
				if req.Address.String() != "127.0.0.1:80" {
					return fmt.Errorf("unexpected address: %s", req.Address)
				}
				return WriteReply(serverConn, tt.reply)
			})

			err := ClientDial(clientConn, tt.auth, "127.0.0.1:80")
			var repErr *ReplyError
			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatal(err)
				}
			case *ReplyError:
				if !errors.As(err, &repErr) || repErr.Reply != want.Reply {
					t.Fatalf("err=%v want %v", err, want)
				}
			default:
				if !errors.Is(err, want) {
					t.Fatalf("err=%v want %v", err, want)
				}
			}

			serverErr := g.Wait()
			if tt.wantErr == ErrAuthFailed {
				if !errors.Is(serverErr, ErrAuthFailed) {
					t.Fatalf("server err=%v want %v", serverErr, ErrAuthFailed)
				}
				return
			}
			if serverErr != nil {
				t.Fatal(serverErr)
			}
		})
	}
}
