package mailer

import (
	"net"
	"strconv"
	"testing"
)

// closedPort returns a local address nothing listens on.
func closedPort(t *testing.T) (string, int) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	host, p, _ := net.SplitHostPort(l.Addr().String())
	l.Close()
	port, err := strconv.Atoi(p)
	if err != nil {
		t.Fatal(err)
	}
	return host, port
}
