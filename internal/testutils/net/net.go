package net

import (
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	mu        sync.Mutex
	usedPorts = map[int]struct{}{}
)

/*
FreeAddr returns "localhost:port" address where the port is currently not in
use and hasn't been handed out to other test of the same process before.
*/
func FreeAddr(t testing.TB) string {
	t.Helper()
	mu.Lock()
	defer mu.Unlock()

	for {
		l, err := net.Listen("tcp", "localhost:0")
		require.NoError(t, err)
		port := l.Addr().(*net.TCPAddr).Port
		require.NoError(t, l.Close())

		if _, ok := usedPorts[port]; !ok {
			usedPorts[port] = struct{}{}
			return fmt.Sprintf("localhost:%d", port)
		}
	}
}
