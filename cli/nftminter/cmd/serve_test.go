package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testalgod "github.com/trantorian/nftminter/internal/testutils/algod"
	testhttp "github.com/trantorian/nftminter/internal/testutils/http"
	"github.com/trantorian/nftminter/internal/testutils/net"
	"github.com/trantorian/nftminter/pkg/api"
	"github.com/trantorian/nftminter/pkg/mint"
)

func TestServeCmd(t *testing.T) {
	homeDir := t.TempDir()
	creator := createTestWallet(t, homeDir)
	node := testalgod.New(t, 100)
	addr := net.FreeAddr(t)

	consoleWriter = &testConsoleWriter{}
	app := New(testLoggerFactory(t))
	args := fmt.Sprintf("serve --home %s --algod-url %s --addr %s --metrics prometheus", homeDir, node.URL(), addr)
	app.baseCmd.SetArgs(strings.Split(args, " "))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Execute(ctx) }()

	baseURL := "http://" + addr
	require.Eventually(t, func() bool {
		res, err := http.Get(baseURL + "/api/v1/session")
		if err != nil {
			return false
		}
		_ = res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)

	var conn api.ConnectResponse
	res := testhttp.DoPost(t, baseURL+"/api/v1/connect", nil, &conn)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, creator, conn.Address)

	var report mint.MintReport
	res = testhttp.DoPost(t, baseURL+"/api/v1/mint", &mint.MintRequest{Amount: "2"}, &report)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.ElementsMatch(t, []uint64{100, 101}, report.AssetIDs)

	var session mint.Session
	testhttp.DoGet(t, baseURL+"/api/v1/session", &session)
	require.Equal(t, creator, session.Address)
	require.ElementsMatch(t, []uint64{100, 101}, session.MintedAssetIDs)

	res, err := http.Get(baseURL + "/metrics")
	require.NoError(t, err)
	b, err := io.ReadAll(res.Body)
	require.NoError(t, res.Body.Close())
	require.NoError(t, err)
	require.Contains(t, string(b), "nftminter_mint_assets_total")

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(6 * time.Second):
		t.Fatal("serve command didn't stop")
	}
}

func TestServeCmd_Flags(t *testing.T) {
	cmd := newServeCmd(&baseConfiguration{})
	require.NoError(t, cmd.ParseFlags([]string{"--" + writeTimeoutCmdName, "90s", "--" + allowedOriginCmdName, "http://a.test,http://b.test"}))

	timeout, err := cmd.Flags().GetDuration(writeTimeoutCmdName)
	require.NoError(t, err)
	require.Equal(t, 90*time.Second, timeout)

	origins, err := cmd.Flags().GetStringSlice(allowedOriginCmdName)
	require.NoError(t, err)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	addr, err := cmd.Flags().GetString(serverAddrCmdName)
	require.NoError(t, err)
	require.Equal(t, "localhost:8080", addr)
}
