package cmd

import (
	"github.com/spf13/cobra"

	"github.com/trantorian/nftminter/pkg/api"
)

const (
	serverAddrCmdName    = "addr"
	allowedOriginCmdName = "allowed-origin"
	writeTimeoutCmdName  = "write-timeout"
)

/*
newServeCmd creates command which runs the REST API so that the connect
and mint workflow can be driven from a web page.
*/
func newServeCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &minterConfig{walletConfig: walletConfig{Base: baseConfig}}
	var serverCfg api.ServerConfig
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "starts the minter REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := config.newMinter(cmd)
			if err != nil {
				return err
			}
			defer m.Close()

			serverCfg.MetricsHandler = baseConfig.observe.MetricsHandler()
			return api.Run(cmd.Context(), serverCfg, m.Orchestrator, baseConfig.log)
		},
	}
	config.addMinterFlags(cmd)
	cmd.Flags().StringVar(&serverCfg.Addr, serverAddrCmdName, "localhost:8080", "address the REST API listens on")
	cmd.Flags().StringSliceVar(&serverCfg.AllowedOrigins, allowedOriginCmdName, nil, "allowed CORS origin, any origin is allowed when not set")
	cmd.Flags().DurationVar(&serverCfg.WriteTimeout, writeTimeoutCmdName, 0, "HTTP write timeout, must cover waiting for the confirmations (default 1m)")
	return cmd
}
