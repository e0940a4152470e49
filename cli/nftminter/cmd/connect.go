package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trantorian/nftminter/pkg/mint"
)

/*
newConnectCmd creates command which connects the wallet and prints the
address of the shared account. Useful for checking which account the mint
command would use.
*/
func newConnectCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &minterConfig{walletConfig: walletConfig{Base: baseConfig}}
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "connects the wallet and prints the address of the selected account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execConnectCmd(cmd, config)
		},
	}
	config.addMinterFlags(cmd)
	return cmd
}

func execConnectCmd(cmd *cobra.Command, config *minterConfig) error {
	m, err := config.newMinter(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	var session mint.Session
	if err := m.Connect(cmd.Context(), &session); err != nil {
		return err
	}
	consoleWriter.Println(fmt.Sprintf("Connected: %s", session.Address))
	return nil
}
