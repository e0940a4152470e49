package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trantorian/nftminter/pkg/wallet"
)

const (
	accountNameCmdName = "name"
	mnemonicCmdName    = "mnemonic"
)

// newWalletCmd creates a new cobra command for managing the local keystore.
func newWalletCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &walletConfig{Base: baseConfig}
	var walletCmd = &cobra.Command{
		Use:   "wallet",
		Short: "manage the accounts of the local keystore",
	}
	config.addWalletFlags(walletCmd)
	walletCmd.AddCommand(walletCreateCmd(config))
	walletCmd.AddCommand(walletImportCmd(config))
	walletCmd.AddCommand(walletListCmd(config))
	return walletCmd
}

func walletCreateCmd(config *walletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "creates new account, keystore is created when it doesn't exist yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execWalletCreateCmd(cmd, config)
		},
	}
	cmd.Flags().String(accountNameCmdName, "", "name of the account (default is account-N)")
	return cmd
}

func execWalletCreateCmd(cmd *cobra.Command, config *walletConfig) error {
	name, err := cmd.Flags().GetString(accountNameCmdName)
	if err != nil {
		return err
	}
	ks, err := openOrCreateKeystore(cmd, config.keystoreDir())
	if err != nil {
		return err
	}
	defer ks.Close()

	acc, phrase, err := ks.CreateAccount(name)
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}
	consoleWriter.Println(fmt.Sprintf("Account %q created: %s", acc.Name, acc.Address))
	consoleWriter.Println("Mnemonic (keep it secret, it's the only way to restore the account):")
	consoleWriter.Println(phrase)
	return nil
}

func walletImportCmd(config *walletConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "imports account from 25 word mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execWalletImportCmd(cmd, config)
		},
	}
	cmd.Flags().String(accountNameCmdName, "", "name of the account (default is account-N)")
	cmd.Flags().String(mnemonicCmdName, "", "mnemonic of the account")
	_ = cmd.MarkFlagRequired(mnemonicCmdName)
	return cmd
}

func execWalletImportCmd(cmd *cobra.Command, config *walletConfig) error {
	name, err := cmd.Flags().GetString(accountNameCmdName)
	if err != nil {
		return err
	}
	phrase, err := cmd.Flags().GetString(mnemonicCmdName)
	if err != nil {
		return err
	}
	ks, err := openOrCreateKeystore(cmd, config.keystoreDir())
	if err != nil {
		return err
	}
	defer ks.Close()

	acc, err := ks.ImportAccount(name, phrase)
	if err != nil {
		return fmt.Errorf("importing account: %w", err)
	}
	consoleWriter.Println(fmt.Sprintf("Account %q imported: %s", acc.Name, acc.Address))
	return nil
}

func walletListCmd(config *walletConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "lists accounts of the keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := openKeystore(cmd, config.keystoreDir())
			if err != nil {
				return err
			}
			defer ks.Close()

			accounts, err := ks.Accounts()
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				consoleWriter.Println("No accounts")
				return nil
			}
			for i, acc := range accounts {
				consoleWriter.Println(fmt.Sprintf("#%d %s %s", i+1, acc.Name, acc.Address))
			}
			return nil
		},
	}
}

func openOrCreateKeystore(cmd *cobra.Command, dir string) (*wallet.Keystore, error) {
	_, err := os.Stat(filepath.Join(dir, wallet.KeystoreFileName))
	if err == nil {
		return openKeystore(cmd, dir)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking keystore file: %w", err)
	}
	pw, err := createPassphrase(cmd)
	if err != nil {
		return nil, err
	}
	ks, err := wallet.CreateKeystore(dir, pw)
	if err != nil {
		return nil, fmt.Errorf("creating keystore: %w", err)
	}
	consoleWriter.Println("Keystore created: " + dir)
	return ks, nil
}
