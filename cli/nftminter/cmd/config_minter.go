package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/trantorian/nftminter/pkg/chain"
	"github.com/trantorian/nftminter/pkg/events"
	"github.com/trantorian/nftminter/pkg/mint"
	"github.com/trantorian/nftminter/pkg/wallet"
)

const (
	passwordPromptCmdName = "password"
	passwordArgCmdName    = "pn"
	passwordPromptUsage   = "password (interactive from prompt)"
	passwordArgUsage      = "password (non-interactive from args)"

	walletDirCmdName = "wallet-dir"

	algodURLCmdName           = "algod-url"
	algodTokenCmdName         = "algod-token"
	requestTimeoutCmdName     = "request-timeout"
	confirmationRoundsCmdName = "confirmation-rounds"
	maxBatchCmdName           = "max-batch"
	namePrefixCmdName         = "name-prefix"
	unitPrefixCmdName         = "unit-prefix"
	natsURLCmdName            = "nats-url"
	natsSubjectCmdName        = "nats-subject"
	accountCmdName            = "account"
	selectCmdName             = "select"

	defaultAlgodURL = "http://localhost:4001"
)

// password is read from the terminal with survey, tests swap the stdio
var passwordStdio = survey.WithStdio(os.Stdin, os.Stdout, os.Stderr)

type (
	walletConfig struct {
		Base      *baseConfiguration
		WalletDir string
	}

	minterConfig struct {
		walletConfig

		AlgodURL           string
		AlgodToken         string
		RequestTimeout     time.Duration
		ConfirmationRounds uint64
		MaxBatchSize       int
		NamePrefix         string
		UnitPrefix         string
		NatsURL            string
		NatsSubject        string
		Account            string
		Select             bool
	}

	// minter is the orchestrator together with the resources it depends on.
	minter struct {
		*mint.Orchestrator
		Keystore *wallet.Keystore
		closers  []io.Closer
	}
)

func (c *walletConfig) addWalletFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&c.WalletDir, walletDirCmdName, "", "keystore directory (default is $NFTMINTER_HOME/wallet)")
	cmd.PersistentFlags().BoolP(passwordPromptCmdName, "p", false, passwordPromptUsage)
	cmd.PersistentFlags().String(passwordArgCmdName, "", passwordArgUsage)
}

func (c *walletConfig) keystoreDir() string {
	if c.WalletDir == "" {
		return c.Base.walletDir()
	}
	return c.WalletDir
}

func (c *minterConfig) addMinterFlags(cmd *cobra.Command) {
	c.addWalletFlags(cmd)
	flags := cmd.Flags()
	flags.StringVar(&c.AlgodURL, algodURLCmdName, defaultAlgodURL, "algod REST API endpoint")
	flags.StringVar(&c.AlgodToken, algodTokenCmdName, "", "algod API token")
	flags.DurationVar(&c.RequestTimeout, requestTimeoutCmdName, 10*time.Second, "timeout of single algod request")
	flags.Uint64Var(&c.ConfirmationRounds, confirmationRoundsCmdName, mint.DefaultConfirmationRounds, "number of rounds to wait for each transaction to be confirmed")
	flags.IntVar(&c.MaxBatchSize, maxBatchCmdName, mint.DefaultMaxBatchSize, "max number of NFTs in one batch, 0 means no limit")
	flags.StringVar(&c.NamePrefix, namePrefixCmdName, mint.DefaultNamePrefix, "asset name prefix, index of the NFT is appended")
	flags.StringVar(&c.UnitPrefix, unitPrefixCmdName, mint.DefaultUnitPrefix, "unit name prefix, index of the NFT is appended")
	flags.StringVar(&c.NatsURL, natsURLCmdName, "", "NATS server to publish minted events to, events are not published when not set")
	flags.StringVar(&c.NatsSubject, natsSubjectCmdName, events.DefaultSubject, "NATS subject of the minted events")
	flags.StringVar(&c.Account, accountCmdName, "", "address or name of the account to connect, may be omitted when keystore has single account")
	flags.BoolVar(&c.Select, selectCmdName, false, "select the account to connect interactively")
}

func (c *minterConfig) selector() wallet.AccountSelector {
	if c.Select {
		return wallet.PromptSelector{Opts: []survey.AskOpt{passwordStdio}}
	}
	return wallet.AddressSelector(c.Account)
}

/*
newMinter opens the keystore and builds the orchestrator. Returned minter
must be closed by the caller.
*/
func (c *minterConfig) newMinter(cmd *cobra.Command) (_ *minter, err error) {
	log := c.Base.log
	ks, err := openKeystore(cmd, c.keystoreDir())
	if err != nil {
		return nil, err
	}
	m := &minter{Keystore: ks, closers: []io.Closer{ks}}
	defer func() {
		if err != nil {
			err = errors.Join(err, m.Close())
		}
	}()

	chainClient, err := chain.New(chain.Config{URL: c.AlgodURL, Token: c.AlgodToken, RequestTimeout: c.RequestTimeout}, log)
	if err != nil {
		return nil, fmt.Errorf("creating algod client: %w", err)
	}

	cfg := mint.Config{
		Template:           mint.IssuanceTemplate{NamePrefix: c.NamePrefix, UnitPrefix: c.UnitPrefix},
		ConfirmationRounds: c.ConfirmationRounds,
		MaxBatchSize:       c.MaxBatchSize,
		Meter:              c.Base.observe.Meter("mint"),
	}
	if c.NatsURL != "" {
		pub, err := events.Connect(c.NatsURL, c.NatsSubject, log)
		if err != nil {
			return nil, err
		}
		m.closers = append(m.closers, closerFunc(pub.Close))
		cfg.Notifier = pub
	}

	connector := wallet.NewConnector(ks, c.selector(), log)
	if m.Orchestrator, err = mint.NewOrchestrator(connector, chainClient, cfg, log); err != nil {
		return nil, fmt.Errorf("creating mint orchestrator: %w", err)
	}
	return m, nil
}

func (m *minter) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

func openKeystore(cmd *cobra.Command, dir string) (*wallet.Keystore, error) {
	pw, err := getPassphrase(cmd, "Enter passphrase: ")
	if err != nil {
		return nil, err
	}
	ks, err := wallet.OpenKeystore(dir, pw)
	if err != nil {
		return nil, fmt.Errorf("opening keystore: %w", err)
	}
	return ks, nil
}

func createPassphrase(cmd *cobra.Command) (string, error) {
	passwordFromArg, err := cmd.Flags().GetString(passwordArgCmdName)
	if err != nil {
		return "", err
	}
	if passwordFromArg != "" {
		return passwordFromArg, nil
	}
	passwordFlag, err := cmd.Flags().GetBool(passwordPromptCmdName)
	if err != nil {
		return "", err
	}
	if !passwordFlag {
		return "", nil
	}
	p1, err := readPassword("Create new passphrase:")
	if err != nil {
		return "", err
	}
	p2, err := readPassword("Confirm passphrase:")
	if err != nil {
		return "", err
	}
	if p1 != p2 {
		return "", errors.New("passphrases do not match")
	}
	return p1, nil
}

// getPassphrase returns empty string when neither of the password flags is set.
func getPassphrase(cmd *cobra.Command, promptMessage string) (string, error) {
	passwordFromArg, err := cmd.Flags().GetString(passwordArgCmdName)
	if err != nil {
		return "", err
	}
	if passwordFromArg != "" {
		return passwordFromArg, nil
	}
	passwordFlag, err := cmd.Flags().GetBool(passwordPromptCmdName)
	if err != nil {
		return "", err
	}
	if !passwordFlag {
		return "", nil
	}
	return readPassword(promptMessage)
}

func readPassword(promptMessage string) (string, error) {
	var pw string
	if err := survey.AskOne(&survey.Password{Message: promptMessage}, &pw, passwordStdio); err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return pw, nil
}
