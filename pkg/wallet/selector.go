package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/trantorian/nftminter/pkg/mint"
)

var (
	ErrCancelled        = errors.New("account selection cancelled")
	ErrAccountAmbiguous = errors.New("more than one account in the keystore, account must be chosen")
)

// AccountSelector picks the account the user agrees to share with the minter.
type AccountSelector interface {
	SelectAccount(ctx context.Context, accounts []mint.Account) (mint.Account, error)
}

/*
AddressSelector selects account by address or name. Empty selector picks
the only account of the keystore and fails when there is more than one.
*/
type AddressSelector string

func (s AddressSelector) SelectAccount(ctx context.Context, accounts []mint.Account) (mint.Account, error) {
	if s == "" {
		if len(accounts) == 1 {
			return accounts[0], nil
		}
		return mint.Account{}, ErrAccountAmbiguous
	}
	for _, acc := range accounts {
		if acc.Address == string(s) || acc.Name == string(s) {
			return acc, nil
		}
	}
	return mint.Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, string(s))
}

// PromptSelector asks user to pick the account in the terminal.
type PromptSelector struct {
	Opts []survey.AskOpt
}

func (s PromptSelector) SelectAccount(ctx context.Context, accounts []mint.Account) (mint.Account, error) {
	if err := ctx.Err(); err != nil {
		return mint.Account{}, err
	}
	options := make([]string, len(accounts))
	for i, acc := range accounts {
		options[i] = fmt.Sprintf("%s (%s)", acc.Name, acc.Address)
	}
	var idx int
	prompt := &survey.Select{
		Message: "Select account to connect to the minter:",
		Options: options,
	}
	if err := survey.AskOne(prompt, &idx, s.Opts...); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return mint.Account{}, ErrCancelled
		}
		return mint.Account{}, fmt.Errorf("selecting account: %w", err)
	}
	return accounts[idx], nil
}
