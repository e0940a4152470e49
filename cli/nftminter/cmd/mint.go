package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trantorian/nftminter/pkg/mint"
)

const (
	amountCmdName   = "amount"
	managerCmdName  = "manager"
	metadataCmdName = "metadata"
	templateCmdName = "template"
	jsonCmdName     = "json"
)

// newMintCmd creates command which connects the wallet and mints a batch of NFTs.
func newMintCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &minterConfig{walletConfig: walletConfig{Base: baseConfig}}
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "mints a batch of NFTs with the connected account as creator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execMintCmd(cmd, config)
		},
	}
	config.addMinterFlags(cmd)
	cmd.Flags().String(amountCmdName, "", "number of NFTs to mint")
	cmd.Flags().String(managerCmdName, "", "manager address of the NFTs")
	cmd.Flags().String(metadataCmdName, "", "metadata pointer: reserve address or CID of the metadata")
	cmd.Flags().String(templateCmdName, "", "asset URL, ie ARC-19 template-ipfs://{ipfscid:1:raw:reserve:sha2-256}")
	cmd.Flags().Bool(jsonCmdName, false, "print the mint report as JSON")
	_ = cmd.MarkFlagRequired(amountCmdName)
	return cmd
}

func execMintCmd(cmd *cobra.Command, config *minterConfig) error {
	req := mint.MintRequest{}
	var err error
	if req.Amount, err = cmd.Flags().GetString(amountCmdName); err != nil {
		return err
	}
	if req.Manager, err = cmd.Flags().GetString(managerCmdName); err != nil {
		return err
	}
	if req.MetadataPointer, err = cmd.Flags().GetString(metadataCmdName); err != nil {
		return err
	}
	if req.TemplateURL, err = cmd.Flags().GetString(templateCmdName); err != nil {
		return err
	}
	asJSON, err := cmd.Flags().GetBool(jsonCmdName)
	if err != nil {
		return err
	}

	m, err := config.newMinter(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	var session mint.Session
	if err := m.Connect(cmd.Context(), &session); err != nil {
		return err
	}
	report, err := m.Mint(cmd.Context(), &session, req)
	if report != nil {
		if perr := printReport(report, asJSON); perr != nil {
			return perr
		}
	}
	return err
}

func printReport(report *mint.MintReport, asJSON bool) error {
	if asJSON {
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding mint report: %w", err)
		}
		consoleWriter.Println(string(b))
		return nil
	}
	if len(report.Transactions) == 0 {
		consoleWriter.Println("Nothing minted")
		return nil
	}
	for _, tx := range report.Transactions {
		switch {
		case tx.AssetID != 0:
			consoleWriter.Println(fmt.Sprintf("%s: asset %d (tx %s, round %d)", tx.AssetName, tx.AssetID, tx.TxID, tx.ConfirmedRound))
		case tx.Error != "":
			consoleWriter.Println(fmt.Sprintf("%s: failed (tx %s): %s", tx.AssetName, tx.TxID, tx.Error))
		default:
			consoleWriter.Println(fmt.Sprintf("%s: not confirmed (tx %s)", tx.AssetName, tx.TxID))
		}
	}
	consoleWriter.Println(fmt.Sprintf("Minted %d of %d NFTs, total fee %s ALGO", len(report.AssetIDs), len(report.Transactions), report.TotalFee.String()))
	return nil
}
