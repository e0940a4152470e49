package mint

import (
	"fmt"
	"strconv"

	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

const (
	DefaultNamePrefix = "Trantorian NFT"
	DefaultUnitPrefix = "TR"
)

// IssuanceTemplate describes the NFTs created by the minter.
type IssuanceTemplate struct {
	// asset name is NamePrefix followed by the index of the NFT in the batch
	NamePrefix string
	// unit name is UnitPrefix followed by the index of the NFT in the batch
	UnitPrefix string
}

func (t IssuanceTemplate) names(idx int) (assetName, unitName string) {
	s := strconv.Itoa(idx)
	return t.NamePrefix + s, t.UnitPrefix + s
}

/*
issuance holds the parameters of the NFT batch which are the same for every
transaction, only the names differ.
*/
type issuance struct {
	creator  string
	manager  string
	reserve  string
	url      string
	params   types.SuggestedParams
	template IssuanceTemplate
}

/*
build creates "count" asset creation transactions, each for a pure NFT
(total supply of 1, no decimals, not frozen). All the transactions share
the same suggested params.
*/
func (is *issuance) build(count int) ([]types.Transaction, error) {
	txns := make([]types.Transaction, 0, count)
	for idx := 0; idx < count; idx++ {
		assetName, unitName := is.template.names(idx)
		txn, err := transaction.MakeAssetCreateTxn(
			is.creator,
			nil,
			is.params,
			1,     // total
			0,     // decimals
			false, // default frozen
			is.manager,
			is.reserve,
			"", // freeze
			"", // clawback
			unitName,
			assetName,
			is.url,
			"", // metadata hash
		)
		if err != nil {
			return nil, fmt.Errorf("creating issuance transaction %d: %w", idx, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}
