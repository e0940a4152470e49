package mint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/trantorian/nftminter/pkg/arc19"
)

/*
MintRequest is what user enters into the mint form. Amount is a string as
it comes straight from the user input.
*/
type MintRequest struct {
	Amount          string `json:"amount"`
	Manager         string `json:"manager"`
	MetadataPointer string `json:"metadata"`
	TemplateURL     string `json:"template"`
}

func parseAmount(amount string, maxBatch int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(amount))
	if err != nil {
		return 0, fmt.Errorf("%w %q: not a number", ErrInvalidAmount, amount)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w %q: must not be negative", ErrInvalidAmount, amount)
	}
	if maxBatch > 0 && n > maxBatch {
		return 0, fmt.Errorf("%w: %d NFTs requested, max %d in one batch", ErrBatchTooLarge, n, maxBatch)
	}
	return n, nil
}

func resolveReserve(pointer string) (string, error) {
	addr, err := arc19.ResolveReserve(pointer)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidMetadataPointer, err)
	}
	return addr, nil
}
