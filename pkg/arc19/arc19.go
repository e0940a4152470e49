/*
Package arc19 implements the ARC-19 convention of pointing an Algorand
asset to its (mutable) IPFS metadata: the reserve address of the asset holds
the multihash digest of the metadata CID and the asset URL is a template
telling how to rebuild the CID from the reserve address, ie

	template-ipfs://{ipfscid:1:raw:reserve:sha2-256}
*/
package arc19

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

const templateScheme = "template-ipfs://"

var (
	ErrInvalidPointer  = errors.New("metadata pointer is neither an Algorand address nor an IPFS CID")
	ErrInvalidTemplate = errors.New("invalid ARC-19 template URL")

	templateRE = regexp.MustCompile(`^template-ipfs://\{ipfscid:(0|1):([a-z0-9-]+):reserve:([a-z0-9-]+)\}(.*)$`)

	codecNames = map[uint64]string{
		cid.Raw:         "raw",
		cid.DagProtobuf: "dag-pb",
	}
)

/*
ResolveReserve returns reserve address for the metadata pointer.
The pointer may already be a reserve address (it is returned as is) or an
IPFS CID in which case its sha2-256 digest is encoded as the address.
*/
func ResolveReserve(pointer string) (string, error) {
	if pointer == "" {
		return "", nil
	}
	if _, err := types.DecodeAddress(pointer); err == nil {
		return pointer, nil
	}
	c, err := cid.Decode(pointer)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPointer, pointer)
	}
	return ReserveAddress(c)
}

// ReserveAddress encodes the multihash digest of the CID as Algorand address.
func ReserveAddress(c cid.Cid) (string, error) {
	dmh, err := mh.Decode(c.Hash())
	if err != nil {
		return "", fmt.Errorf("decoding CID multihash: %w", err)
	}
	if dmh.Code != mh.SHA2_256 {
		return "", fmt.Errorf("unsupported CID hash function %q, only sha2-256 can be stored in reserve address", dmh.Name)
	}
	var addr types.Address
	if len(dmh.Digest) != len(addr) {
		return "", fmt.Errorf("unexpected digest length %d", len(dmh.Digest))
	}
	copy(addr[:], dmh.Digest)
	return addr.String(), nil
}

/*
TemplateURL returns the ARC-19 asset URL for the CID, it tells clients how
to turn the reserve address back into the CID.
*/
func TemplateURL(c cid.Cid) (string, error) {
	codec, ok := codecNames[c.Type()]
	if !ok {
		return "", fmt.Errorf("unsupported CID codec 0x%x", c.Type())
	}
	return fmt.Sprintf("%s{ipfscid:%d:%s:reserve:sha2-256}", templateScheme, c.Version(), codec), nil
}

// IsTemplateURL reports whether the URL looks like ARC-19 template (not validated).
func IsTemplateURL(url string) bool {
	return len(url) > len(templateScheme) && url[:len(templateScheme)] == templateScheme
}

/*
CIDFromReserve rebuilds the metadata CID from the asset's template URL and
reserve address. The trailing part of the template (ie "/metadata.json") is
returned as path.
*/
func CIDFromReserve(templateURL, reserve string) (c cid.Cid, path string, err error) {
	m := templateRE.FindStringSubmatch(templateURL)
	if m == nil {
		return cid.Undef, "", fmt.Errorf("%w: %q", ErrInvalidTemplate, templateURL)
	}
	version, _ := strconv.ParseUint(m[1], 10, 64)
	if m[3] != "sha2-256" {
		return cid.Undef, "", fmt.Errorf("%w: unsupported hash %q", ErrInvalidTemplate, m[3])
	}
	var codec uint64
	for k, v := range codecNames {
		if v == m[2] {
			codec = k
		}
	}
	if codec == 0 {
		return cid.Undef, "", fmt.Errorf("%w: unsupported codec %q", ErrInvalidTemplate, m[2])
	}

	addr, err := types.DecodeAddress(reserve)
	if err != nil {
		return cid.Undef, "", fmt.Errorf("decoding reserve address: %w", err)
	}
	hash, err := mh.Encode(addr[:], mh.SHA2_256)
	if err != nil {
		return cid.Undef, "", fmt.Errorf("encoding multihash: %w", err)
	}

	switch version {
	case 0:
		if codec != cid.DagProtobuf {
			return cid.Undef, "", fmt.Errorf("%w: CIDv0 must use dag-pb codec", ErrInvalidTemplate)
		}
		return cid.NewCidV0(hash), m[4], nil
	default:
		return cid.NewCidV1(codec, hash), m[4], nil
	}
}
