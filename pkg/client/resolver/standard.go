package resolver

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/rs/zerolog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/zunokit/zunogo/pkg/client"
)

// erc165ABIJSON is the minimal ABI needed to probe ERC-165 interface support.
const erc165ABIJSON = `[{"inputs":[{"name":"interfaceId","type":"bytes4"}],"name":"supportsInterface","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"}]`

var erc165ABI = mustParseABI(erc165ABIJSON)

func mustParseABI(abiJSON string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}

// standardProbes is the ordered list of capability checks performed by
// VerifyStandard. The order is a compatibility contract: the first matching
// standard wins, so ERC721 is always reported for contracts implementing
// both interfaces.
var standardProbes = []struct {
	standard    client.Standard
	interfaceID [4]byte
}{
	{client.StandardERC721, [4]byte{0x80, 0xac, 0x58, 0xcd}},
	{client.StandardERC1155, [4]byte{0xd9, 0xb6, 0x7a, 0x26}},
}

// VerifyStandard probes the contract at the given address for known token
// standards via ERC-165, in a fixed order, and returns the first match.
// Contracts matching no probe (including contracts that do not implement
// ERC-165 at all) are reported as StandardUnknown; that is not an error.
func (r *contractResolver) VerifyStandard(
	ctx context.Context,
	address common.Address,
	chainCtx client.ChainContext,
) (client.Standard, error) {
	if chainCtx == nil {
		return client.StandardUnknown, ErrResolverConfig.Wrap("chain context is required")
	}

	logger := zerolog.Ctx(ctx).With().
		Str("address", address.Hex()).
		Logger()

	for _, probe := range standardProbes {
		callData, err := erc165ABI.Pack("supportsInterface", probe.interfaceID)
		if err != nil {
			return client.StandardUnknown, ErrInvalidABI.Wrap(err.Error())
		}

		output, err := chainCtx.CallContract(ctx, ethereum.CallMsg{
			To:   &address,
			Data: callData,
		}, nil)
		if err != nil {
			// Contracts without ERC-165 revert on the probe; treat any call
			// failure as a non-match and continue.
			logger.Debug().
				Err(err).
				Str("standard", string(probe.standard)).
				Msg("standard probe call failed")
			continue
		}

		var supported bool
		if err = erc165ABI.UnpackIntoInterface(&supported, "supportsInterface", output); err != nil {
			logger.Debug().
				Err(err).
				Str("standard", string(probe.standard)).
				Msg("standard probe returned undecodable output")
			continue
		}

		if supported {
			return probe.standard, nil
		}
	}

	return client.StandardUnknown, nil
}
