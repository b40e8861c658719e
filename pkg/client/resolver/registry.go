package resolver

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tidwall/gjson"

	"github.com/zunokit/zunogo/pkg/client"
)

var _ client.MetadataService = (*StaticRegistry)(nil)

// StaticRegistry is a MetadataService backed by a JSON registry document,
// for embedders that bundle their contract deployments and for tests. The
// production registry service is an external collaborator.
//
// Document shape:
//
//	{
//	  "contracts": {
//	    "<contractType>": {
//	      "abiVersion": "1.2.0",
//	      "abi": [ ... ],
//	      "networks": { "<network>": "0x..." }
//	    }
//	  }
//	}
type StaticRegistry struct {
	doc string
}

// NewStaticRegistry parses and validates the registry document.
func NewStaticRegistry(registryJSON []byte) (*StaticRegistry, error) {
	if !gjson.ValidBytes(registryJSON) {
		return nil, ErrInvalidRegistry.Wrap("document is not valid JSON")
	}

	doc := string(registryJSON)
	if !gjson.Get(doc, "contracts").IsObject() {
		return nil, ErrInvalidRegistry.Wrap(`missing "contracts" object`)
	}

	return &StaticRegistry{doc: doc}, nil
}

// ContractMetadata returns the deployment record for the given contract type
// on the given network.
func (r *StaticRegistry) ContractMetadata(
	_ context.Context,
	contractType, network string,
) (client.Metadata, error) {
	contract := gjson.Get(r.doc, "contracts."+contractType)
	if !contract.Exists() {
		return client.Metadata{}, ErrResolution.Wrapf("unknown contract type %q", contractType)
	}

	address := contract.Get("networks." + network).String()
	if address == "" {
		return client.Metadata{}, ErrResolution.Wrapf(
			"contract type %q has no deployment on network %q", contractType, network,
		)
	}

	abiJSON := contract.Get("abi").Raw
	if abiJSON == "" {
		return client.Metadata{}, ErrResolution.Wrapf("contract type %q has no ABI", contractType)
	}

	return client.Metadata{
		Address:    address,
		ABIJSON:    abiJSON,
		ABIVersion: contract.Get("abiVersion").String(),
	}, nil
}

// ABIByAddress scans the registry for a contract deployed at the given
// address on the given network.
func (r *StaticRegistry) ABIByAddress(
	_ context.Context,
	address common.Address,
	network string,
) (string, error) {
	var abiJSON string

	gjson.Get(r.doc, "contracts").ForEach(func(_, contract gjson.Result) bool {
		deployed := contract.Get("networks." + network).String()
		if deployed != "" && strings.EqualFold(deployed, address.Hex()) {
			abiJSON = contract.Get("abi").Raw
			return false
		}
		return true
	})

	if abiJSON == "" {
		return "", ErrResolution.Wrapf(
			"no contract at %s on network %q", address.Hex(), network,
		)
	}
	return abiJSON, nil
}
