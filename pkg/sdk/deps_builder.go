package sdk

import (
	"cosmossdk.io/depinject"

	"github.com/zunokit/zunogo/pkg/client/resolver"
	"github.com/zunokit/zunogo/pkg/ledger"
)

// buildDeps assembles the dependency config for the SDK's components when the
// consumer does not provide one. It supplies the metadata service and a fresh
// transaction ledger; the resolver and tx client are constructed from these
// by New.
func buildDeps(config *Config) (depinject.Config, error) {
	deps := depinject.Configs()

	metadataService := config.MetadataService
	switch {
	case metadataService != nil && config.RegistryJSON != nil:
		return nil, ErrSDKConfig.Wrap("MetadataService and RegistryJSON are mutually exclusive")
	case metadataService == nil && config.RegistryJSON == nil:
		return nil, ErrSDKConfig.Wrap("either MetadataService or RegistryJSON is required")
	case metadataService == nil:
		registry, err := resolver.NewStaticRegistry(config.RegistryJSON)
		if err != nil {
			return nil, err
		}
		metadataService = registry
	}
	deps = depinject.Configs(deps, depinject.Supply(metadataService))

	txLedger := ledger.New(config.LedgerOpts...)
	deps = depinject.Configs(deps, depinject.Supply(txLedger))

	return deps, nil
}
