package adapters

// DefaultConfigs mirrors the reference pipeline's DEFAULT_ADAPTER_CONFIGS:
// one adapter config per scheme this system understands out of the box.
// An empty ipfsGateways or arweaveGateway falls back to the well-known
// public gateway for that scheme.
func DefaultConfigs(ipfsGateways []string, arweaveGateway string) []Config {
	if arweaveGateway == "" {
		arweaveGateway = "https://arweave.net/"
	}
	if len(ipfsGateways) == 0 {
		ipfsGateways = []string{"https://gateway.pinata.cloud/ipfs/"}
	}

	return []Config{
		{
			MountPrefixes: []string{"ar://"},
			HostPrefixes:  []string{arweaveGateway},
			PoolSize:      100,
			MaxRetries:    0,
			Timeout:       10,
			New:           NewArweaveAdapter,
		},
		{
			MountPrefixes: []string{"data:"},
			New:           NewDataAdapter,
		},
		{
			MountPrefixes: []string{
				"ipfs://",
				"https://gateway.pinata.cloud/",
				"https://ipfs.io/",
			},
			HostPrefixes: ipfsGateways,
			PoolSize:     100,
			MaxRetries:   0,
			Timeout:      10,
			New:          NewIPFSAdapter,
		},
		{
			MountPrefixes: []string{"https://", "http://"},
			PoolSize:      100,
			MaxRetries:    0,
			Timeout:       10,
			New:           NewHTTPAdapter,
		},
	}
}

// Mount builds every adapter described by configs and mounts it into reg.
func Mount(reg *Registry, configs []Config) error {
	for _, cfg := range configs {
		adapter, err := cfg.New(cfg)
		if err != nil {
			return err
		}
		reg.Mount(adapter, cfg.MountPrefixes)
	}
	return nil
}
