package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Chain struct {
		RPC          string `yaml:"rpc"`
		ChainID      int64  `yaml:"chain_id"`
		ContractData string `yaml:"contract_data"`
		Explorer     string `yaml:"explorer"`
	} `yaml:"chain"`
	Payments struct {
		CitationRateCRO      float64 `yaml:"citation_rate_cro"`
		ServiceFeeCRO        float64 `yaml:"service_fee_cro"`
		ServiceWallet        string  `yaml:"service_wallet"`
		SubmitTimeoutSeconds int     `yaml:"submit_timeout_seconds"`
	} `yaml:"payments"`
	Agent struct {
		KeyStore string `yaml:"key_store"`
	} `yaml:"agent"`
	Analytics struct {
		Listen string `yaml:"listen"`
	} `yaml:"analytics"`
	Market struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"market"`
}

func Default(home string) Config {
	cfg := Config{}
	cfg.Chain.RPC = "https://evm-t3.cronos.org"
	cfg.Chain.ChainID = 338
	cfg.Chain.ContractData = filepath.Join(home, ".cognishare", "contract_data.json")
	cfg.Chain.Explorer = "https://explorer.cronos.org/testnet3"
	cfg.Payments.CitationRateCRO = 0.01
	cfg.Payments.ServiceFeeCRO = 0.05
	cfg.Payments.ServiceWallet = ""
	cfg.Payments.SubmitTimeoutSeconds = 60
	cfg.Agent.KeyStore = filepath.Join(home, ".cognishare", "keys")
	cfg.Analytics.Listen = ":8799"
	cfg.Market.BaseURL = "https://api.coingecko.com"
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Write(path string, cfg Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
