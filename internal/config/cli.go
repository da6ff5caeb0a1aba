package config

import "time"

// CLIConfig — конфигурация ticketctl. Порядок источников тот же, что у шлюза.
type CLIConfig struct {
	BaseURL string        `yaml:"base_url" env:"EVENTHUB_BASE_URL" env-default:"http://127.0.0.1:8000/api"`
	Timeout time.Duration `yaml:"timeout"  env:"EVENTHUB_TIMEOUT"  env-default:"15s"`
	// CredentialsFile — путь к файлу токенов; пусто — каталог конфигурации пользователя.
	CredentialsFile string        `yaml:"credentials_file" env:"EVENTHUB_CREDENTIALS_FILE"`
	Account         string        `yaml:"account"          env:"EVENTHUB_ACCOUNT" env-default:"default"`
	RenewalTimeout  time.Duration `yaml:"renewal_timeout"  env:"EVENTHUB_RENEWAL_TIMEOUT" env-default:"10s"`
}

// LoadCLI читает конфиг CLI.
func LoadCLI(path string) (*CLIConfig, error) {
	var cfg CLIConfig

	if err := load(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
