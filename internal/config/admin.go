package config

type Admin struct {
	// Secret guards destructive ledger operations. Empty disables them.
	Secret string `env:"ADMIN_SECRET"`
}
