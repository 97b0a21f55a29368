package config

type Image struct {
	Dir      string `env:"IMAGE_DIR" envDefault:"./data/images"`
	BaseURL  string `env:"IMAGE_BASE_URL" envDefault:"/images"`
	MaxBytes int64  `env:"IMAGE_MAX_BYTES" envDefault:"5242880"`
}
