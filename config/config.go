package config

import (
	"log"
	"sync"
	"time"

	"github.com/Astemirdum/library-loan-client/pkg/logger"

	"github.com/kelseyhightower/envconfig"
)

type API struct {
	BaseURL        string        `yaml:"baseURL" envconfig:"API_BASE_URL" default:"http://localhost:8000"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"API_TIMEOUT"`
	CSRFCookieName string        `yaml:"csrfCookie" envconfig:"CSRF_COOKIE_NAME" default:"csrftoken"`
	CSRFHeaderName string        `yaml:"csrfHeader" envconfig:"CSRF_HEADER_NAME" default:"X-CSRFToken"`
}

type DevServer struct {
	Host         string  `yaml:"host" envconfig:"DEVSERVER_HTTP_HOST" default:"localhost"`
	Port         string  `yaml:"port" envconfig:"DEVSERVER_HTTP_PORT" default:"8000"`
	RPS          float64 `yaml:"rps" envconfig:"DEVSERVER_RPS" default:"100"`
	SeedPassword string  `yaml:"-" envconfig:"DEVSERVER_SEED_PASSWORD" default:"library123"`
	SeedCatalog  string  `yaml:"seedCatalog" envconfig:"DEVSERVER_SEED_CATALOG"`
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Config struct {
	API       API        `yaml:"api"`
	DevServer DevServer  `yaml:"devServer"`
	Log       logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		if config.API.Timeout == 0 {
			config.API.Timeout = time.Minute
		}
		cfg = config
	})

	return cfg
}
