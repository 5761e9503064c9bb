// Package config loads the docking service configuration from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	// Backend describes the quantum execution service jobs are sent to.
	// An empty URL leaves the service without a default backend; jobs must
	// then name one registered through other means.
	Backend struct {
		Name      string        `env:"BACKEND_NAME" envDefault:"qpp-cpu"`
		URL       string        `env:"BACKEND_URL"`
		Token     string        `env:"BACKEND_TOKEN"`
		MaxQubits int           `env:"BACKEND_MAX_QUBITS" envDefault:"30"`
		Simulator bool          `env:"BACKEND_SIMULATOR" envDefault:"true"`
		Timeout   time.Duration `env:"BACKEND_TIMEOUT" envDefault:"60s"`
	}
	// Optimization carries the per-job defaults of the docking driver.
	// Zero evaluation and runtime budgets leave those limits off.
	Optimization struct {
		MaxIterations  int           `env:"OPT_MAX_ITERATIONS" envDefault:"500"`
		MaxEvaluations int           `env:"OPT_MAX_EVALUATIONS" envDefault:"0"`
		MaxRuntime     time.Duration `env:"OPT_MAX_RUNTIME" envDefault:"0"`
		Tolerance      float64       `env:"OPT_TOLERANCE" envDefault:"1e-6"`
		Seed           int64         `env:"OPT_SEED" envDefault:"42"`
		InitialSpread  float64       `env:"OPT_INITIAL_SPREAD" envDefault:"1.0"`
		DefaultLayers  int           `env:"OPT_DEFAULT_LAYERS" envDefault:"1"`
		Shots          int           `env:"OPT_SHOTS" envDefault:"1000"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
		if cfg.Environment == "development" {
			cfg.Logging.Level = "debug"
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: HTTP port %d out of range", c.HTTP.Port)
	}
	if c.Backend.MaxQubits < 1 {
		return fmt.Errorf("config: backend capacity must be at least one qubit, got %d", c.Backend.MaxQubits)
	}
	if c.Optimization.DefaultLayers < 1 {
		return fmt.Errorf("config: ansatz needs at least one layer, got %d", c.Optimization.DefaultLayers)
	}
	if c.Optimization.Shots < 1 {
		return fmt.Errorf("config: shot count must be positive, got %d", c.Optimization.Shots)
	}
	if c.Optimization.Tolerance <= 0 {
		return fmt.Errorf("config: tolerance must be positive, got %g", c.Optimization.Tolerance)
	}
	if c.Optimization.InitialSpread <= 0 {
		return fmt.Errorf("config: initial spread must be positive, got %g", c.Optimization.InitialSpread)
	}
	return nil
}
