package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Geant4     Geant4Config
	Simulation SimulationConfig
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Host string
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	Enabled    bool
	JWTSecret  string
	Expiration int // hours
}

type Geant4Config struct {
	InstallPath    string
	DataPath       string
	ExecutablePath string
}

type SimulationConfig struct {
	ResultsPath   string
	WorkPath      string
	MaxConcurrent int
	BatchDelayMS  int
}

type RateLimitConfig struct {
	CreatePerMin  int
	ControlPerMin int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.host", "SERVER_HOST")
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("auth.enabled", "AUTH_ENABLED")
	_ = viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = viper.BindEnv("auth.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("geant4.install_path", "GEANT4_INSTALL_PATH")
	_ = viper.BindEnv("geant4.data_path", "GEANT4_DATA_PATH")
	_ = viper.BindEnv("geant4.executable_path", "GEANT4_EXECUTABLE_PATH")
	_ = viper.BindEnv("simulation.results_path", "RESULTS_PATH")
	_ = viper.BindEnv("simulation.work_path", "WORK_PATH")
	_ = viper.BindEnv("simulation.max_concurrent", "MAX_CONCURRENT_SIMULATIONS")
	_ = viper.BindEnv("simulation.batch_delay_ms", "SIMULATION_BATCH_DELAY_MS")
	_ = viper.BindEnv("ratelimit.create_per_min", "RATELIMIT_CREATE_PER_MIN")
	_ = viper.BindEnv("ratelimit.control_per_min", "RATELIMIT_CONTROL_PER_MIN")

	// Defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwt_secret", "change-me-in-production")
	viper.SetDefault("auth.expiration", 24)
	viper.SetDefault("geant4.install_path", "")
	viper.SetDefault("geant4.data_path", "")
	viper.SetDefault("geant4.executable_path", "")
	viper.SetDefault("simulation.results_path", "./results")
	viper.SetDefault("simulation.work_path", "./work")
	viper.SetDefault("simulation.max_concurrent", 4)
	viper.SetDefault("simulation.batch_delay_ms", 50)
	viper.SetDefault("ratelimit.create_per_min", 60)
	viper.SetDefault("ratelimit.control_per_min", 120)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			Enabled:    viper.GetBool("auth.enabled"),
			JWTSecret:  viper.GetString("auth.jwt_secret"),
			Expiration: viper.GetInt("auth.expiration"),
		},
		Geant4: Geant4Config{
			InstallPath:    viper.GetString("geant4.install_path"),
			DataPath:       viper.GetString("geant4.data_path"),
			ExecutablePath: viper.GetString("geant4.executable_path"),
		},
		Simulation: SimulationConfig{
			ResultsPath:   viper.GetString("simulation.results_path"),
			WorkPath:      viper.GetString("simulation.work_path"),
			MaxConcurrent: viper.GetInt("simulation.max_concurrent"),
			BatchDelayMS:  viper.GetInt("simulation.batch_delay_ms"),
		},
		RateLimit: RateLimitConfig{
			CreatePerMin:  viper.GetInt("ratelimit.create_per_min"),
			ControlPerMin: viper.GetInt("ratelimit.control_per_min"),
		},
	}

	return cfg, nil
}
