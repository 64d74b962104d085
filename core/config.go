package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMemory      bool
	}

	AutosaveConfig struct {
		FixedInterval   time.Duration
		InactivityDelay time.Duration
		MinChanges      int
		Debounce        time.Duration
		SavedResetDelay time.Duration
	}

	DraftsConfig struct {
		KeepLatest      int
		MaxPayloadBytes int
		PurgeAfter      time.Duration
	}

	ClientConfig struct {
		BaseURL string
		Token   string
		Timeout time.Duration
	}

	Config struct {
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		SecretKey    string
		RollbarToken string
		WorkDir      string

		Server   ServerConfig
		Database DatabaseConfig
		Autosave AutosaveConfig
		Drafts   DraftsConfig
		Client   ClientConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased ENV, eg. `DEV_DATABASE_NAME`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Academia")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "academia")
	v.SetDefault("database.user", "academia")
	v.SetDefault("database.password", "academia")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.inMemory", false)

	v.SetDefault("autosave.fixedInterval", 5*time.Minute)
	v.SetDefault("autosave.inactivityDelay", 30*time.Second)
	v.SetDefault("autosave.minChanges", 3)
	v.SetDefault("autosave.debounce", 2*time.Second)
	v.SetDefault("autosave.savedResetDelay", 2*time.Second)

	v.SetDefault("drafts.keepLatest", 5)
	v.SetDefault("drafts.maxPayloadBytes", 1<<20)
	v.SetDefault("drafts.purgeAfter", 30*24*time.Hour)

	v.SetDefault("client.baseURL", "http://localhost:8000/v1")
	v.SetDefault("client.token", "")
	v.SetDefault("client.timeout", 30*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		WorkDir:      wd,
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			InMemory:      v.GetBool("database.inMemory"),
		},
		Autosave: AutosaveConfig{
			FixedInterval:   v.GetDuration("autosave.fixedInterval"),
			InactivityDelay: v.GetDuration("autosave.inactivityDelay"),
			MinChanges:      v.GetInt("autosave.minChanges"),
			Debounce:        v.GetDuration("autosave.debounce"),
			SavedResetDelay: v.GetDuration("autosave.savedResetDelay"),
		},
		Drafts: DraftsConfig{
			KeepLatest:      v.GetInt("drafts.keepLatest"),
			MaxPayloadBytes: v.GetInt("drafts.maxPayloadBytes"),
			PurgeAfter:      v.GetDuration("drafts.purgeAfter"),
		},
		Client: ClientConfig{
			BaseURL: v.GetString("client.baseURL"),
			Token:   v.GetString("client.token"),
			Timeout: v.GetDuration("client.timeout"),
		},
	}
}
