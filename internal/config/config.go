package config

import (
	"encoding/base64"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"bitbucket.org/calmisland/playstore-verifier/pkg/playstore"
	"github.com/calmisland/go-errors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no path is given
const DefaultConfigFile = "configs/config.yaml"

// Config is the server configuration
type Config struct {
	Stage string `yaml:"stage"`

	Server    ServerConfig    `yaml:"server"`
	PlayStore PlayStoreConfig `yaml:"play_store"`
	Android   AndroidConfig   `yaml:"android"`
	Slack     SlackConfig     `yaml:"slack"`
	Sentry    SentryConfig    `yaml:"sentry"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	ListenAddress string `yaml:"listen_address"`
}

// PlayStoreConfig configures the Google Play Developer API client.
// Key material is looked up in order: JSONKey, JSONKeyFile, KeyFile.
type PlayStoreConfig struct {
	ApplicationName    string `yaml:"application_name"`
	ApplicationVersion string `yaml:"application_version"`
	Issuer             string `yaml:"issuer"`
	Subject            string `yaml:"subject"`

	// JSONKey is a base64 encoded service account JSON key
	JSONKey     string `yaml:"json_key"`
	JSONKeyFile string `yaml:"json_key_file"`
	// KeyFile is a .p12 (decrypted with KeySecret) or PEM private key
	KeyFile   string `yaml:"key_file"`
	KeySecret string `yaml:"key_secret"`

	TokenURL string `yaml:"token_url"`
	Endpoint string `yaml:"endpoint"`
}

// AndroidConfig configures where the application public keys come from
type AndroidConfig struct {
	// KeySource is "static" or "dynamodb"
	KeySource  string            `yaml:"key_source"`
	Region     string            `yaml:"region"`
	Table      string            `yaml:"table"`
	PublicKeys map[string]string `yaml:"public_keys"`
}

// SlackConfig json configuration
type SlackConfig struct {
	PaymentChannel string `yaml:"payment_channel"`
}

// SentryConfig configures error reporting
type SentryConfig struct {
	DSN string `yaml:"dsn"`
}

var envOverrides = []struct {
	name  string
	apply func(config *Config, value string)
}{
	{"SERVER_STAGE", func(c *Config, v string) { c.Stage = v }},
	{"SERVER_LISTEN_ADDRESS", func(c *Config, v string) { c.Server.ListenAddress = v }},
	{"PLAYSTORE_APPLICATION_NAME", func(c *Config, v string) { c.PlayStore.ApplicationName = v }},
	{"PLAYSTORE_APPLICATION_VERSION", func(c *Config, v string) { c.PlayStore.ApplicationVersion = v }},
	{"PLAYSTORE_ISSUER", func(c *Config, v string) { c.PlayStore.Issuer = v }},
	{"GOOGLE_PLAYSTORE_JSON_KEY", func(c *Config, v string) { c.PlayStore.JSONKey = v }},
	{"PLAYSTORE_JSON_KEY_FILE", func(c *Config, v string) { c.PlayStore.JSONKeyFile = v }},
	{"PLAYSTORE_KEY_FILE", func(c *Config, v string) { c.PlayStore.KeyFile = v }},
	{"PLAYSTORE_KEY_SECRET", func(c *Config, v string) { c.PlayStore.KeySecret = v }},
	{"ANDROID_KEYS_SOURCE", func(c *Config, v string) { c.Android.KeySource = v }},
	{"ANDROID_KEYS_REGION", func(c *Config, v string) { c.Android.Region = v }},
	{"ANDROID_KEYS_TABLE", func(c *Config, v string) { c.Android.Table = v }},
	{"PAYMENT_CHANNEL_SLACK_HOOK_URL", func(c *Config, v string) { c.Slack.PaymentChannel = v }},
	{"SENTRY_DSN", func(c *Config, v string) { c.Sentry.DSN = v }},
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Stage: "local",
		Server: ServerConfig{
			ListenAddress: ":8092",
		},
		Android: AndroidConfig{
			KeySource: "static",
			Region:    "ap-northeast-1",
			Table:     "iap_platform_android",
		},
	}
}

// Load reads .env, then the YAML file at path (optional), then the environment
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using the process environment")
	}

	config := Default()

	if len(path) == 0 {
		path = DefaultConfigFile
	}

	data, err := ioutil.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("could not parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		log.WithField("path", path).Warn("config file not found, using defaults and environment")
	default:
		return nil, err
	}

	for _, override := range envOverrides {
		if value, ok := os.LookupEnv(override.name); ok {
			override.apply(config, value)
		}
	}

	return config, nil
}

// Validate checks the configuration needed to start the server
func (config *Config) Validate() error {
	if len(config.Server.ListenAddress) == 0 {
		return errors.New("server.listen_address is mandatory")
	}

	if len(config.PlayStore.ApplicationName) == 0 || len(config.PlayStore.ApplicationVersion) == 0 {
		return errors.New("play_store.application_name and play_store.application_version are mandatory")
	}

	if len(config.PlayStore.JSONKey) == 0 && len(config.PlayStore.JSONKeyFile) == 0 && len(config.PlayStore.KeyFile) == 0 {
		return errors.New("one of play_store.json_key, play_store.json_key_file or play_store.key_file is mandatory")
	}

	if len(config.PlayStore.KeyFile) > 0 && len(config.PlayStore.JSONKey) == 0 && len(config.PlayStore.JSONKeyFile) == 0 && len(config.PlayStore.Issuer) == 0 {
		return errors.New("play_store.issuer is mandatory with play_store.key_file")
	}

	switch config.Android.KeySource {
	case "static":
	case "dynamodb":
		if len(config.Android.Region) == 0 || len(config.Android.Table) == 0 {
			return errors.New("android.region and android.table are mandatory with the dynamodb key source")
		}
	default:
		return errors.Errorf("unknown android.key_source: %s", config.Android.KeySource)
	}

	return nil
}

// ClientConfig resolves the key material and builds the play store client configuration
func (config *PlayStoreConfig) ClientConfig() (*playstore.ClientConfig, error) {
	clientConfig := &playstore.ClientConfig{
		ApplicationName:    config.ApplicationName,
		ApplicationVersion: config.ApplicationVersion,
		Issuer:             config.Issuer,
		Subject:            config.Subject,
		TokenURL:           config.TokenURL,
		Endpoint:           config.Endpoint,
	}

	jsonKey, err := config.jsonKey()
	if err != nil {
		return nil, err
	}

	switch {
	case jsonKey != nil:
		key, err := playstore.ParseJSONKey(jsonKey)
		if err != nil {
			return nil, err
		}
		clientConfig.SigningKey = key.SigningKey
		if len(clientConfig.Issuer) == 0 {
			clientConfig.Issuer = key.ClientEmail
		}
	case len(config.KeyFile) > 0:
		data, err := ioutil.ReadFile(config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("could not read key file: %w", err)
		}

		if strings.EqualFold(filepath.Ext(config.KeyFile), ".pem") {
			clientConfig.SigningKey, err = playstore.ParsePEMKey(data)
		} else {
			secret := config.KeySecret
			if len(secret) == 0 {
				secret = playstore.DefaultP12Secret
			}
			clientConfig.SigningKey, err = playstore.ParseP12Key(data, secret)
		}
		if err != nil {
			return nil, err
		}
	}

	return clientConfig, nil
}

func (config *PlayStoreConfig) jsonKey() ([]byte, error) {
	if len(config.JSONKey) > 0 {
		jsonKey, err := base64.StdEncoding.DecodeString(config.JSONKey)
		if err != nil {
			return nil, fmt.Errorf("could not decode play_store.json_key: %w", err)
		}
		return jsonKey, nil
	}

	if len(config.JSONKeyFile) > 0 {
		jsonKey, err := ioutil.ReadFile(config.JSONKeyFile)
		if err != nil {
			return nil, fmt.Errorf("could not read json key file: %w", err)
		}
		return jsonKey, nil
	}

	return nil, nil
}
