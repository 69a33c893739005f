// Package config loads goanime-resolver settings from a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/alvarorichard/goanime-resolver/internal/provider"
)

const (
	// Name is the config file base name and the env prefix source
	Name = "goanime-resolver"
	// EnvPrefix prefixes every environment override, e.g. GOANIME_RESOLVER_SERVER_ADDR
	EnvPrefix = "GOANIME_RESOLVER"
)

// EnvKeyReplacer turns config keys into environment variable suffixes
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Config is the full application configuration
type Config struct {
	Debug     bool            `mapstructure:"debug"`
	Server    ServerConfig    `mapstructure:"server"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Slug      SlugConfig      `mapstructure:"slug"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Client    ClientConfig    `mapstructure:"client"`
}

// ServerConfig configures the resolution endpoint
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// HTTPConfig configures upstream requests
type HTTPConfig struct {
	UserAgent       string        `mapstructure:"user_agent"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	TokenTimeout    time.Duration `mapstructure:"token_timeout"`
}

// SlugConfig configures slug resolution and its cache
type SlugConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	TTL     time.Duration `mapstructure:"ttl"`
	// CachePath is a SQLite file; empty keeps the cache in memory
	CachePath string `mapstructure:"cache_path"`
}

// ProvidersConfig overrides upstream origins
type ProvidersConfig struct {
	AnimeFireBase    string `mapstructure:"animefire_base"`
	ConsumetBase     string `mapstructure:"consumet_base"`
	AnimesOnlineBase string `mapstructure:"animesonline_base"`
	SuperflixBase    string `mapstructure:"superflix_base"`
}

// ClientConfig configures the watch command
type ClientConfig struct {
	// Endpoint is the resolution server; empty resolves in-process
	Endpoint string `mapstructure:"endpoint"`
	// ProxyBase is the media relay used for sources that need header overrides
	ProxyBase string `mapstructure:"proxy_base"`
	Player    string `mapstructure:"player"`
}

// Field is one configurable key and its default
type Field struct {
	Key         string
	Value       any
	Description string
}

// Env returns the environment variable that overrides the field
func (f Field) Env() string {
	return EnvPrefix + "_" + strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
}

// Fields lists every key in file order
var Fields = []Field{
	{"debug", false, "Enable debug logging"},
	{"server.addr", ":8080", "Listen address of the resolution endpoint"},
	{"server.read_timeout", 15 * time.Second, "Maximum time to read a request"},
	{"server.write_timeout", 3 * time.Minute, "Maximum time to write a response; a resolution may walk every provider"},
	{"http.user_agent", "Mozilla/5.0", "User-Agent sent upstream"},
	{"http.provider_timeout", provider.DefaultProviderTimeout, "Timeout of each aggregator request"},
	{"http.token_timeout", provider.DefaultTokenTimeout, "Timeout of the AnimeFire token page fetch"},
	{"slug.timeout", 12 * time.Second, "Timeout of each search page fetch"},
	{"slug.ttl", 30 * time.Minute, "How long a resolved slug is reused"},
	{"slug.cache_path", "", "SQLite file for the slug cache; empty keeps it in memory"},
	{"providers.animefire_base", provider.AnimeFireOrigin, "AnimeFire origin"},
	{"providers.consumet_base", provider.ConsumetBase, "Consumet gogoanime base"},
	{"providers.animesonline_base", provider.AnimesOnlineCCOrigin, "Animes Online CC origin"},
	{"providers.superflix_base", provider.SuperflixOrigin, "Superflix origin"},
	{"client.endpoint", "", "Resolution server used by watch; empty resolves in-process"},
	{"client.proxy_base", "", "Media relay for sources that need header overrides"},
	{"client.player", "mpv", "Player binary"},
}

// Default returns the configuration with every default applied
func Default() Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return *cfg
}

// DefaultSearchPaths lists the directories searched for the config file
func DefaultSearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, Name))
	}
	return paths
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(Name)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(EnvKeyReplacer)
	v.AutomaticEnv()
	for _, f := range Fields {
		v.SetDefault(f.Key, f.Value)
	}
	return v
}

// Load reads the config file at path, or searches DefaultSearchPaths when
// path is empty. A missing file is only an error when path names it. The
// returned viper instance reports which file was read.
func Load(path string) (*Config, *viper.Viper, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		for _, p := range DefaultSearchPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, nil, errors.Wrap(err, "failed to read config")
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	c.Slug.CachePath = strings.TrimSpace(c.Slug.CachePath)
	c.Client.Endpoint = strings.TrimRight(strings.TrimSpace(c.Client.Endpoint), "/")
	c.Client.ProxyBase = strings.TrimSpace(c.Client.ProxyBase)
	c.Client.Player = strings.TrimSpace(c.Client.Player)
	c.Providers.AnimeFireBase = strings.TrimRight(c.Providers.AnimeFireBase, "/")
	c.Providers.ConsumetBase = strings.TrimRight(c.Providers.ConsumetBase, "/")
	c.Providers.AnimesOnlineBase = strings.TrimRight(c.Providers.AnimesOnlineBase, "/")
	c.Providers.SuperflixBase = strings.TrimRight(c.Providers.SuperflixBase, "/")
}

// Validate reports the first invalid value, checking keys in a fixed order
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	durations := []struct {
		key string
		d   time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"http.provider_timeout", c.HTTP.ProviderTimeout},
		{"http.token_timeout", c.HTTP.TokenTimeout},
		{"slug.timeout", c.Slug.Timeout},
		{"slug.ttl", c.Slug.TTL},
	}
	for _, v := range durations {
		if v.d <= 0 {
			return errors.Errorf("%s must be positive, got %s", v.key, v.d)
		}
	}

	urls := []struct {
		key string
		raw string
	}{
		{"providers.animefire_base", c.Providers.AnimeFireBase},
		{"providers.consumet_base", c.Providers.ConsumetBase},
		{"providers.animesonline_base", c.Providers.AnimesOnlineBase},
		{"providers.superflix_base", c.Providers.SuperflixBase},
	}
	for _, v := range urls {
		if err := validateURL(v.key, v.raw, false); err != nil {
			return err
		}
	}
	if err := validateURL("client.endpoint", c.Client.Endpoint, true); err != nil {
		return err
	}
	if c.Client.Player == "" {
		return errors.New("client.player must not be empty")
	}
	return nil
}

func validateURL(key, raw string, optional bool) error {
	if raw == "" {
		if optional {
			return nil
		}
		return errors.Errorf("%s must not be empty", key)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	return nil
}
