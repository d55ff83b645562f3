package config

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	v = viper.GetViper()
)

func init() {
	v.SetConfigName("fwdask")
	v.AddConfigPath("/etc/fwdask/")
	v.AddConfigPath("$HOME/.fwdask/")
	v.AddConfigPath(".")
}

var (
	global    = &Config{}
	globalMux sync.RWMutex
)

func Global() *Config {
	globalMux.RLock()
	defer globalMux.RUnlock()

	cfg := &Config{}
	*cfg = *global
	return cfg
}

func Set(c *Config) {
	globalMux.Lock()
	defer globalMux.Unlock()

	global = c
}

func OnUpdate(f func(c *Config) error) error {
	globalMux.Lock()
	defer globalMux.Unlock()

	return f(global)
}

type LogConfig struct {
	Output   string             `yaml:",omitempty" json:"output,omitempty"`
	Level    string             `yaml:",omitempty" json:"level,omitempty"`
	Format   string             `yaml:",omitempty" json:"format,omitempty"`
	Rotation *LogRotationConfig `yaml:",omitempty" json:"rotation,omitempty"`
}

type LogRotationConfig struct {
	// MaxSize is the maximum size in megabytes of the log file before it gets
	// rotated. It defaults to 100 megabytes.
	MaxSize int `yaml:"maxSize,omitempty" json:"maxSize,omitempty"`
	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int `yaml:"maxAge,omitempty" json:"maxAge,omitempty"`
	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int  `yaml:"maxBackups,omitempty" json:"maxBackups,omitempty"`
	LocalTime  bool `yaml:"localTime,omitempty" json:"localTime,omitempty"`
	Compress   bool `yaml:"compress,omitempty" json:"compress,omitempty"`
}

type LoggerConfig struct {
	Name string     `json:"name"`
	Log  *LogConfig `yaml:",omitempty" json:"log,omitempty"`
}

type APIConfig struct {
	Addr       string      `json:"addr"`
	PathPrefix string      `yaml:"pathPrefix,omitempty" json:"pathPrefix,omitempty"`
	AccessLog  bool        `yaml:"accesslog,omitempty" json:"accesslog,omitempty"`
	Auth       *AuthConfig `yaml:",omitempty" json:"auth,omitempty"`
	TLS        *TLSConfig  `yaml:",omitempty" json:"tls,omitempty"`
	// CORS lists the allowed origins. Empty disables CORS handling.
	CORS []string `yaml:"cors,omitempty" json:"cors,omitempty"`
}

type MetricsConfig struct {
	Addr string      `json:"addr"`
	Path string      `yaml:",omitempty" json:"path,omitempty"`
	Auth *AuthConfig `yaml:",omitempty" json:"auth,omitempty"`
}

type AuthConfig struct {
	Username string `json:"username"`
	Password string `yaml:",omitempty" json:"password,omitempty"`
}

type TLSConfig struct {
	CertFile   string `yaml:"certFile,omitempty" json:"certFile,omitempty"`
	KeyFile    string `yaml:"keyFile,omitempty" json:"keyFile,omitempty"`
	CAFile     string `yaml:"caFile,omitempty" json:"caFile,omitempty"`
	Secure     bool   `yaml:",omitempty" json:"secure,omitempty"`
	ServerName string `yaml:"serverName,omitempty" json:"serverName,omitempty"`

	// for auto-generated default certificate.
	Validity     time.Duration `yaml:",omitempty" json:"validity,omitempty"`
	CommonName   string        `yaml:"commonName,omitempty" json:"commonName,omitempty"`
	Organization string        `yaml:",omitempty" json:"organization,omitempty"`
}

type PluginConfig struct {
	Type    string        `json:"type"`
	Addr    string        `json:"addr"`
	TLS     *TLSConfig    `yaml:",omitempty" json:"tls,omitempty"`
	Timeout time.Duration `yaml:",omitempty" json:"timeout,omitempty"`
	Token   string        `yaml:",omitempty" json:"token,omitempty"`
}

type FileLoader struct {
	Path string `json:"path"`
}

type RedisLoader struct {
	Addr     string `json:"addr"`
	DB       int    `yaml:",omitempty" json:"db,omitempty"`
	Username string `yaml:",omitempty" json:"username,omitempty"`
	Password string `yaml:",omitempty" json:"password,omitempty"`
	Key      string `yaml:",omitempty" json:"key,omitempty"`
	Type     string `yaml:",omitempty" json:"type,omitempty"`
}

type HTTPLoader struct {
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:",omitempty" json:"timeout,omitempty"`
}

type EngineConfig struct {
	// ExemptEthTypes accepts numbers (0x0806, 2054) or names (arp, lldp).
	ExemptEthTypes []string      `yaml:"exemptEthTypes,omitempty" json:"exemptEthTypes,omitempty"`
	ConfirmTimeout time.Duration `yaml:"confirmTimeout,omitempty" json:"confirmTimeout,omitempty"`
	CacheTTL       time.Duration `yaml:"cacheTTL,omitempty" json:"cacheTTL,omitempty"`
	// Evaluators and Recorders reference named objects in consultation order.
	// Empty means all of them in configuration order.
	Evaluators []string `yaml:",omitempty" json:"evaluators,omitempty"`
	Recorders  []string `yaml:",omitempty" json:"recorders,omitempty"`
}

type OpinionConfig struct {
	WantsFlow  bool    `yaml:"wantsFlow" json:"wantsFlow"`
	Confidence float64 `json:"confidence"`
}

type ListEvaluatorConfig struct {
	Whitelist  bool          `yaml:",omitempty" json:"whitelist,omitempty"`
	Matchers   []string      `yaml:",omitempty" json:"matchers,omitempty"`
	Reload     time.Duration `yaml:",omitempty" json:"reload,omitempty"`
	File       *FileLoader   `yaml:",omitempty" json:"file,omitempty"`
	Redis      *RedisLoader  `yaml:",omitempty" json:"redis,omitempty"`
	HTTP       *HTTPLoader   `yaml:"http,omitempty" json:"http,omitempty"`
	Confidence float64       `yaml:",omitempty" json:"confidence,omitempty"`
	// Unmatched is the confidence of the opposite opinion given to unmatched flows.
	Unmatched float64 `yaml:",omitempty" json:"unmatched,omitempty"`
}

type HistoryEvaluatorConfig struct {
	Base        float64        `yaml:",omitempty" json:"base,omitempty"`
	Step        float64        `yaml:",omitempty" json:"step,omitempty"`
	Max         float64        `yaml:",omitempty" json:"max,omitempty"`
	UnknownPeer *OpinionConfig `yaml:"unknownPeer,omitempty" json:"unknownPeer,omitempty"`
}

type DNSEvaluatorConfig struct {
	Nameservers []string      `json:"nameservers"`
	Timeout     time.Duration `yaml:",omitempty" json:"timeout,omitempty"`
	CacheTTL    time.Duration `yaml:"cacheTTL,omitempty" json:"cacheTTL,omitempty"`
	Whitelist   bool          `yaml:",omitempty" json:"whitelist,omitempty"`
	Domains     []string      `yaml:",omitempty" json:"domains,omitempty"`
	Confidence  float64       `yaml:",omitempty" json:"confidence,omitempty"`
}

type EvaluatorConfig struct {
	Name     string                  `json:"name"`
	Constant *OpinionConfig          `yaml:",omitempty" json:"constant,omitempty"`
	List     *ListEvaluatorConfig    `yaml:",omitempty" json:"list,omitempty"`
	History  *HistoryEvaluatorConfig `yaml:",omitempty" json:"history,omitempty"`
	DNS      *DNSEvaluatorConfig     `yaml:"dns,omitempty" json:"dns,omitempty"`
	Plugin   *PluginConfig           `yaml:",omitempty" json:"plugin,omitempty"`
	// Confidence attached to plugin answers.
	Confidence float64 `yaml:",omitempty" json:"confidence,omitempty"`
}

type RedisStoreConfig struct {
	Addr     string `json:"addr"`
	DB       int    `yaml:",omitempty" json:"db,omitempty"`
	Username string `yaml:",omitempty" json:"username,omitempty"`
	Password string `yaml:",omitempty" json:"password,omitempty"`
	Key      string `yaml:",omitempty" json:"key,omitempty"`
}

type ClickHouseStoreConfig struct {
	Addr        string        `json:"addr"`
	Username    string        `yaml:",omitempty" json:"username,omitempty"`
	Password    string        `yaml:",omitempty" json:"password,omitempty"`
	Database    string        `yaml:",omitempty" json:"database,omitempty"`
	Compress    bool          `yaml:",omitempty" json:"compress,omitempty"`
	TLS         *TLSConfig    `yaml:",omitempty" json:"tls,omitempty"`
	DialTimeout time.Duration `yaml:"dialTimeout,omitempty" json:"dialTimeout,omitempty"`
	CreateTable bool          `yaml:"createTable,omitempty" json:"createTable,omitempty"`
}

// StoreConfig selects the flow-record store. Without a backend flows are kept in memory.
type StoreConfig struct {
	Redis      *RedisStoreConfig      `yaml:",omitempty" json:"redis,omitempty"`
	ClickHouse *ClickHouseStoreConfig `yaml:"clickhouse,omitempty" json:"clickhouse,omitempty"`
}

type WebSocketConfirmConfig struct {
	WriteTimeout time.Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	PingInterval time.Duration `yaml:"pingInterval,omitempty" json:"pingInterval,omitempty"`
}

type AutoConfirmConfig struct {
	Threshold float64 `yaml:",omitempty" json:"threshold,omitempty"`
	// Default is the answer when the consensus is missing or too weak: forward or drop.
	Default string `yaml:",omitempty" json:"default,omitempty"`
}

// ConfirmConfig selects how the operator is asked. The WebSocket console is the default.
type ConfirmConfig struct {
	WebSocket *WebSocketConfirmConfig `yaml:"websocket,omitempty" json:"websocket,omitempty"`
	Auto      *AutoConfirmConfig      `yaml:",omitempty" json:"auto,omitempty"`
	Console   bool                    `yaml:",omitempty" json:"console,omitempty"`
}

type RecorderConfig struct {
	Name   string         `json:"name"`
	File   *FileRecorder  `yaml:",omitempty" json:"file,omitempty"`
	TCP    *TCPRecorder   `yaml:"tcp,omitempty" json:"tcp,omitempty"`
	HTTP   *HTTPRecorder  `yaml:"http,omitempty" json:"http,omitempty"`
	Redis  *RedisRecorder `yaml:",omitempty" json:"redis,omitempty"`
	Plugin *PluginConfig  `yaml:",omitempty" json:"plugin,omitempty"`
}

type FileRecorder struct {
	Path     string             `json:"path"`
	Sep      string             `yaml:",omitempty" json:"sep,omitempty"`
	Rotation *LogRotationConfig `yaml:",omitempty" json:"rotation,omitempty"`
}

type TCPRecorder struct {
	Addr    string        `json:"addr"`
	Timeout time.Duration `json:"timeout"`
}

type HTTPRecorder struct {
	URL     string            `yaml:"url" json:"url"`
	Timeout time.Duration     `yaml:",omitempty" json:"timeout,omitempty"`
	Header  map[string]string `yaml:",omitempty" json:"header,omitempty"`
}

type RedisRecorder struct {
	Addr     string `json:"addr"`
	DB       int    `yaml:",omitempty" json:"db,omitempty"`
	Username string `yaml:",omitempty" json:"username,omitempty"`
	Password string `yaml:",omitempty" json:"password,omitempty"`
	Key      string `yaml:",omitempty" json:"key,omitempty"`
	Type     string `yaml:",omitempty" json:"type,omitempty"`
	// MaxLen bounds the number of records kept under Key.
	MaxLen int64 `yaml:"maxLen,omitempty" json:"maxLen,omitempty"`
}

type NATSConfig struct {
	URL      string        `yaml:"url" json:"url"`
	Subject  string        `yaml:",omitempty" json:"subject,omitempty"`
	Queue    string        `yaml:",omitempty" json:"queue,omitempty"`
	Username string        `yaml:",omitempty" json:"username,omitempty"`
	Password string        `yaml:",omitempty" json:"password,omitempty"`
	Token    string        `yaml:",omitempty" json:"token,omitempty"`
	Timeout  time.Duration `yaml:",omitempty" json:"timeout,omitempty"`
	Rate     float64       `yaml:",omitempty" json:"rate,omitempty"`
	Burst    int           `yaml:",omitempty" json:"burst,omitempty"`
}

type Config struct {
	Engine     *EngineConfig      `yaml:",omitempty" json:"engine,omitempty"`
	Evaluators []*EvaluatorConfig `yaml:",omitempty" json:"evaluators,omitempty"`
	Store      *StoreConfig       `yaml:",omitempty" json:"store,omitempty"`
	Confirm    *ConfirmConfig     `yaml:",omitempty" json:"confirm,omitempty"`
	Recorders  []*RecorderConfig  `yaml:",omitempty" json:"recorders,omitempty"`
	Loggers    []*LoggerConfig    `yaml:",omitempty" json:"loggers,omitempty"`
	NATS       *NATSConfig        `yaml:"nats,omitempty" json:"nats,omitempty"`
	Log        *LogConfig         `yaml:",omitempty" json:"log,omitempty"`
	API        *APIConfig         `yaml:",omitempty" json:"api,omitempty"`
	Metrics    *MetricsConfig     `yaml:",omitempty" json:"metrics,omitempty"`
}

func (c *Config) Load() error {
	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(c)
}

func (c *Config) Read(r io.Reader) error {
	if err := v.ReadConfig(r); err != nil {
		return err
	}

	return v.Unmarshal(c)
}

func (c *Config) ReadFile(file string) error {
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(c)
}

func (c *Config) Write(w io.Writer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case "yaml":
		fallthrough
	default:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		enc.SetIndent(2)

		return enc.Encode(c)
	}
}
