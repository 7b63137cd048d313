package pkg

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Type string

const (
	WatchType  Type = "watch"
	ServerType Type = "server"
	ClientType Type = "client"
)

type ServerTLSConfig struct {
	Key  string `yaml:"key"`
	Cert string `yaml:"cert"`
}

type ServerConfig struct {
	TLS    ServerTLSConfig `yaml:"tls"`
	PwFile string          `yaml:"pw_file"`
}

type ClientConfig struct {
	TLS      bool   `yaml:"tls"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Config struct {
	ServiceType   Type         `yaml:"type"`
	Address       string       `yaml:"address"`
	Path          string       `yaml:"path"`
	Recursive     bool         `yaml:"recursive"`
	PollTimeoutMS int          `yaml:"poll_timeout_ms"`
	Client        ClientConfig `yaml:"client"`
	Server        ServerConfig `yaml:"server"`
}

// PollTimeout returns the configured poll timeout, one second when
// unset.
func (c *Config) PollTimeout() time.Duration {
	if c.PollTimeoutMS <= 0 {
		return time.Second
	}
	return time.Duration(c.PollTimeoutMS) * time.Millisecond
}

func ReadConfig(file string) (*Config, error) {
	yfile, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	c := Config{}
	err = yaml.Unmarshal(yfile, &c)
	if err != nil {
		return nil, err
	}

	if c.ServiceType == "" {
		c.ServiceType = WatchType
	}
	if c.Path == "" {
		c.Path = "."
	}

	return &c, nil
}
