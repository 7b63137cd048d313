package pkg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	content := `
type: server
address: "localhost:9801"
path: "/srv/data"
recursive: true
poll_timeout_ms: 250
server:
  pw_file: "/srv/pwfile"
  tls:
    key: "/srv/tls.key"
    cert: "/srv/tls.crt"
client:
  tls: true
  username: "user"
  password: "pass"
`
	file := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644), "write config file.")

	cfg, err := ReadConfig(file)
	require.NoError(t, err, "read configuration.")

	require.Equal(t, ServerType, cfg.ServiceType)
	require.Equal(t, "localhost:9801", cfg.Address)
	require.Equal(t, "/srv/data", cfg.Path)
	require.True(t, cfg.Recursive)
	require.Equal(t, 250*time.Millisecond, cfg.PollTimeout())
	require.Equal(t, "/srv/pwfile", cfg.Server.PwFile)
	require.Equal(t, "/srv/tls.key", cfg.Server.TLS.Key)
	require.Equal(t, "/srv/tls.crt", cfg.Server.TLS.Cert)
	require.True(t, cfg.Client.TLS)
	require.Equal(t, "user", cfg.Client.Username)
}

func TestReadConfig_Defaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(file, []byte("address: \"localhost:0\"\n"), 0o644), "write config file.")

	cfg, err := ReadConfig(file)
	require.NoError(t, err, "read configuration.")

	require.Equal(t, WatchType, cfg.ServiceType)
	require.Equal(t, ".", cfg.Path)
	require.Equal(t, time.Second, cfg.PollTimeout())
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err, "missing configuration file.")
}
