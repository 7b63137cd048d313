package pkg

import (
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anthonyquizon/fswatch/pkg/client"
	"github.com/anthonyquizon/fswatch/pkg/filehandler"
	"github.com/anthonyquizon/fswatch/pkg/server"
	"github.com/anthonyquizon/fswatch/pkg/watcher"
)

// TestIntegration runs the whole pipe: a watcher polling a served
// root, the server streaming the change, the client fetching the new
// content into its own root.
func TestIntegration(t *testing.T) {
	t.Log("Start integration test ...")
	lg := log.New(os.Stdout, "integration --> ", 1|4)

	serverRoot := t.TempDir()
	clientRoot := t.TempDir()

	seeded := filepath.Join(serverRoot, "data.txt")
	require.NoError(t, os.WriteFile(seeded, []byte("v1"), 0o644), "seed served file.")

	serverHandler, err := filehandler.NewHandler(serverRoot, lg)
	require.NoError(t, err, "server file handler !")

	address := "localhost:19901"
	s := server.NewServer(address, serverRoot, nil, nil, lg, serverHandler)

	w, err := watcher.New()
	require.NoError(t, err, "new watcher error !")
	defer w.Close()
	require.NoError(t, w.Add(serverRoot, true), "register served root !")

	exit := make(chan struct{})
	go func() {
		for {
			select {
			case <-exit:
				return
			default:
				e, ok := w.Poll(200 * time.Millisecond)
				if !ok {
					continue
				}
				serverHandler.Apply(e)
				s.Notify(e)
			}
		}
	}()

	go func() {
		err := s.Run()
		require.NoError(t, err, "server error !")
	}()

	time.Sleep(time.Second)

	clientHandler, err := filehandler.NewHandler(clientRoot, lg)
	require.NoError(t, err, "client file handler !")

	c := client.NewClient(address, "", "", nil, lg, clientHandler)
	go func() {
		_ = c.Run()
	}()

	time.Sleep(time.Second)

	// a modification on the served root must end up mirrored on the
	// client side
	require.NoError(t, os.WriteFile(seeded, []byte("v2 payload"), 0o644), "modify served file.")

	mirrored := filepath.Join(clientRoot, "data.txt")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(mirrored)
		return err == nil && string(data) == "v2 payload"
	}, 10*time.Second, 100*time.Millisecond, "client mirrors the modification")

	require.NoError(t, c.Exit(), "client exit !!")
	require.NoError(t, s.Exit(), "server exit !!")
	close(exit)

	t.Log("Integration test done.")
}
