package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anthonyquizon/fswatch/pkg/filehandler"
	"github.com/anthonyquizon/fswatch/pkg/model"
	"github.com/anthonyquizon/fswatch/pkg/protocol"
)

var (
	lg *log.Logger
)

func TestMain(m *testing.M) {
	lg = log.New(os.Stdout, "test --> ", 1|4)
	m.Run()
}

func TestIgnoredName(t *testing.T) {
	require.True(t, ignoredName(".x.txt.swp"))
	require.True(t, ignoredName(".goutputstream-ABC"))
	require.True(t, ignoredName("x.txt~"))
	require.False(t, ignoredName("x.txt"))
}

func TestServer_NotifyNeverBlocks(t *testing.T) {
	s := NewServer("localhost:0", ".", nil, nil, lg, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// no subscriber is draining; everything past the backlog
		// capacity must be dropped, not waited on
		for i := 0; i < 500; i++ {
			s.Notify(model.Event{Name: fmt.Sprintf("f-%d.txt", i), Op: model.Modified})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked the producer")
	}
}

func TestServer_JoinWithoutUserManager(t *testing.T) {
	handler, err := filehandler.NewHandler(t.TempDir(), lg)
	require.NoError(t, err, "file handler on empty directory.")

	address := "localhost:19801"
	s := NewServer(address, ".", nil, nil, lg, handler)
	defer s.Exit()

	go func() {
		err := s.Run()
		require.NoError(t, err, "server run.")
	}()

	time.Sleep(200 * time.Millisecond)

	conn, err := net.Dial("tcp", address)
	require.NoError(t, err, "dial server.")
	defer conn.Close()

	joinPayload, _ := json.Marshal(protocol.JoinPayload{})
	req, _ := json.Marshal(protocol.Data{
		Sec:     0,
		Time:    time.Now(),
		Type:    protocol.Join,
		Payload: joinPayload,
	})
	req = append(req, '@')
	_, err = conn.Write(req)
	require.NoError(t, err, "send join frame.")

	r := bufio.NewReader(conn)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	data, err := r.ReadBytes('@')
	require.NoError(t, err, "read ack frame.")

	res := protocol.Data{}
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &res))
	require.Equal(t, protocol.AckJoin, res.Type)

	ack := protocol.AckJoinPayload{}
	require.NoError(t, json.Unmarshal(res.Payload, &ack))
	require.True(t, ack.Ok, "join accepted when no user manager is configured.")
}
