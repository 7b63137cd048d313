package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/anthonyquizon/fswatch/pkg/protocol"
)

var (
	ErrClientWritePacket = errors.New("failed to write packet to connection")
	ErrClientReadPacket  = errors.New("failed to read packet from connection")
	ErrClientJoinDenied  = errors.New("join denied by server")
)

// join performs the authentication handshake on a fresh connection.
// Every connection starts with one, even when the server runs
// without a user manager.
func (c *Client) join(conn net.Conn, r *bufio.Reader) error {
	joinPayload, _ := json.Marshal(protocol.JoinPayload{
		Username: c.username,
		Password: c.password,
	})
	req := protocol.Data{
		Sec:     0,
		Time:    time.Now(),
		Type:    protocol.Join,
		Payload: joinPayload,
	}

	rb, err := json.Marshal(req)
	if err != nil {
		return err
	}

	rb = append(rb, '@')
	n, err := conn.Write(rb)
	if err != nil || n != len(rb) {
		return errors.Join(ErrClientWritePacket, err)
	}

	err = conn.SetReadDeadline(time.Now().Add(time.Second * 10))
	if err != nil {
		return err
	}

	data, err := r.ReadBytes('@')
	if err != nil {
		return errors.Join(ErrClientReadPacket, err)
	}

	res := protocol.Data{}
	err = json.Unmarshal(data[:len(data)-1], &res)
	if err != nil {
		return err
	}

	ack := protocol.AckJoinPayload{}
	err = json.Unmarshal(res.Payload, &ack)
	if err != nil {
		return err
	}

	if !ack.Ok {
		return errors.Join(ErrClientJoinDenied, fmt.Errorf("%s", ack.Msg))
	}

	return nil
}
