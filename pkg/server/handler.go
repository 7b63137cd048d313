package server

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/anthonyquizon/fswatch/pkg/model"
	"github.com/anthonyquizon/fswatch/pkg/protocol"
)

var (
	ErrServerReadPacket            = errors.New("failed to read packet from connection")
	ErrServerUnmarshalPacket       = errors.New("failed to unmarshal packet data")
	ErrServerWritePacket           = errors.New("failed to write packet to connection")
	ErrServerInconsistentWrite     = errors.New("inconsistent data write: bytes written mismatch")
	ErrServerAuthenticationFailed  = errors.New("authentication failed")
	ErrServerInvalidPacketType     = errors.New("invalid packet type received")
	ErrServerMarshalResponsePacket = errors.New("failed to marshal response packet data")
)

func writeFrame(conn net.Conn, data *protocol.Data) error {
	dataByte, err := json.Marshal(data)
	if err != nil {
		return errors.Join(ErrServerMarshalResponsePacket, err)
	}
	dataByte = append(dataByte, '@')

	n, err := conn.Write(dataByte)
	if err != nil {
		return errors.Join(ErrServerWritePacket, err)
	}
	if n != len(dataByte) {
		subErr := fmt.Errorf("%d != %d", n, len(dataByte))
		return errors.Join(ErrServerInconsistentWrite, subErr)
	}

	return nil
}

func (s *Server) joinHandler(conn net.Conn) (string, error) {
	r := bufio.NewReader(conn)
	data, err := r.ReadBytes('@')
	if err != nil {
		return "", errors.Join(ErrServerReadPacket, err)
	}
	req := protocol.Data{}
	err = json.Unmarshal(data[:len(data)-1], &req)
	if err != nil {
		return "", errors.Join(ErrServerUnmarshalPacket, err)
	}

	var username string
	var connIP string
	ackJoinPayload := &protocol.AckJoinPayload{Ok: false}

	if s.um == nil {
		ackJoinPayload.Ok = true
	} else if req.Type == protocol.Join {
		joinPayload := &protocol.JoinPayload{}
		err := json.Unmarshal(req.Payload, &joinPayload)
		if err != nil {
			ackJoinPayload.Msg = fmt.Sprintf("invalid payload. %v", err)
		} else if s.um.CheckUserPassword(joinPayload.Username, joinPayload.Password) {
			host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())

			if s.um.CheckUserIP(joinPayload.Username, host) {
				ackJoinPayload.Msg = "another system has logged in. if something is wrong call the server admin."
			} else {
				ackJoinPayload.Ok = true
				username = joinPayload.Username
				connIP = host
			}
		}
	} else {
		ackJoinPayload.Msg = "invalid packet type"
	}

	ackJoinBytes, _ := json.Marshal(ackJoinPayload)
	err = writeFrame(conn, &protocol.Data{
		Sec:     0,
		Time:    time.Now(),
		Type:    protocol.AckJoin,
		Payload: ackJoinBytes,
	})
	if err != nil {
		return "", err
	}

	if s.um != nil && username != "" && connIP != "" {
		s.um.SetAuthenticatedUser(username, connIP)
		return username, nil
	}

	if ackJoinPayload.Ok {
		return "", nil
	}

	subErr := fmt.Errorf("username: %q, ip: %q", username, connIP)
	return "", errors.Join(ErrServerAuthenticationFailed, subErr)
}

func (s *Server) handleAuthenticatedConnection(conn net.Conn, username string) {
	defer func() {
		_ = conn.Close()

		if s.um != nil {
			s.um.UnsetAuthenticatedUser(username)
		}
	}()

	r := bufio.NewReader(conn)

	for {
		data, err := r.ReadBytes('@')
		if err != nil {
			s.logger.Printf("server error :: %v\n", errors.Join(ErrServerReadPacket, err))
			return
		}

		req := protocol.Data{}
		err = json.Unmarshal(data[:len(data)-1], &req)
		if err != nil {
			s.logger.Printf("server error :: %v\n", errors.Join(ErrServerUnmarshalPacket, err))
			continue
		}

		switch req.Type {
		case protocol.SubscribePath:
			s.handleSubscription(conn)
		case protocol.RequestFile:
			if err := s.handleFileRequest(conn, &req); err != nil {
				s.logger.Println(err)
			}
		default:
			s.logger.Printf("server error :: %v\n", ErrServerInvalidPacketType)
			return
		}
	}
}

func (s *Server) handleSubscription(conn net.Conn) {
	for {
		select {
		case e := <-s.e:
			{
				// bare creations carry no content yet; subscribers act
				// on the modification that follows
				if e.Op == model.Created {
					continue
				}

				payload := protocol.FileMetaPayload{
					Path:       s.path,
					FileName:   e.Name,
					Op:         e.Op,
					ChangeDate: time.Now(),
				}
				if fMeta := s.f.GetMeta(e.Name); fMeta != nil {
					payload.Size = fMeta.Size
					payload.ChangeDate = fMeta.ModifyTime
				} else if !e.Op.Has(model.Deleted) && !e.Op.Has(model.Renamed) {
					s.logger.Printf("server error :: nil meta data !! for event %v\n", e)
					continue
				}

				resPayload, _ := json.Marshal(payload)
				err := writeFrame(conn, &protocol.Data{
					Sec:     0,
					Time:    time.Now(),
					Type:    protocol.ChangeNotify,
					Payload: resPayload,
				})
				if err != nil {
					s.logger.Printf("server error :: %v\n", err)
					continue
				}
			}
		case <-s.exit:
			_ = conn.Close()
			return
		}
	}
}

func (s *Server) handleFileRequest(conn net.Conn, req *protocol.Data) error {
	reqPayload := protocol.RequestFilePayload{}
	err := json.Unmarshal(req.Payload, &reqPayload)
	if err != nil {
		return fmt.Errorf("server error :: %v", errors.Join(ErrServerUnmarshalPacket, err))
	}

	data, err := s.f.ReadFile(reqPayload.FileName)
	if err != nil {
		return fmt.Errorf("server error :: %v", errors.Join(ErrServerReadPacket, err))
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("server error :: %v", errors.Join(ErrServerMarshalResponsePacket, err))
	}

	err = writeFrame(conn, &protocol.Data{
		Sec:     req.Sec + 1,
		Time:    time.Now(),
		Type:    protocol.ResponseFile,
		Heading: req.Heading,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("server error :: %v", err)
	}

	return nil
}
