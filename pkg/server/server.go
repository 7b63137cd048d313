package server

import (
	"crypto/tls"
	"log"
	"net"
	"strings"

	"github.com/anthonyquizon/fswatch/pkg/filehandler"
	"github.com/anthonyquizon/fswatch/pkg/model"
	"github.com/anthonyquizon/fswatch/pkg/user"
)

type ServerTLS struct {
	Cert string
	Key  string
}

// Server streams change notifications for one watched root to
// subscribed clients and serves their file requests. It is fed from
// the consumer poll loop through Notify.
type Server struct {
	address string
	path    string
	tlsCfg  *ServerTLS
	um      *user.UserManager
	logger  *log.Logger
	f       *filehandler.Handler
	e       chan model.Event
	exit    chan struct{}
}

func NewServer(address string, path string, tlsCfg *ServerTLS, um *user.UserManager, logger *log.Logger, f *filehandler.Handler) *Server {
	s := Server{
		address: address,
		path:    path,
		tlsCfg:  tlsCfg,
		um:      um,
		logger:  logger,
		f:       f,
		e:       make(chan model.Event, 64),
		exit:    make(chan struct{}),
	}

	return &s
}

func (s *Server) Exit() error {
	close(s.exit)
	return nil
}

// ignoredName filters the editor and stream droppings nobody wants
// broadcast.
func ignoredName(name string) bool {
	return strings.Contains(name, "swp") ||
		strings.Contains(name, ".goutputstream") ||
		strings.HasSuffix(name, "~")
}

// Notify hands one polled event over to the subscribers. It never
// blocks the consumer loop; when the backlog is full the newest
// notifications are dropped.
func (s *Server) Notify(e model.Event) {
	if ignoredName(e.Name) {
		return
	}

	select {
	case s.e <- e:
	default:
		s.logger.Printf("server :: notification backlog full, dropping %s\n", e)
	}
}

func (s *Server) Run() error {
	var l net.Listener
	var err error

	if s.tlsCfg != nil {
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(s.tlsCfg.Cert, s.tlsCfg.Key)
		if err != nil {
			return err
		}
		l, err = tls.Listen("tcp", s.address, &tls.Config{Certificates: []tls.Certificate{cert}})
	} else {
		l, err = net.Listen("tcp", s.address)
	}
	if err != nil {
		return err
	}

	go func() {
		<-s.exit
		_ = l.Close()
	}()

	host, port, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		return err
	}

	s.logger.Printf("server :: running on host %s, port %s ...\n", host, port)

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-s.exit:
				return nil
			default:
				return err
			}
		}

		s.logger.Printf("server :: accept connection --> {remote-address: %s}\n", conn.RemoteAddr().String())

		go func(conn net.Conn) {
			username, err := s.joinHandler(conn)
			if err != nil {
				s.logger.Printf("server error :: %v\n", err)
				_ = conn.Close()
				return
			}
			s.handleAuthenticatedConnection(conn, username)
		}(conn)
	}
}
