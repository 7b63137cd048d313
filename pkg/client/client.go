package client

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"log"
	"net"
	"time"

	"github.com/anthonyquizon/fswatch/pkg/filehandler"
	"github.com/anthonyquizon/fswatch/pkg/model"
	"github.com/anthonyquizon/fswatch/pkg/protocol"
)

// Client subscribes to a server's change stream and mirrors the
// reported changes into its own root through a file handler.
type Client struct {
	address  string
	username string
	password string
	tlsCfg   *tls.Config
	logger   *log.Logger
	f        *filehandler.Handler
	exit     chan struct{}
	download chan protocol.FileMetaPayload
}

func NewClient(address string, username string, password string, tlsCfg *tls.Config, logger *log.Logger, f *filehandler.Handler) *Client {
	c := Client{
		address:  address,
		username: username,
		password: password,
		tlsCfg:   tlsCfg,
		logger:   logger,
		f:        f,
		exit:     make(chan struct{}),
		download: make(chan protocol.FileMetaPayload, 1),
	}

	go c.downloader() // run download daemon

	return &c
}

func (c *Client) Exit() error {
	close(c.exit)
	return nil
}

func (c *Client) dial() (net.Conn, error) {
	if c.tlsCfg != nil {
		return tls.Dial("tcp", c.address, c.tlsCfg)
	}
	return net.Dial("tcp", c.address)
}

func (c *Client) Run() error {
	conn, err := c.dial()
	if err != nil {
		return err
	}

	c.logger.Printf("client :: connected to host %s ...\n", c.address)

	r := bufio.NewReader(conn)

	if err := c.join(conn, r); err != nil {
		_ = conn.Close()
		return err
	}

	subPayload, _ := json.Marshal(protocol.SubscribePathPayload{Path: "root", Id: "10"})
	req := protocol.Data{
		Sec:     0,
		Time:    time.Now(),
		Type:    protocol.SubscribePath,
		Payload: subPayload,
	}
	rb, err := json.Marshal(req)
	if err != nil {
		c.logger.Printf("client error :: got error %v on marshal subscribe request\n", err)
		return err
	}

	rb = append(rb, '@')
	n, err := conn.Write(rb)
	if n != len(rb) || err != nil {
		c.logger.Printf("client error :: send subscribe request %v\n", err)
		return err
	}

	for {
		select {
		case <-c.exit:
			return conn.Close()
		default:
			err = conn.SetReadDeadline(time.Now().Add(time.Second * 10))
			if err != nil {
				c.logger.Printf("client error :: got error %v\n", err)
				continue
			}
			data, err := r.ReadBytes('@')
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				c.logger.Printf("client error :: got error %v, %T...\n", err, err)
				continue
			}

			d := protocol.Data{}
			err = json.Unmarshal(data[:len(data)-1], &d)
			if err != nil {
				c.logger.Printf("client error :: got error %v on unmarshalling data %s\n", err, string(data))
				continue
			}

			if d.Type != protocol.ChangeNotify {
				c.logger.Printf("client :: got data %v !!\n", d)
				continue
			}

			dp := protocol.FileMetaPayload{}
			err = json.Unmarshal(d.Payload, &dp)
			if err != nil {
				c.logger.Printf("client :: error invalid file notify change payload %v\n", err)
				continue
			}

			c.logger.Printf("client :: got modification notification %s %s\n", dp.FileName, dp.Op)
			c.download <- dp
		}
	}
}

// downloader applies change notifications in the background: fetch
// the new content for modifications, drop local files for removals
// and renames.
func (c *Client) downloader() {
	for {
		select {
		case e := <-c.download:
			{
				if e.Op.Has(model.Modified) {
					if err := c.fetchFile(e); err != nil {
						c.logger.Printf("client worker :: %v\n", err)
					}
					continue
				}
				if e.Op.Has(model.Deleted) || e.Op.Has(model.Renamed) {
					c.logger.Printf("client worker :: remove file notification %s !!\n", e.FileName)
					err := c.f.RemoveFile(e.FileName)
					if err != nil {
						c.logger.Printf("client worker ERROR :: error %v on remove file %s !!\n", err, e.FileName)
					}
					continue
				}
			}
		case <-c.exit:
			return
		}
	}
}

func (c *Client) fetchFile(e protocol.FileMetaPayload) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	if err := c.join(conn, r); err != nil {
		return err
	}

	reqPayload, _ := json.Marshal(protocol.RequestFilePayload{
		Path:       e.Path,
		FileName:   e.FileName,
		ChangeDate: e.ChangeDate,
	})
	req := protocol.Data{
		Sec:     0,
		Time:    time.Now(),
		Type:    protocol.RequestFile,
		Payload: reqPayload,
	}

	rb, err := json.Marshal(req)
	if err != nil {
		return err
	}

	rb = append(rb, '@')
	n, err := conn.Write(rb)
	if n != len(rb) || err != nil {
		return err
	}

	err = conn.SetReadDeadline(time.Now().Add(time.Second * 30))
	if err != nil {
		return err
	}

	data, err := r.ReadBytes('@')
	if err != nil {
		return err
	}

	res := protocol.Data{}
	err = json.Unmarshal(data[:len(data)-1], &res)
	if err != nil {
		return err
	}

	var content []byte
	err = json.Unmarshal(res.Payload, &content)
	if err != nil {
		return err
	}

	return c.f.WriteFile(e.FileName, content)
}
