package protocol

import (
	"encoding/json"
	"time"

	"github.com/anthonyquizon/fswatch/pkg/model"
)

type Type int64

const (
	Join Type = iota + 1
	AckJoin
	SubscribePath
	ChangeNotify
	RequestFile
	ResponseFile
)

/*
	A  con <------------------------ Join   B
	A  AckJoin ------------------------->   B
	A  con <-------------- Subscribe path   B
	A  Change Notify ------------------->   B
	A      <---------------- Request File   B
	A  File ---------------------------->   B
*/

// Data
// General communication frame in given protocol. Frames are JSON
// encoded and delimited on the wire by '@'.
type Data struct {
	Sec     uint64                 `json:"sc"`
	Time    time.Time              `json:"t"`
	Type    Type                   `json:"tp"`
	Heading map[string]interface{} `json:"h"`
	Payload json.RawMessage        `json:"p"`
}

type JoinPayload struct {
	Username string `json:"u"`
	Password string `json:"pw"`
}

type AckJoinPayload struct {
	Ok  bool   `json:"ok"`
	Msg string `json:"m,omitempty"`
}

type SubscribePathPayload struct {
	Path string `json:"p"`
	Id   string `json:"id"`
}

type FileMetaPayload struct {
	Path       string    `json:"p"`
	FileName   string    `json:"f"`
	Op         model.Op  `json:"op"`
	Size       int64     `json:"sz"`
	ChangeDate time.Time `json:"cd"`
}

type RequestFilePayload struct {
	Path       string    `json:"p"`
	FileName   string    `json:"f"`
	ChangeDate time.Time `json:"cd"`
}
