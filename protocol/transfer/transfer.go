// transfer.go specifies the messaging used to move a single file over a data channel.
package transfer

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ChunkSize is the default amount of bytes carried by a single chunk message.
const ChunkSize = 16 * 1024

// MaxChunkSize bounds the configurable chunk size. SCTP based data channels
// reject outbound messages above 64 KiB and drop incoming ones that do not fit
// the 65535 byte read buffer.
const MaxChunkSize = 64*1024 - 1

var (
	// ErrChannelNotReady is returned when a send is attempted on a channel that is not open.
	ErrChannelNotReady = errors.New("channel not ready")
	// ErrFileRead is returned when the local source can not be read mid transfer.
	ErrFileRead = errors.New("unable to read file")
	// ErrMalformedMetadata is returned for text messages that are not valid metadata messages.
	ErrMalformedMetadata = errors.New("malformed metadata")
	// ErrOrphanChunk is returned for binary messages arriving without an active session.
	ErrOrphanChunk = errors.New("chunk received without metadata")
)

// MsgType specifies the type of a text message on the data channel.
type MsgType string

const (
	FileMeta MsgType = "file-meta" // Metadata announcing the file about to be transferred
)

// Metadata describes the file about to be transferred. It precedes exactly
// TotalChunks binary chunk messages.
type Metadata struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	TotalChunks int64  `json:"totalChunks"`
	ChunkSize   int    `json:"chunkSize,omitempty"`
}

// Msg specifies a text message on the data channel.
type Msg struct {
	Type MsgType   `json:"type"`
	Data *Metadata `json:"data"`
}

// NewMetadata returns the metadata for a file of the given size, split into
// chunks of chunkSize bytes.
func NewMetadata(name string, size int64, chunkSize int) Metadata {
	return Metadata{
		FileName:    name,
		FileSize:    size,
		TotalChunks: TotalChunks(size, chunkSize),
		ChunkSize:   chunkSize,
	}
}

// TotalChunks returns ceil(size/chunkSize).
func TotalChunks(size int64, chunkSize int) int64 {
	if size <= 0 || chunkSize <= 0 {
		return 0
	}
	cs := int64(chunkSize)
	return (size + cs - 1) / cs
}

// Consistent reports whether the announced chunk count matches the
// announced size. Metadata without a chunk size is always consistent.
func (m Metadata) Consistent() bool {
	if m.ChunkSize == 0 {
		return true
	}
	return m.TotalChunks == TotalChunks(m.FileSize, m.ChunkSize)
}

// EncodeMetadata serializes the metadata into a framed text message.
func EncodeMetadata(meta Metadata) ([]byte, error) {
	return json.Marshal(Msg{Type: FileMeta, Data: &meta})
}

// DecodeMetadata parses a framed text message. All failures are reported
// as ErrMalformedMetadata.
func DecodeMetadata(b []byte) (Metadata, error) {
	var msg Msg
	if err := json.Unmarshal(b, &msg); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	if msg.Type != FileMeta {
		return Metadata{}, fmt.Errorf("%w: unexpected message type %q", ErrMalformedMetadata, msg.Type)
	}
	if msg.Data == nil {
		return Metadata{}, fmt.Errorf("%w: missing data", ErrMalformedMetadata)
	}
	if msg.Data.FileSize < 0 || msg.Data.TotalChunks < 0 || msg.Data.ChunkSize < 0 {
		return Metadata{}, fmt.Errorf("%w: negative size", ErrMalformedMetadata)
	}
	return *msg.Data, nil
}

// ------------------------------------------------------ Progress -----------------------------------------------------

// Role specifies which end of a transfer emitted a progress event.
type Role int

const (
	Sending Role = iota
	Receiving
)

func (r Role) String() string {
	switch r {
	case Sending:
		return "sending"
	case Receiving:
		return "receiving"
	default:
		return ""
	}
}

// Progress is emitted to observers while a transfer is running.
type Progress struct {
	Role    Role
	Percent int
}

// Percent returns floor(done*100/total), clamped to 100. A zero total is complete.
func Percent(done, total int64) int {
	if total <= 0 || done >= total {
		return 100
	}
	if done <= 0 {
		return 0
	}
	return int(done * 100 / total)
}

// -------------------------------------------------------- Type -------------------------------------------------------

// Type specifies how the data channel between the peers is established.
type Type int

const (
	Unknown Type = iota
	Direct       // Peer-to-peer WebRTC data channel
	Relay        // Messages are relayed through the rendezvous server
)

func (t Type) String() string {
	switch t {
	case Direct:
		return "direct"
	case Relay:
		return "relayed"
	default:
		return "unknown"
	}
}
