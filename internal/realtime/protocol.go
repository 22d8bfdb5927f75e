package realtime

// Ops a client may send over the store socket.
const (
	OpSubscribe          = "subscribe"
	OpUnsubscribe        = "unsubscribe"
	OpSet                = "set"
	OpUpdate             = "update"
	OpRemove             = "remove"
	OpPush               = "push"
	OpOnDisconnect       = "onDisconnect"
	OpCancelOnDisconnect = "cancelOnDisconnect"
	OpAnnounce           = "announce"
)

// Server frame types.
const (
	FrameSnapshot = "snapshot"
	FrameAck      = "ack"
	FramePushed   = "pushed"
	FrameError    = "error"
)

// ClientFrame is one request. Ref names the subscription for subscribe and
// unsubscribe, and correlates the reply for everything else.
type ClientFrame struct {
	Op           string `json:"op"`
	Ref          string `json:"ref"`
	Path         string `json:"path"`
	Value        Value  `json:"value,omitempty"`
	OnDisconnect Value  `json:"onDisconnect,omitempty"`
}

type ServerFrame struct {
	Type    string  `json:"type"`
	Ref     string  `json:"ref,omitempty"`
	Path    string  `json:"path,omitempty"`
	Key     string  `json:"key,omitempty"`
	Records []Entry `json:"records,omitempty"`
	Error   string  `json:"error,omitempty"`
	Code    string  `json:"code,omitempty"`
}

// IsWrite reports whether op changes stored data.
func IsWrite(op string) bool {
	switch op {
	case OpSet, OpUpdate, OpRemove, OpPush, OpAnnounce:
		return true
	}
	return false
}
