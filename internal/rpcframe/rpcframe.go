// Package rpcframe turns a raw byte stream into newline-delimited JSON-RPC
// frames and back, minting request IDs and correlating responses against
// the method that was sent under each ID.
package rpcframe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MaxLineSize bounds a single JSON object on the wire; a line exceeding
// it is a framing error rather than buffered indefinitely.
const MaxLineSize = 64 * 1024

// Kind tags what a decoded frame is.
type Kind int

const (
	// KindNotification is a server-initiated call: method present, no
	// response obligation.
	KindNotification Kind = iota
	// KindSuccess is a response whose id matched a pending call and
	// whose error field was null or absent.
	KindSuccess
	// KindError is a response whose id matched a pending call and
	// whose error field was non-null.
	KindError
	// KindDropped is a response whose id had no pending call; logged
	// and ignored per spec.
	KindDropped
)

// Frame is one decoded unit delivered upward by Feed.
type Frame struct {
	Kind   Kind
	ID     int64
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  json.RawMessage
}

// wireRequest is the shape of every outbound object.
type wireRequest struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// wireIn is the shape parsed from every inbound line. Method present
// means notification; otherwise it's a response keyed by ID.
type wireIn struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Framer owns the receive buffer, the pending call table and the ID
// counter for one connection (the send buffer lives in transport.Conn). It is not
// goroutine-safe; callers must serialize access (the I/O goroutine owns
// it exclusively, per the concurrency model).
type Framer struct {
	recvBuf []byte
	nextID  int64
	pending map[int64]string
}

// New creates an empty Framer. IDs are minted starting at 0.
func New() *Framer {
	return &Framer{pending: make(map[int64]string)}
}

// Feed appends newly received bytes to the receive buffer and extracts
// as many complete newline-delimited frames as are available. Partial
// frames remain buffered for the next call. A line exceeding MaxLineSize
// without a newline, or malformed JSON, is a framing error — the caller
// should treat the connection as fatal per §7's propagation policy.
func (f *Framer) Feed(data []byte) ([]Frame, error) {
	f.recvBuf = append(f.recvBuf, data...)

	var frames []Frame
	for {
		idx := bytes.IndexByte(f.recvBuf, '\n')
		if idx < 0 {
			if len(f.recvBuf) > MaxLineSize {
				return frames, fmt.Errorf("rpcframe: line exceeds %d bytes without a newline", MaxLineSize)
			}
			return frames, nil
		}

		line := f.recvBuf[:idx]
		f.recvBuf = f.recvBuf[idx+1:]

		if len(line) > MaxLineSize {
			return frames, fmt.Errorf("rpcframe: line of %d bytes exceeds %d byte maximum", len(line), MaxLineSize)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		frame, ok, err := f.decode(line)
		if err != nil {
			return frames, err
		}
		if ok {
			frames = append(frames, frame)
		}
	}
}

func (f *Framer) decode(line []byte) (Frame, bool, error) {
	var in wireIn
	if err := json.Unmarshal(line, &in); err != nil {
		return Frame{}, false, fmt.Errorf("rpcframe: malformed JSON: %w", err)
	}

	if in.Method != "" {
		return Frame{Kind: KindNotification, Method: in.Method, Params: in.Params}, true, nil
	}

	if in.ID == nil {
		// Structurally valid but shaped like neither a call nor a
		// response we can correlate: not a framing error. The line is
		// discarded here; it is neither delivered to the caller nor logged.
		return Frame{}, false, nil
	}

	method, known := f.pending[*in.ID]
	if !known {
		return Frame{Kind: KindDropped, ID: *in.ID}, true, nil
	}
	delete(f.pending, *in.ID)

	if len(in.Error) > 0 && string(in.Error) != "null" {
		return Frame{Kind: KindError, ID: *in.ID, Method: method, Error: in.Error}, true, nil
	}
	return Frame{Kind: KindSuccess, ID: *in.ID, Method: method, Result: in.Result}, true, nil
}

// EncodeRequest mints the next ID, records id->method in the pending
// table, and returns the newline-terminated wire bytes ready to send.
func (f *Framer) EncodeRequest(method string, params interface{}) (id int64, line []byte, err error) {
	id = f.nextID
	f.nextID++

	data, err := json.Marshal(wireRequest{ID: id, Method: method, Params: params})
	if err != nil {
		return 0, nil, fmt.Errorf("rpcframe: encode %s: %w", method, err)
	}
	f.pending[id] = method
	return id, append(data, '\n'), nil
}

// CancelPending removes a pending call without a matching response,
// used when a façade-side timeout fires so a late response can't be
// misdelivered to a different caller reusing that path.
func (f *Framer) CancelPending(id int64) {
	delete(f.pending, id)
}

// PendingCount reports the number of in-flight calls; exposed for tests
// and diagnostics.
func (f *Framer) PendingCount() int {
	return len(f.pending)
}
