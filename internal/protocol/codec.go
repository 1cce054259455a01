// internal/protocol/codec.go
package protocol

import (
	"bufio"
	"io"
	"sync"

	"encoding/json"

	log "github.com/sirupsen/logrus"
)

// maxLineBytes caps a single inbound line. Anything larger is a misbehaving
// client and the scan aborts, which closes the connection.
const maxLineBytes = 256 * 1024

// outboundBuffer is the per-connection send queue depth. A client that cannot
// drain this many frames gets messages dropped (the codec layer logs it); the
// next write failure tears the connection down.
const outboundBuffer = 256

// Codec frames newline-delimited JSON over a single stream connection. Reads
// happen on the caller's goroutine via Recv; writes are serialized through one
// writer goroutine so concurrent senders never interleave bytes.
type Codec struct {
	rw      io.ReadWriteCloser
	scanner *bufio.Scanner

	out       chan []byte
	closeOnce sync.Once
	done      chan struct{}

	// WriteErr holds the first write error, if any. Checked by the owner
	// after Close to distinguish peer resets from local shutdown.
	mu       sync.Mutex
	writeErr error
}

// NewCodec wraps a stream connection and starts its writer goroutine.
func NewCodec(rw io.ReadWriteCloser) *Codec {
	sc := bufio.NewScanner(rw)
	sc.Buffer(make([]byte, 4096), maxLineBytes)
	c := &Codec{
		rw:      rw,
		scanner: sc,
		out:     make(chan []byte, outboundBuffer),
		done:    make(chan struct{}),
	}
	go c.writePump()
	return c
}

// writePump drains the outbound queue onto the wire, one frame per line.
// It exits on the first write error or on Close.
func (c *Codec) writePump() {
	for {
		select {
		case <-c.done:
			return
		case frame, ok := <-c.out:
			if !ok {
				return
			}
			if _, err := c.rw.Write(frame); err != nil {
				c.mu.Lock()
				if c.writeErr == nil {
					c.writeErr = err
				}
				c.mu.Unlock()
				c.Close()
				return
			}
		}
	}
}

// Send marshals msg, appends the newline terminator and enqueues it. It never
// blocks the authority: a full queue drops the frame with a warning.
func (c *Codec) Send(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Warnf("codec: failed to marshal outbound message: %v", err)
		return
	}
	frame := append(data, '\n')
	select {
	case <-c.done:
	case c.out <- frame:
	default:
		log.Warnf("codec: outbound queue full, dropping %d-byte frame", len(frame))
	}
}

// SendSync marshals msg and writes it on the caller's goroutine, bypassing
// the queue. Used for the goodbye frame on gated connections, where the
// writer pump may be torn down before it drains.
func (c *Codec) SendSync(msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = c.rw.Write(append(data, '\n'))
	return err
}

// Recv blocks for the next well-formed message. Malformed lines are dropped
// silently (debug-logged) and the read continues. It returns an error only
// when the connection is gone.
func (c *Codec) Recv() (Inbound, error) {
	for {
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil {
				return Inbound{}, err
			}
			return Inbound{}, io.EOF
		}
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, ok := Decode(line)
		if !ok {
			log.Debugf("codec: dropping malformed line (%d bytes)", len(line))
			continue
		}
		return msg, nil
	}
}

// WriteErr returns the first write error observed by the pump, if any.
func (c *Codec) WriteErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeErr
}

// Close shuts the writer down and closes the underlying connection. Safe to
// call from any goroutine, any number of times.
func (c *Codec) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.rw.Close()
	})
}
