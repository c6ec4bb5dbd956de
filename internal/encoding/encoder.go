// Package encoding provides the shared JSON codec for stored score
// breakdown documents.
package encoding

import (
	"bytes"
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Codec marshals and unmarshals breakdown documents through a shared buffer
// pool and counts its work for the stats endpoint.
type Codec struct {
	buffers sync.Pool

	documentsEncoded int64
	documentsDecoded int64
	bytesEncoded     int64
}

// NewCodec creates a codec with an empty buffer pool.
func NewCodec() *Codec {
	c := &Codec{}
	c.buffers.New = func() interface{} { return new(bytes.Buffer) }
	return c
}

// Marshal encodes v into compact JSON. The stream encoder's trailing newline
// is stripped so the output matches json.Marshal byte for byte.
func (c *Codec) Marshal(v interface{}) ([]byte, error) {
	buf := c.buffers.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		c.buffers.Put(buf)
	}()

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}

	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}

	// The buffer goes back to the pool, so the caller gets its own copy
	result := make([]byte, len(out))
	copy(result, out)

	atomic.AddInt64(&c.documentsEncoded, 1)
	atomic.AddInt64(&c.bytesEncoded, int64(len(result)))
	return result, nil
}

// Unmarshal decodes a stored document into v.
func (c *Codec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}

	atomic.AddInt64(&c.documentsDecoded, 1)
	return nil
}

// GetStats reports codec activity.
func (c *Codec) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"documents_encoded": atomic.LoadInt64(&c.documentsEncoded),
		"documents_decoded": atomic.LoadInt64(&c.documentsDecoded),
		"bytes_encoded":     atomic.LoadInt64(&c.bytesEncoded),
	}
}
