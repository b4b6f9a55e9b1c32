// Package codec converts rasterised page bytes into a transferable payload and back
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
)

// Form selects how a payload carries its bytes
type Form string

const (
	// Binary carries the raw bytes
	Binary Form = "binary"
	// Text carries a base64 data URI
	Text Form = "text"
)

// PNGMimeType is the media type of every encoded page
const PNGMimeType = "image/png"

const base64Marker = ";base64,"

// ErrMalformedPayload is returned when a payload cannot be turned back into bytes
var ErrMalformedPayload = errors.New("malformed payload")

// Payload is one encoded page. Exactly one of Data or URI is set, matching Form.
type Payload struct {
	Form Form   `json:"form"`
	Data []byte `json:"data,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// ParseForm accepts binary or text, defaulting to binary when empty
func ParseForm(s string) (Form, error) {
	switch Form(s) {
	case "", Binary:
		return Binary, nil
	case Text:
		return Text, nil
	}
	return "", fmt.Errorf("unknown payload form %q", s)
}

// Encode wraps data in a payload of the given form. Binary payloads keep
// their own copy so later changes to data do not leak into the message.
func Encode(data []byte, form Form) Payload {
	if form == Text {
		return Payload{Form: Text, URI: "data:" + PNGMimeType + base64Marker + base64.StdEncoding.EncodeToString(data)}
	}
	return Payload{Form: Binary, Data: bytes.Clone(data)}
}

// Decode returns the bytes carried by p
func Decode(p Payload) ([]byte, error) {
	switch p.Form {
	case Binary:
		// an empty buffer crosses a JSON frame without a data field
		if p.Data == nil {
			return []byte{}, nil
		}
		return p.Data, nil
	case Text:
		body, err := stripPrefix(p.URI)
		if err != nil {
			return nil, err
		}
		data, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: unknown form %q", ErrMalformedPayload, p.Form)
}

// stripPrefix finds the start of the base64 body. The data URI header may
// carry any number of parameters so its length is not fixed.
func stripPrefix(uri string) (string, error) {
	if i := strings.Index(uri, base64Marker); i >= 0 {
		return uri[i+len(base64Marker):], nil
	}
	if strings.HasPrefix(uri, "data:") {
		if i := strings.IndexByte(uri, ','); i >= 0 {
			return uri[i+1:], nil
		}
		return "", fmt.Errorf("%w: data URI without a body", ErrMalformedPayload)
	}
	return uri, nil
}

// EncodePNG encodes img as PNG bytes
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes PNG bytes, reporting failures as ErrMalformedPayload
func DecodeImage(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return img, nil
}
