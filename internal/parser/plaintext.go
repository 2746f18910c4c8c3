package parser

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

var errInvalidUTF8 = errors.New("unsupported encoding: content is not valid UTF-8")

// PlainText accepts UTF-8 text as-is, stripping a leading byte-order mark.
type PlainText struct{}

// NewPlainText creates a plain-text parser.
func NewPlainText() *PlainText { return &PlainText{} }

func (p *PlainText) Parse(data []byte) (string, error) {
	if err := validUTF8(data); err != nil {
		return "", err
	}
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}

func validUTF8(data []byte) error {
	if !utf8.Valid(data) {
		return errInvalidUTF8
	}
	return nil
}
