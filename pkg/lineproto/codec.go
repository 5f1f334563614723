package lineproto

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/pagesearch/pkg/errors"
)

// EmptyResult is the encoded form of a result with no records.
var EmptyResult = []byte("[]\n")

// Encode renders records as an indented JSON array followed by a newline.
// Nil slices are written as an empty array.
func Encode[T any](records []T) ([]byte, error) {
	if len(records) == 0 {
		return append([]byte(nil), EmptyResult...), nil
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %d records: %w", len(records), err)
	}
	return append(data, '\n'), nil
}

// Decode parses a response body produced by Encode.
func Decode[T any](data []byte) ([]T, error) {
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// ReadQuery reads one query line from r. The trailing "\n" or "\r\n" is
// removed. End of input terminates the line as well; no input at all yields
// an empty query. Lines longer than maxLen bytes or not valid UTF-8 fail
// with ErrProtocol. r must be at least maxLen+2 bytes large.
func ReadQuery(r *bufio.Reader, maxLen int) (string, error) {
	line, err := r.ReadSlice('\n')
	switch {
	case errors.Is(err, bufio.ErrBufferFull):
		return "", apperrors.Newf(apperrors.ErrProtocol, "query line exceeds %d bytes", maxLen)
	case err != nil && !errors.Is(err, io.EOF):
		return "", err
	}
	query := strings.TrimSuffix(string(line), "\n")
	query = strings.TrimSuffix(query, "\r")
	if len(query) > maxLen {
		return "", apperrors.Newf(apperrors.ErrProtocol, "query line exceeds %d bytes", maxLen)
	}
	if !utf8.ValidString(query) {
		return "", apperrors.New(apperrors.ErrProtocol, "query line is not valid UTF-8")
	}
	return query, nil
}
