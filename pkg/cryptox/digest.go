package cryptox

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// ErrDigestInput reports a value that cannot be canonicalised.
var ErrDigestInput = errors.New("cryptox: value cannot be digested")

// Digest returns the hex BLAKE2b-256 digest of the canonical JSON form of v.
//
// The canonical form sorts object keys and normalises numbers, so two values
// that differ only in key order produce the same digest while any change to
// a leaf value produces a different one. Array order is significant.
func Digest(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDigestInput, err)
	}
	return DigestJSON(raw)
}

// DigestJSON is Digest for an already encoded JSON document.
func DigestJSON(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDigestInput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: trailing data", ErrDigestInput)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, doc); err != nil {
		return "", err
	}

	sum := blake2b.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case json.Number:
		buf.WriteString(canonicalNumber(t))
	case string:
		enc, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDigestInput, err)
		}
		buf.Write(enc)
	case []any:
		buf.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, el); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			enc, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrDigestInput, err)
			}
			buf.Write(enc)
			buf.WriteByte(':')
			if err := writeCanonical(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: unexpected %T", ErrDigestInput, v)
	}
	return nil
}

// canonicalNumber renders 1, 1.0 and 1e0 identically.
func canonicalNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return n.String()
}
