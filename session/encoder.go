package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// CurrentSchemaVersion is the record layout written by Encode.
const CurrentSchemaVersion = 1

// ErrCorrupt is returned by Decode for records it cannot read.
var ErrCorrupt = errors.New("session record corrupt")

// Encode serialises s as
//
//	version | uid(8) | roleLen | role | authDate(8) | payloadHash(32) | createdAt(8) | expiresAt(8)
//
// Integers are big-endian. SessionID is the Redis key and is not encoded.
func Encode(s *Session) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if len(s.Role) > 255 {
		return nil, errors.New("role too long")
	}

	var buf bytes.Buffer
	buf.Grow(1 + 8 + 1 + len(s.Role) + 8 + 32 + 16)

	buf.WriteByte(CurrentSchemaVersion)
	_ = binary.Write(&buf, binary.BigEndian, s.UserID)
	buf.WriteByte(byte(len(s.Role)))
	buf.WriteString(s.Role)
	_ = binary.Write(&buf, binary.BigEndian, s.AuthDate)
	buf.Write(s.PayloadHash[:])
	_ = binary.Write(&buf, binary.BigEndian, s.CreatedAt)
	_ = binary.Write(&buf, binary.BigEndian, s.ExpiresAt)

	return buf.Bytes(), nil
}

// Decode parses a record produced by Encode.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrCorrupt
	}
	if version != CurrentSchemaVersion {
		return nil, errors.New("invalid session version")
	}

	s := &Session{SchemaVersion: version}

	if err := binary.Read(reader, binary.BigEndian, &s.UserID); err != nil {
		return nil, ErrCorrupt
	}

	roleLen, err := reader.ReadByte()
	if err != nil {
		return nil, ErrCorrupt
	}
	role := make([]byte, roleLen)
	if _, err := io.ReadFull(reader, role); err != nil {
		return nil, ErrCorrupt
	}
	s.Role = string(role)

	if err := binary.Read(reader, binary.BigEndian, &s.AuthDate); err != nil {
		return nil, ErrCorrupt
	}
	if _, err := io.ReadFull(reader, s.PayloadHash[:]); err != nil {
		return nil, ErrCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, ErrCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, ErrCorrupt
	}
	if reader.Len() != 0 {
		return nil, ErrCorrupt
	}
	if s.UserID <= 0 {
		return nil, ErrCorrupt
	}

	return s, nil
}
