package stores

import (
	"bytes"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const (
	challengeRecordVersion1 = 1
	maxFieldLen             = 65535

	flagRemember byte = 1 << 0
)

var (
	ErrChallengeNotFound     = errors.New("2fa challenge not found")
	ErrChallengeExpired      = errors.New("2fa challenge expired")
	ErrChallengeCodeMismatch = errors.New("2fa code mismatch")
	ErrChallengeBackend      = errors.New("2fa challenge backend unavailable")
)

// Challenge is a pending 2FA verification.
type Challenge struct {
	TempToken string
	Code      string
	Email     string
	Slot      string
	// ExpiresAt is unix milliseconds.
	ExpiresAt int64
	Resends   uint16
	Remember  bool
}

// Expired reports whether now is strictly past the validity window.
func (c *Challenge) Expired(now time.Time) bool {
	return now.UnixMilli() > c.ExpiresAt
}

// ExpiresTime returns ExpiresAt as a time.Time.
func (c *Challenge) ExpiresTime() time.Time {
	return time.UnixMilli(c.ExpiresAt)
}

func codesEqual(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

func encodeChallenge(record *Challenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)

	var flags byte
	if record.Remember {
		flags |= flagRemember
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, record.Resends); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.Code, record.Email, record.Slot} {
		if len(field) > maxFieldLen {
			return nil, errors.New("2fa challenge field length exceeded")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeChallenge(tempToken string, data []byte) (*Challenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersion1 {
		return nil, errors.New("invalid 2fa challenge version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &Challenge{TempToken: tempToken, Remember: flags&flagRemember != 0}
	if err := binary.Read(reader, binary.BigEndian, &record.Resends); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	fields := []*string{&record.Code, &record.Email, &record.Slot}
	for _, field := range fields {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		raw := make([]byte, n)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	return record, nil
}
