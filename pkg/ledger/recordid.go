package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RecordIDSize is the fixed byte width of a record identifier on the
// ledger.
const RecordIDSize = 32

// RecordID is the fixed-width opaque record identifier.
type RecordID [RecordIDSize]byte

// NewRecordID derives a collision-resistant identifier for a record being
// authored: a SHA-256 over the participants, the creation time and a fresh
// nonce. This replaces the legacy truncation scheme for new records.
func NewRecordID(patient, doctor Address, createdAt int64) RecordID {
	input := fmt.Sprintf("%s|%s|%d|%s", patient, doctor, createdAt, uuid.NewString())
	return RecordID(sha256.Sum256([]byte(input)))
}

// EncodeLegacyRecordID maps a short string identifier onto the fixed width
// the ledger expects: the UTF-8 bytes right-aligned with zero padding,
// truncated when longer than the width.
//
// This scheme is lossy and collision-prone for inputs longer than the
// width; it exists only for interoperability with records written by the
// legacy encoding. New records use NewRecordID.
func EncodeLegacyRecordID(s string) RecordID {
	var id RecordID
	b := []byte(s)
	if len(b) > RecordIDSize {
		b = b[:RecordIDSize]
	}
	copy(id[RecordIDSize-len(b):], b)
	return id
}

// Hex returns the 0x-prefixed hex form used in entry-function arguments.
func (id RecordID) Hex() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Short returns a redacted display form of the identifier.
func (id RecordID) Short() string {
	return hex.EncodeToString(id[:4]) + "..."
}

// MarshalJSON encodes the identifier in its 0x-hex form.
func (id RecordID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

// UnmarshalJSON decodes a 0x-hex identifier.
func (id *RecordID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRecordID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseRecordID parses a hex record identifier, with or without the 0x
// prefix. The input must decode to exactly the fixed width.
func ParseRecordID(s string) (RecordID, error) {
	var id RecordID
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != RecordIDSize {
		return id, fmt.Errorf("%w: malformed record id", ErrInvalidInput)
	}
	copy(id[:], raw)
	return id, nil
}
