// Package ledger translates the MedVault domain operations into the
// ledger's entry-function and view calls and back. It owns the encoding
// between domain values and the ledger's fixed-width binary argument
// format, the error taxonomy at this boundary, and the bounded confirmation
// poll for submitted transactions.
package ledger

import (
	"regexp"
	"strings"

	"github.com/nazeerbasha7/Med-Vault/pkg/blob"
)

// Address is a normalized ledger account address: 0x-prefixed lowercase
// hex, at most 64 digits.
type Address string

var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{1,64}$`)

// ParseAddress validates and normalizes an address string.
func ParseAddress(s string) (Address, error) {
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	s = strings.ToLower(s)
	if !addressPattern.MatchString(s) {
		return "", ErrInvalidInput
	}
	return Address(s), nil
}

// Short returns a redacted display form of the address.
func (a Address) Short() string {
	if len(a) <= 10 {
		return string(a)
	}
	return string(a[:10]) + "..."
}

// TxHandle identifies a submitted transaction.
type TxHandle string

// RecordHeader is the immutable on-ledger metadata of one medical record.
// Once created it never changes, except for the one-way Revoked transition.
type RecordHeader struct {
	ID            RecordID
	Patient       Address
	IssuingDoctor Address
	IssuingOrg    string
	DoctorHandle  string
	FileType      string
	ContentID     blob.ContentID
	ContentDigest blob.ContentDigest
	CreatedAt     int64 // seconds since epoch
	Revoked       bool
}

// Malformed reports whether a header decoded from the ledger is missing
// fields a well-formed record always has.
func (h RecordHeader) Malformed() bool {
	return h.ID == (RecordID{}) || h.Patient == "" || h.IssuingDoctor == "" || h.CreatedAt <= 0
}

// Organization is a read-only external entity.
type Organization struct {
	ID     string
	Name   string
	Admin  Address
	Active bool
}

// DoctorCredential is a read-only external entity; the core only consumes
// the Active flag.
type DoctorCredential struct {
	Org           string
	Handle        string
	LicenseDigest string
	Active        bool
}
