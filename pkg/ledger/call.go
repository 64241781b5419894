package ledger

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// ModuleName is the ledger module the adapter targets.
const ModuleName = "medvault"

// Entry-function and view-function names on the ledger module.
const (
	fnCreateRecord    = "create_record"
	fnGrantAccess     = "grant_access"
	fnRevokeAccess    = "revoke_access"
	fnCreateOrg       = "create_org"
	fnRegisterDoctor  = "register_doctor"
	fnRegisterUserKey = "register_user_key"

	fnGetRecordHeader  = "get_record_header"
	fnGetWrappedKey    = "get_wrapped_key"
	fnListRecordsOf    = "list_records_of"
	fnIsDoctorActive   = "is_doctor_active"
	fnGetUserPublicKey = "get_user_public_key"
	fnGetOrganization  = "get_organization"
	fnGetDoctorInfo    = "get_doctor_info"
)

// EntryCall is one entry-function invocation: a function name local to the
// module plus a positional argument list. Arguments are pre-encoded into
// the ledger's wire shapes (address strings, UTF-8 strings, 0x-hex byte
// vectors, decimal integers).
type EntryCall struct {
	Function string
	Args     []any
}

// QualifiedName returns the fully qualified function name under the given
// module address.
func (c EntryCall) QualifiedName(moduleAddr Address) string {
	return fmt.Sprintf("%s::%s::%s", moduleAddr, ModuleName, c.Function)
}

// Wire encoders for the three argument shapes the ledger accepts.

func argAddress(a Address) string {
	return string(a)
}

func argBytes(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func argU64(v int64) string {
	return strconv.FormatInt(v, 10)
}

func stripHexPrefix(s string) string {
	return strings.TrimPrefix(strings.ToLower(s), "0x")
}

func decodeHexBytes(s string) ([]byte, error) {
	return hex.DecodeString(stripHexPrefix(s))
}
