package reference

import (
	"encoding/base64"
	"fmt"
	"time"
)

// New generates an opaque reference for an OTP issuance, returned to the
// caller instead of the code itself. It is not a secret and cannot be used to
// verify; it only lets clients correlate an issuance with a later completion.
func New(identifier string) string {
	ref := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%d", identifier, time.Now().UnixMilli())))
	if len(ref) > 32 {
		ref = ref[:32]
	}
	return ref
}
