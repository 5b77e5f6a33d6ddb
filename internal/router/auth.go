package router

import (
	"crypto/subtle"

	"github.com/onebiot/onebiot/internal/faults"
)

// authenticate checks the Basic credentials against the stored admin
// credentials. Both comparisons always run.
func (r *Router) authenticate(req Request) error {
	if !req.HasAuth {
		return faults.NewAuthError("authorization required")
	}

	rec := r.store.Record()
	userOK := subtle.ConstantTimeCompare([]byte(req.User), []byte(rec.CredentialsUser))
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(rec.CredentialsPassword))
	if userOK&passOK != 1 {
		return faults.NewAuthError("invalid credentials")
	}
	return nil
}
