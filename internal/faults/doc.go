// Package faults defines the failure taxonomy shared by the configuration
// store, the connectivity orchestrator and the command router.
//
// Every failure is an *Error carrying a Kind:
//   - KindNotFound: the configuration record is absent (a valid empty state)
//   - KindIO: storage mount/read/write failure
//   - KindParse: corrupt or undecodable persisted record
//   - KindRadio: connect/AP/scan failure, with the driver status code in Code
//   - KindDiscovery: the discovery responder could not be bound
//   - KindAuth: bad or missing credentials on a protected route
//   - KindValidation: missing or invalid fields on a mutating route
//   - KindTimeout: a bounded wait (connect, time sync) ran out of time
//
// Use the IsXxx predicates rather than type switches; they see through
// fmt.Errorf("%w") wrapping.
//
//	if err := store.Load(); faults.IsNotFound(err) {
//	    // first boot, keep defaults
//	}
package faults
