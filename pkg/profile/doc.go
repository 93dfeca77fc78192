// Package profile supplies preference profiles to a prefs.Engine.
//
// Responsibilities:
//   - Store loads and saves one profile per Ref (user key + active set).
//   - Session tracks who is keyed in and delivers profiles on key-in,
//     key-out, set switches, and refreshes.
//   - FileWatcher delivers a profile document from disk every time it
//     changes, for deployments where an external agent writes the profile.
//
// Data flow:
//
//	Store -> Session -> Deliverer.DeliverProfile(*prefs.Profile)
//	file  -> FileWatcher -> Deliverer.DeliverProfile(*prefs.Profile)
//
// Deterministic keys:
//
//	Ref.Identifier() is "<userKey>/<setID>", or "<userKey>/default" when no
//	set is named.
package profile
