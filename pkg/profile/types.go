package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	prefs "github.com/goliatone/go-prefs"
)

var (
	ErrETagMismatch = errors.New("profile: etag mismatch")
	ErrNotKeyedIn   = errors.New("profile: no user keyed in")
)

// DefaultSetID names the set used when a Ref leaves SetID empty.
const DefaultSetID = "default"

// Ref identifies one stored profile.
type Ref struct {
	UserKey string
	SetID   string
}

// Identifier returns the canonical storage key for r.
func (r Ref) Identifier() (string, error) {
	user := strings.TrimSpace(r.UserKey)
	if user == "" {
		return "", fmt.Errorf("profile: user key is required")
	}
	if strings.Contains(user, "/") {
		return "", fmt.Errorf("profile: user key %q must not contain '/'", user)
	}
	set := strings.TrimSpace(r.SetID)
	if set == "" {
		set = DefaultSetID
	}
	return user + "/" + set, nil
}

// Identity converts r into the identity the engine reconciles against.
func (r Ref) Identity() prefs.Identity {
	return prefs.Identity{UserKey: r.UserKey, ActiveSetID: r.SetID}
}

// Meta is storage-owned metadata used for concurrency control.
type Meta struct {
	ETag      string    `json:"etag,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Store loads and saves one profile for a single Ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (profile prefs.Profile, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, profile prefs.Profile, meta Meta) (Meta, error)
}

// Deliverer receives profiles. *prefs.Engine satisfies it.
type Deliverer interface {
	DeliverProfile(*prefs.Profile) prefs.ReconcileReport
}

// Mutator edits a stored profile in place.
type Mutator func(*prefs.Profile) error
