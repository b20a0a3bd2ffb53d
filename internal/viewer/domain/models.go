package domain

import (
	"encoding/json"
	"reflect"
	"time"

	commercedomain "github.com/smallbiznis/storefront/internal/commerce/domain"
)

// Purchase is one entitlement listed on a viewer.
type Purchase struct {
	ID   commercedomain.ResourceID `json:"id,omitempty"`
	Site string                    `json:"site,omitempty"`
	Slug string                    `json:"slug,omitempty"`
	// Bulk is nil when the identity service omits it; only an explicit
	// false counts as an individual seat.
	Bulk *bool `json:"bulk,omitempty"`
}

func (p Purchase) IsIndividual() bool {
	return p.Bulk != nil && !*p.Bulk
}

// Viewer is the identity returned by the identity service. Raw keeps the
// full document so it can be cached and compared as received.
type Viewer struct {
	ID        commercedomain.ResourceID `json:"id,omitempty"`
	Email     string                    `json:"email,omitempty"`
	Name      string                    `json:"name,omitempty"`
	ContactID string                    `json:"contact_id,omitempty"`
	Purchased []Purchase                `json:"purchased,omitempty"`
	Raw       json.RawMessage           `json:"-"`
}

func (v *Viewer) UnmarshalJSON(b []byte) error {
	type alias Viewer
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*v = Viewer(a)
	v.Raw = append(json.RawMessage(nil), b...)
	return nil
}

func (v Viewer) MarshalJSON() ([]byte, error) {
	if len(v.Raw) > 0 {
		return v.Raw, nil
	}
	type alias Viewer
	return json.Marshal(alias(v))
}

// IsEmpty reports whether v carries no identity at all.
func (v *Viewer) IsEmpty() bool {
	if v == nil {
		return true
	}
	if v.ID != "" || v.Email != "" || len(v.Purchased) > 0 {
		return false
	}
	switch string(v.Raw) {
	case "", "null", "{}":
		return true
	}
	return false
}

// Equal compares two viewers by their documents.
func Equal(a, b *Viewer) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return a.IsEmpty() && b.IsEmpty()
	}
	da, errA := decodeDocument(a)
	db, errB := decodeDocument(b)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(da, db)
}

func decodeDocument(v *Viewer) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// PageLocation is the browser location the viewer machine was started from.
type PageLocation struct {
	Path   string `json:"path"`
	Search string `json:"search,omitempty"`
	Hash   string `json:"hash,omitempty"`
}

// Location is a navigation target emitted by the machine.
type Location struct {
	URL string `json:"url"`
}

type State string

const (
	StateCheckingIfLoggedIn State = "checkingIfLoggedIn"
	StateLoggedInStable     State = "loggedIn.stable"
	StateLoggedInRefreshing State = "loggedIn.refreshing"
	StateLoggedOut          State = "loggedOut"
)

func (s State) LoggedIn() bool {
	return s == StateLoggedInStable || s == StateLoggedInRefreshing
}

// Context is the viewer machine's working memory. Viewer is set exactly
// while the machine is logged in.
type Context struct {
	Viewer     *Viewer `json:"viewer,omitempty"`
	ViewAsUser string  `json:"view_as_user,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type Snapshot struct {
	State   State        `json:"state"`
	Context Context      `json:"context"`
	Page    PageLocation `json:"page"`
	Epoch   uint64       `json:"-"`
}

type View struct {
	SessionID string    `json:"-"`
	State     State     `json:"state"`
	Context   Context   `json:"context"`
	Location  *Location `json:"location,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
