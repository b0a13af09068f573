package authstate

import "fmt"

// Record is the public facing identity of a signed in user. Only ID is
// required, empty strings mean the provider did not supply the field.
type Record struct {
	ID          string `json:"id" yaml:"id"`
	Email       string `json:"email,omitempty" yaml:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty" yaml:"display_name,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty" yaml:"photo_url,omitempty"`
}

// Session is either signed out or signed in with a Record.
// The zero value is signed out.
type Session struct {
	record *Record
}

// SignedOut returns the signed out Session.
func SignedOut() Session {
	return Session{}
}

// SignedIn returns a Session holding a copy of r.
func SignedIn(r Record) Session {
	return Session{record: &r}
}

// Record returns the signed in record and true, or the zero Record and false.
func (s Session) Record() (Record, bool) {
	if s.record == nil {
		return Record{}, false
	}
	return *s.record, true
}

// IsSignedIn reports whether the session holds a record.
func (s Session) IsSignedIn() bool {
	return s.record != nil
}

// UserID returns the record ID or "" when signed out.
func (s Session) UserID() string {
	if s.record == nil {
		return ""
	}
	return s.record.ID
}

// Equal compares two sessions by value.
func (s Session) Equal(other Session) bool {
	if s.record == nil || other.record == nil {
		return s.record == nil && other.record == nil
	}
	return *s.record == *other.record
}

func (s Session) String() string {
	if s.record == nil {
		return "signed-out"
	}
	return fmt.Sprintf("signed-in(%s)", s.record.ID)
}
