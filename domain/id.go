package domain

import "encoding/json"

// ID is an identifier taken from a backend payload. The backend is loose
// about types and sends conversation, user and employee ids either as JSON
// strings or as numbers; both decode to their string form here.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}
