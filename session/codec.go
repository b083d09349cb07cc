package session

import "errors"

// Decode turns a persisted document back into a session, classifying every
// failure as corruption. The decoded id must equal id.
func Decode(op, id string, b []byte) (*Session, error) {
	s, err := FromJSON(b)
	if err != nil {
		return nil, Corruption(op, id, err)
	}
	if s.ID() != id {
		return nil, Corruption(op, id, errIDChange)
	}
	return s, nil
}

// IDOf returns the id of s, or an ErrInvalidID error when s is nil.
func IDOf(op string, s *Session) (string, error) {
	if s == nil {
		return "", &Error{Op: op, Kind: ErrInvalidID, Err: errNilSession}
	}
	return s.ID(), nil
}

// Encode validates the session id and serializes the session for storage.
func Encode(op string, s *Session) (id string, b []byte, err error) {
	id, err = IDOf(op, s)
	if err != nil {
		return "", nil, err
	}
	if err := ValidateID(id); err != nil {
		if e := (*Error)(nil); errors.As(err, &e) {
			e.Op = op
		}
		return "", nil, err
	}
	b, err = s.MarshalJSON()
	if err != nil {
		return "", nil, Serialization(op, id, err)
	}
	return id, b, nil
}
