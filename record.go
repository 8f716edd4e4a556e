package sessionkit

import (
	"encoding/json"
	"errors"
	"fmt"
)

var errRecordMissingID = errors.New("user record has no id")

// encodeUser produces the durable representation: a flat JSON object with
// no version field.
func encodeUser(u User) ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("encode user record: %w", err)
	}
	return data, nil
}

func decodeUser(data []byte) (User, error) {
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return User{}, fmt.Errorf("decode user record: %w", err)
	}
	if u.ID == "" {
		return User{}, errRecordMissingID
	}
	return u, nil
}
