package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration written as "90m" in config files and
// environment variables. A bare JSON number is read as nanoseconds.
type Duration time.Duration

// UnmarshalText parses a time.ParseDuration string. env.Parse uses it too.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.UnmarshalText([]byte(s))
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("duration must be a string like \"1h\" or nanoseconds: %s", b)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
