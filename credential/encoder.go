package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const recordSchemaVersion = 1

type recordEnvelope struct {
	Version      int    `json:"v"`
	AccessToken  string `json:"at"`
	RefreshToken string `json:"rt,omitempty"`
	PresentAt    int64  `json:"pa,omitempty"`
	ExpiresAt    int64  `json:"ea,omitempty"`
}

// Encode serializes rec into the current envelope version. Times are kept at
// millisecond precision.
func Encode(rec Record) ([]byte, error) {
	if rec.AccessToken == "" && rec.RefreshToken == "" {
		return nil, errors.New("credential: empty record")
	}
	return json.Marshal(recordEnvelope{
		Version:      recordSchemaVersion,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		PresentAt:    unixMilli(rec.PresentAt),
		ExpiresAt:    unixMilli(rec.ExpiresAt),
	})
}

// Decode parses a blob written by [Encode].
func Decode(data []byte) (*Record, error) {
	var env recordEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	if env.Version != recordSchemaVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrRecordCorrupt, env.Version)
	}
	return &Record{
		AccessToken:  env.AccessToken,
		RefreshToken: env.RefreshToken,
		PresentAt:    fromUnixMilli(env.PresentAt),
		ExpiresAt:    fromUnixMilli(env.ExpiresAt),
	}, nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
