package journal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

type eventEnvelope struct {
	ID          string          `json:"id"`
	BattleID    string          `json:"battle_id"`
	Type        Type            `json:"type"`
	TimestampMS int64           `json:"timestamp_ms"`
	Payload     json.RawMessage `json:"payload"`
}

type chainEnvelope struct {
	BattleID  string `json:"battle_id"`
	Seq       uint64 `json:"seq"`
	EventHash string `json:"event_hash"`
	PrevHash  string `json:"prev_hash"`
}

// CanonicalJSON re-encodes payload with sorted object keys and no
// insignificant whitespace, so equal documents hash equally.
func CanonicalJSON(payload []byte) ([]byte, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return []byte("null"), nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("payload has trailing data")
	}
	return json.Marshal(value)
}

// EventHash computes the content hash of a single event.
func EventHash(evt Event) (string, error) {
	payload, err := CanonicalJSON(evt.PayloadJSON)
	if err != nil {
		return "", err
	}
	return sha256Hex(eventEnvelope{
		ID:          evt.ID,
		BattleID:    evt.BattleID,
		Type:        evt.Type,
		TimestampMS: evt.Timestamp.UTC().UnixMilli(),
		Payload:     payload,
	})
}

// ChainHash links an event to its predecessor's chain hash.
func ChainHash(evt Event, prevHash string) (string, error) {
	if evt.Hash == "" {
		return "", fmt.Errorf("event hash is required")
	}
	return sha256Hex(chainEnvelope{
		BattleID:  evt.BattleID,
		Seq:       evt.Seq,
		EventHash: evt.Hash,
		PrevHash:  prevHash,
	})
}

func sha256Hex(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode envelope: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Seal fills the integrity fields of evt, which must already carry its
// sequence number, using the chain hash of the previous event.
func Seal(keyring *Keyring, evt Event, prevChainHash string) (Event, error) {
	if keyring == nil {
		return Event{}, fmt.Errorf("journal keyring is required")
	}
	hash, err := EventHash(evt)
	if err != nil {
		return Event{}, fmt.Errorf("compute event hash: %w", err)
	}
	evt.Hash = hash
	chainHash, err := ChainHash(evt, prevChainHash)
	if err != nil {
		return Event{}, fmt.Errorf("compute chain hash: %w", err)
	}
	signature, keyID, err := keyring.SignChainHash(evt.BattleID, chainHash)
	if err != nil {
		return Event{}, fmt.Errorf("sign chain hash: %w", err)
	}
	evt.PrevHash = prevChainHash
	evt.ChainHash = chainHash
	evt.Signature = signature
	evt.SignatureKeyID = keyID
	return evt, nil
}
