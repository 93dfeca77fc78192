package prefs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message kinds sent to surfaces.
const (
	MessageSettingChanged = "settingChanged"
	MessageUndoAvailable  = "undoAvailable"
)

// Message is the JSON envelope the engine sends to surfaces.
type Message struct {
	Kind          string    `json:"kind"`
	Mutation      *Mutation `json:"mutation,omitempty"`
	UndoAvailable *bool     `json:"undoAvailable,omitempty"`
}

// EncodeMutation wraps m in a settingChanged message.
func EncodeMutation(m Mutation) ([]byte, error) {
	out, err := json.Marshal(Message{Kind: MessageSettingChanged, Mutation: &m})
	if err != nil {
		return nil, fmt.Errorf("prefs: encode mutation %s: %w", m.Path, err)
	}
	return out, nil
}

// EncodeUndoAvailability builds an undoAvailable message.
func EncodeUndoAvailability(available bool) ([]byte, error) {
	return json.Marshal(Message{Kind: MessageUndoAvailable, UndoAvailable: &available})
}

// DecodeAlteration parses a surface request of the form
// {"path": ..., "value": ..., "origin": ...}. Numbers decode as float64. An
// absent origin is OriginUnspecified; an unknown one is an error.
func DecodeAlteration(raw []byte) (Alteration, error) {
	var a Alteration
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&a); err != nil {
		return Alteration{}, fmt.Errorf("prefs: decode alteration: %w", err)
	}
	if a.Path == "" {
		return Alteration{}, ErrMissingPath
	}
	return a, nil
}
