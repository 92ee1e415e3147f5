// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package relay

import (
	"errors"
	"fmt"

	"github.com/luxfi/ids"
	"github.com/luxfi/warp"
)

// MessageVersion is the current version of the relay message format.
const MessageVersion uint8 = 1

var (
	ErrInvalidMessageVersion = errors.New("invalid relay message version")
	ErrInvalidMessageType    = errors.New("invalid relay message type")
	ErrMissingPayload        = errors.New("relay message missing payload")
)

type MessageType uint8

const (
	// MessageFinalization carries a finalized proposal outcome.
	MessageFinalization MessageType = iota
)

func (t MessageType) String() string {
	switch t {
	case MessageFinalization:
		return "Finalization"
	default:
		return "Unknown"
	}
}

// Message is the cross-chain message carried inside a warp payload.
type Message struct {
	Version       uint8       `serialize:"true"`
	MessageType   MessageType `serialize:"true"`
	SourceChainID ids.ID      `serialize:"true"`
	DestChainID   ids.ID      `serialize:"true"`
	// Nonce orders messages from one sender.
	Nonce   uint64 `serialize:"true"`
	Payload []byte `serialize:"true"`
}

func NewMessage(
	messageType MessageType,
	sourceChainID ids.ID,
	destChainID ids.ID,
	nonce uint64,
	payload []byte,
) *Message {
	return &Message{
		Version:       MessageVersion,
		MessageType:   messageType,
		SourceChainID: sourceChainID,
		DestChainID:   destChainID,
		Nonce:         nonce,
		Payload:       payload,
	}
}

// ToWarpMessage wraps the message in an unsigned warp message for signing.
func (m *Message) ToWarpMessage(networkID uint32) (*warp.UnsignedMessage, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	b, err := Codec.Marshal(CodecVersion, m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize relay message: %w", err)
	}
	return warp.NewUnsignedMessage(networkID, m.SourceChainID, b)
}

func (m *Message) Validate() error {
	if m.Version != MessageVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrInvalidMessageVersion, m.Version, MessageVersion)
	}
	if m.MessageType != MessageFinalization {
		return fmt.Errorf("%w: %d", ErrInvalidMessageType, m.MessageType)
	}
	if len(m.Payload) == 0 {
		return ErrMissingPayload
	}
	return nil
}

func (m *Message) String() string {
	return fmt.Sprintf(
		"RelayMessage{v%d, %s, %s -> %s, nonce=%d, payload=%d bytes}",
		m.Version,
		m.MessageType,
		m.SourceChainID,
		m.DestChainID,
		m.Nonce,
		len(m.Payload),
	)
}

func ParseMessage(b []byte) (*Message, error) {
	m := &Message{}
	if _, err := Codec.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("failed to parse relay message: %w", err)
	}
	return m, m.Validate()
}
