// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package executor

import (
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/governance/components/proposal"
)

type Status uint8

const (
	Unseen Status = iota
	Executed
)

func (s Status) String() string {
	switch s {
	case Unseen:
		return "unseen"
	case Executed:
		return "executed"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Record is the execution state of one proposal reference. Only executed
// records are stored.
type Record struct {
	Ref         proposal.Ref `serialize:"true" json:"ref"`
	Status      Status       `serialize:"true" json:"status"`
	PayloadHash common.Hash  `serialize:"true" json:"payloadHash"`
	ExecutedAt  uint64       `serialize:"true" json:"executedAt"`
}
