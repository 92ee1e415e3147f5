// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package keygen

import (
	"fmt"

	"github.com/luxfi/crypto/secp256k1"
	"github.com/spf13/cobra"
)

// Command prints a fresh relayer key and the address anchor chains must
// trust for it.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generates a relayer key",
		Args:  cobra.NoArgs,
		RunE:  keygenFunc,
	}
}

func keygenFunc(c *cobra.Command, _ []string) error {
	sk, err := secp256k1.NewPrivateKey()
	if err != nil {
		return err
	}
	out := c.OutOrStdout()
	if _, err := fmt.Fprintf(out, "private key: %s\n", sk); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "address: %s\n", sk.PublicKey().Address())
	return err
}
