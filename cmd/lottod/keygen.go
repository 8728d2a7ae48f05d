package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an owner signing key",
		RunE:  runKeygen,
	}
	cmd.Flags().String("out", "./data/owner.key", "seed output path (hex)")
	return cmd
}

func runKeygen(cmd *cobra.Command, _ []string) error {
	outPath, _ := cmd.Flags().GetString("out")

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	dir := filepath.Dir(outPath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create key dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, []byte(hexutil.Encode(priv.Seed())+"\n"), 0o600); err != nil {
		return fmt.Errorf("write seed: %w", err)
	}

	fmt.Printf("seed written to %s\n", outPath)
	fmt.Printf("owner pubkey: %s\n", hexutil.Encode(pub))
	return nil
}

func loadSigningKey(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	seed, err := hexutil.Decode(string(trimNewline(data)))
	if err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes", ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func trimNewline(data []byte) []byte {
	for len(data) > 0 && (data[len(data)-1] == '\n' || data[len(data)-1] == '\r') {
		data = data[:len(data)-1]
	}
	return data
}
