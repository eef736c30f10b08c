package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Noopy420/hedera-intel-agent/internal/identity"
)

func main() {
	save := flag.Bool("save", false, "write the keypair to the agent config directory")
	network := flag.String("network", "testnet", "network the key is intended for")
	flag.Parse()

	creds, err := identity.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	creds.Network = *network

	fmt.Printf("Public key:  %s\n", creds.PublicKey)
	fmt.Printf("Private key: %s\n", creds.PrivateKey)
	fmt.Println("\nFund an account with this key, then set HEDERA_OPERATOR_ID and HEDERA_OPERATOR_KEY.")

	if *save {
		dir := identity.ConfigDir()
		if err := identity.Save(dir, creds); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Saved to %s\n", dir)
	}
}
