// Command vaultctl is the agent and admin CLI for vaultd. Mutating commands
// sign their invocation with the key given by --key or VAULT_KEY.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
