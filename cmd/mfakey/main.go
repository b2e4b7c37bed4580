// Command mfakey prints a fresh base64 master key for MFA_ENCRYPTION_KEY.
//
//	mfakey            # prints the key
//	mfakey -env       # prints MFA_ENCRYPTION_KEY=<key>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dmitrymomot/mfakit/pkg/secrets"
)

func main() {
	asEnv := flag.Bool("env", false, "print as an environment variable assignment")
	flag.Parse()

	key, err := secrets.GenerateEncodedKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to generate key: %v\n", err)
		os.Exit(1)
	}

	if *asEnv {
		fmt.Printf("MFA_ENCRYPTION_KEY=%s\n", key)
		return
	}
	fmt.Println(key)
}
