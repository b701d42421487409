// Package main provides a one-shot utility for session key generation.
//
// It emits the Ed25519 keypair used to sign and verify session tokens.
package main

import (
	"log"
	"os"

	"github.com/tripfolio/tripfolio/internal/tools/sessionkey"
)

func main() {
	if err := sessionkey.Run(os.Stdout, nil); err != nil {
		log.Fatalf("generate session key: %v", err)
	}
}
