// Command benchpass reads the admin password from the terminal and prints
// its bcrypt hash for the ADMIN_PASSWORD_HASH setting.
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/betterbench/betterbench/internal/auth"
)

func main() {
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("reading password: %v", err)
	}
	if len(password) == 0 {
		log.Fatal("empty password")
	}

	hash, err := auth.HashPassword(string(password))
	if err != nil {
		log.Fatalf("hashing password: %v", err)
	}

	fmt.Println(hash)
}
