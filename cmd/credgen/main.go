package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/myazlifresh/foundersite/pkg"
)

// credgen produces the values for the FOUNDERSITE_ADMIN_PASSWORD_HASH and
// FOUNDERSITE_SESSION_SECRET env vars, so the admin password never has to
// be bcrypt-hashed by hand before deploying the service
func main() {
	password := flag.String("password", "", "admin password to hash (read from stdin when omitted)")
	secretLength := flag.Int("secret-length", 64, "length of the generated session signing secret")
	flag.Parse()

	pass := *password
	if pass == "" {
		fmt.Print("admin password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "read password: %s\n", err)
			os.Exit(1)
		}
		pass = strings.TrimSpace(line)
	}
	if pass == "" {
		fmt.Fprintln(os.Stderr, "error, password empty")
		os.Exit(1)
	}

	passwordHash, err := pkg.HashPassword(pass)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %s\n", err)
		os.Exit(1)
	}

	sessionSecret, err := pkg.GenerateRandomString(*secretLength)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate session secret: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("FOUNDERSITE_ADMIN_PASSWORD_HASH='%s'\n", passwordHash)
	fmt.Printf("FOUNDERSITE_SESSION_SECRET='%s'\n", sessionSecret)
}
