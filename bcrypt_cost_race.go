//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// Race-enabled builds use the library default cost, keeping hashing fast
// enough for test suites with strict timeouts.
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
