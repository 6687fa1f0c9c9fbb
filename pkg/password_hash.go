package pkg

import "golang.org/x/crypto/bcrypt"

// bcryptCost is high enough to resist brute force attempts,
// while still tolerable for an interactive admin login
const bcryptCost = 10

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return BytesToString(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
