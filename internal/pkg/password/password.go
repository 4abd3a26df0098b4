package password

import "golang.org/x/crypto/bcrypt"

const cost = 12

// Hash derives a bcrypt hash of password for storage.
func Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches the stored bcrypt hash.
func Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
