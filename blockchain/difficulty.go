package blockchain

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 2

	// GenesisDifficulty is trivially satisfied by the first nonce in most cases
	GenesisDifficulty = 1
)

var ErrInvalidDifficulty = errors.New("invalid difficulty")

// ValidateDifficulty rejects values outside [MinDifficulty, MaxDifficulty]
func ValidateDifficulty(difficulty int) error {
	if difficulty < MinDifficulty || difficulty > MaxDifficulty {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidDifficulty, difficulty, MinDifficulty, MaxDifficulty)
	}
	return nil
}

// HashMeetsDifficulty checks for difficulty leading '0' hex characters
func HashMeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if difficulty > len(hash) {
		return false
	}
	return strings.Count(hash[:difficulty], "0") == difficulty
}
