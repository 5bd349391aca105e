package authgate

import "github.com/MrEthical07/authgate/internal"

// CodeGenerator produces the temp token and one-time code of a challenge.
type CodeGenerator interface {
	NewTempToken() (string, error)
	NewCode() (string, error)
}

// RandomCodeGenerator draws both values from crypto/rand. Temp tokens are
// 16 random bytes, hex-encoded; codes are Digits decimal digits, each drawn
// uniformly.
type RandomCodeGenerator struct {
	Digits int
}

func (g RandomCodeGenerator) NewTempToken() (string, error) {
	return internal.NewHexToken(internal.TempTokenSize)
}

func (g RandomCodeGenerator) NewCode() (string, error) {
	digits := g.Digits
	if digits == 0 {
		digits = internal.CodeDigits
	}
	return internal.NewOTP(digits)
}
