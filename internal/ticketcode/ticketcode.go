// Package ticketcode generates and recognises human-typeable ticket codes of
// the form TKT-<13-digit unix millis>-<9 uppercase base36 characters>.
package ticketcode

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/Shivanand-hulikatti/qr-ticketing/internal/clock"
)

// Prefix tags every code for human recognition.
const Prefix = "TKT"

const (
	alphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	randomLen = 9
	// largest multiple of 36 that fits in a byte; bytes above it are rejected
	// so every symbol is equally likely
	rejectAbove = 252
)

var pattern = regexp.MustCompile(`^TKT-\d{13}-[0-9A-Z]{9}$`)

// Generator produces ticket codes. It holds no mutable state and is safe for
// concurrent use.
type Generator struct {
	clock  clock.Clock
	random io.Reader
}

// New returns a Generator reading time from c and randomness from crypto/rand.
func New(c clock.Clock) *Generator {
	return &Generator{clock: c, random: rand.Reader}
}

// Generate returns a new code. It panics only if the system entropy source
// fails, which leaves the process unable to issue anything safely.
func (g *Generator) Generate() string {
	millis := g.clock.Now().UnixMilli()
	return fmt.Sprintf("%s-%013d-%s", Prefix, millis, g.randomPart())
}

func (g *Generator) randomPart() string {
	out := make([]byte, 0, randomLen)
	buf := make([]byte, randomLen*2)
	for len(out) < randomLen {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			panic(fmt.Sprintf("ticketcode: read entropy: %v", err))
		}
		for _, b := range buf {
			if b >= rejectAbove {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == randomLen {
				break
			}
		}
	}
	return string(out)
}

// Valid reports whether code matches the issued code format exactly.
func Valid(code string) bool {
	return pattern.MatchString(code)
}

// Normalize trims a scanned code and upper-cases it so hand-typed or
// lower-cased input matches the stored form.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
