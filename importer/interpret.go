package importer

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/derktes/ir-signal-workbench/irsignal"
)

// Interpreter turns the tokens following a name into a sequence.
type Interpreter func(tokens []string) (irsignal.Sequence, error)

// RawInterpreter reads alternating durations, e.g. "+9000 -4500 +560 -560".
func RawInterpreter(tokens []string) (irsignal.Sequence, error) {
	return irsignal.ParseSequence(strings.Join(tokens, " "))
}

const prontoFrequencyConstant = 0.241246 // µs per Pronto frequency unit

// ProntoInterpreter reads the learned Pronto hex format
// "0000 FREQ N1 N2 <pairs>". Intro and repeat pairs are returned back to
// back.
func ProntoInterpreter(tokens []string) (irsignal.Sequence, error) {
	if len(tokens) < 4 {
		return irsignal.Sequence{}, fmt.Errorf("%w: %d words", ErrBadPronto, len(tokens))
	}
	words := make([]uint64, len(tokens))
	for i, t := range tokens {
		if len(t) != 4 {
			return irsignal.Sequence{}, fmt.Errorf("%w: word %q", ErrBadPronto, t)
		}
		w, err := strconv.ParseUint(t, 16, 16)
		if err != nil {
			return irsignal.Sequence{}, fmt.Errorf("%w: word %q", ErrBadPronto, t)
		}
		words[i] = w
	}
	if words[0] != 0 {
		return irsignal.Sequence{}, fmt.Errorf("%w: unsupported type %04X", ErrBadPronto, words[0])
	}
	if words[1] == 0 {
		return irsignal.Sequence{}, fmt.Errorf("%w: zero frequency code", ErrBadPronto)
	}
	pairs := int(words[2] + words[3])
	if pairs == 0 || len(words) != 4+2*pairs {
		return irsignal.Sequence{}, fmt.Errorf("%w: expected %d words, got %d", ErrBadPronto, 4+2*pairs, len(words))
	}
	period := float64(words[1]) * prontoFrequencyConstant
	durations := make([]float64, 2*pairs)
	for i := range durations {
		durations[i] = math.Round(float64(words[4+i]) * period)
	}
	return irsignal.NewSequence(durations)
}

const broadlinkTick = 269000.0 / 8192.0 // µs

// BroadlinkInterpreter reads a hex-encoded Broadlink IR packet. The packet
// does not always carry the final silence, so an odd-length decode gets
// trailingGap appended; a zero gap leaves it to fail as odd length.
func BroadlinkInterpreter(trailingGap float64) Interpreter {
	return func(tokens []string) (irsignal.Sequence, error) {
		if len(tokens) != 1 {
			return irsignal.Sequence{}, fmt.Errorf("%w: expected one hex token, got %d", ErrBadBroadlink, len(tokens))
		}
		packet, err := hex.DecodeString(tokens[0])
		if err != nil {
			return irsignal.Sequence{}, fmt.Errorf("%w: %v", ErrBadBroadlink, err)
		}
		if len(packet) < 4 || packet[0] != 0x26 {
			return irsignal.Sequence{}, fmt.Errorf("%w: not an IR packet", ErrBadBroadlink)
		}
		length := int(packet[2]) | int(packet[3])<<8
		payload := packet[4:]
		if length > len(payload) {
			return irsignal.Sequence{}, fmt.Errorf("%w: declared %d bytes, have %d", ErrBadBroadlink, length, len(payload))
		}
		payload = payload[:length]

		var durations []float64
		for i := 0; i < len(payload); {
			ticks := int(payload[i])
			i++
			if ticks == 0 {
				if i+1 >= len(payload) {
					break // zero padding
				}
				ticks = int(payload[i])<<8 | int(payload[i+1])
				i += 2
				if ticks == 0 {
					break
				}
			}
			durations = append(durations, math.Round(float64(ticks)*broadlinkTick))
		}
		if len(durations)%2 != 0 && trailingGap > 0 {
			durations = append(durations, trailingGap)
		}
		return irsignal.NewSequence(durations)
	}
}

// MultiInterpreter recognizes Pronto hex, Broadlink hex and raw durations.
func MultiInterpreter(trailingGap float64) Interpreter {
	broadlink := BroadlinkInterpreter(trailingGap)
	return func(tokens []string) (irsignal.Sequence, error) {
		switch {
		case looksLikePronto(tokens):
			return ProntoInterpreter(tokens)
		case looksLikeBroadlink(tokens):
			return broadlink(tokens)
		default:
			return RawInterpreter(tokens)
		}
	}
}

func looksLikePronto(tokens []string) bool {
	if len(tokens) < 4 || tokens[0] != "0000" {
		return false
	}
	for _, t := range tokens {
		if len(t) != 4 || !isHex(t) {
			return false
		}
	}
	return true
}

func looksLikeBroadlink(tokens []string) bool {
	if len(tokens) != 1 {
		return false
	}
	t := tokens[0]
	return len(t) >= 8 && len(t)%2 == 0 && strings.HasPrefix(t, "26") && isHex(t)
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
