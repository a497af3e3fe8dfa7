package analyzer

import (
	"encoding/binary"

	"github.com/apigovern/gatekeeper/domain"
)

// mersennePrime is 2^31-1, the modulus for the universal hash family.
const mersennePrime int64 = 2147483647

// emptySignatureCell is the sentinel value a signature cell keeps when no
// shingle ever hashed below it. An empty feature set produces a signature
// made entirely of this value.
const emptySignatureCell uint32 = 2147483647

// lcgSource is a 48-bit linear congruential generator with the same update
// rule and seed scrambling as java.util.Random. Coefficient streams must be
// reproducible across runtimes so that signatures persisted by one engine
// build can be compared by another.
type lcgSource struct {
	state int64
}

const (
	lcgMultiplier = 0x5DEECE66D
	lcgIncrement  = 0xB
	lcgMask       = (1 << 48) - 1
)

func newLCGSource(seed int64) *lcgSource {
	return &lcgSource{state: (seed ^ lcgMultiplier) & lcgMask}
}

func (r *lcgSource) next(bits uint) int32 {
	r.state = (r.state*lcgMultiplier + lcgIncrement) & lcgMask
	return int32(r.state >> (48 - bits))
}

// nextInt64 returns the next pseudo-random 64-bit value, composed from two
// 32-bit draws with the high word sign-extended.
func (r *lcgSource) nextInt64() int64 {
	return int64(r.next(32))<<32 + int64(r.next(32))
}

// absInt64 mirrors two's-complement absolute value: the minimum int64 maps
// to itself, so downstream modulo arithmetic stays bit-compatible with the
// coefficient streams of existing deployments.
func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// MinHashGenerator computes MinHash signatures over hashed shingle sets using
// the universal hash family h_i(x) = (a_i*x + b_i) mod p.
type MinHashGenerator struct {
	numHashFunctions int
	coeffA           []int64
	coeffB           []int64
}

// NewMinHashGenerator creates a generator with the default seed. Invalid
// sizes fall back to the default number of hash functions.
func NewMinHashGenerator(numHashFunctions int) *MinHashGenerator {
	return NewMinHashGeneratorWithSeed(numHashFunctions, domain.DefaultSeed)
}

// NewMinHashGeneratorWithSeed creates a generator whose coefficient streams
// are fully determined by the seed.
func NewMinHashGeneratorWithSeed(numHashFunctions int, seed int64) *MinHashGenerator {
	if numHashFunctions <= 0 {
		numHashFunctions = domain.DefaultNumHashFunctions
	}

	rng := newLCGSource(seed)
	coeffA := make([]int64, numHashFunctions)
	coeffB := make([]int64, numHashFunctions)
	for i := 0; i < numHashFunctions; i++ {
		coeffA[i] = absInt64(rng.nextInt64())%(mersennePrime-1) + 1
		coeffB[i] = absInt64(rng.nextInt64()) % mersennePrime
	}

	return &MinHashGenerator{
		numHashFunctions: numHashFunctions,
		coeffA:           coeffA,
		coeffB:           coeffB,
	}
}

// NumHashFunctions returns the signature length this generator produces.
func (m *MinHashGenerator) NumHashFunctions() int {
	return m.numHashFunctions
}

// ComputeSignature computes the MinHash signature of a hashed shingle set.
// The multiply wraps in 64-bit signed arithmetic before the modulo, which is
// part of the signature format.
func (m *MinHashGenerator) ComputeSignature(shingles map[int64]struct{}) []uint32 {
	sig := make([]uint32, m.numHashFunctions)
	for i := range sig {
		sig[i] = emptySignatureCell
	}

	for x := range shingles {
		for i := 0; i < m.numHashFunctions; i++ {
			h := uint32(absInt64((m.coeffA[i]*x + m.coeffB[i]) % mersennePrime))
			if h < sig[i] {
				sig[i] = h
			}
		}
	}
	return sig
}

// EstimateSimilarity estimates Jaccard similarity as the fraction of
// positions where the two signatures agree. Signatures must have the same
// length.
func (m *MinHashGenerator) EstimateSimilarity(sig1, sig2 []uint32) (float64, error) {
	return estimateSimilarity(sig1, sig2)
}

func estimateSimilarity(sig1, sig2 []uint32) (float64, error) {
	if len(sig1) != len(sig2) {
		return 0, domain.NewLengthMismatchError(len(sig1), len(sig2))
	}
	if len(sig1) == 0 {
		return 0, nil
	}

	matches := 0
	for i := range sig1 {
		if sig1[i] == sig2[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(sig1)), nil
}

// SignatureToBytes serializes a signature as big-endian 32-bit cells.
func SignatureToBytes(sig []uint32) []byte {
	buf := make([]byte, 4*len(sig))
	for i, v := range sig {
		binary.BigEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// BytesToSignature deserializes a signature produced by SignatureToBytes.
func BytesToSignature(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, domain.NewCorruptSignatureError("signature blob length is not a multiple of 4", nil)
	}
	sig := make([]uint32, len(data)/4)
	for i := range sig {
		sig[i] = binary.BigEndian.Uint32(data[i*4:])
	}
	return sig, nil
}
