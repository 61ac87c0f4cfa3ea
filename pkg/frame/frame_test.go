package frame

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDataRoundTrip(t *testing.T) {
	f := Data(42, []byte("hello"), false)
	raw := f.Encode()

	got, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, f.Kind, got.Kind)
	require.Equal(t, f.Seq, got.Seq)
	require.Equal(t, f.Payload, got.Payload)
	require.False(t, got.FIN())
}

func TestEncodeDecodeFINFlag(t *testing.T) {
	f := Data(3, nil, true)
	got, err := Decode(f.Encode())
	require.NoError(t, err)
	require.True(t, got.FIN())
	require.Empty(t, got.Payload)
}

func TestEncodeDecodeACK(t *testing.T) {
	f := ACK(7)
	got, err := Decode(f.Encode())
	require.NoError(t, err)
	require.Equal(t, KindACK, got.Kind)
	require.Equal(t, uint32(7), got.Ack)
	require.Empty(t, got.Payload)
}

// P1: frame round-trip for arbitrary (seq, payload) pairs.
func TestPropertyFrameRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		seq := rng.Uint32()
		payload := make([]byte, rng.Intn(300))
		rng.Read(payload)

		got, err := Decode(Data(seq, payload, rng.Intn(2) == 0).Encode())
		require.NoError(t, err)
		require.Equal(t, seq, got.Seq)
		require.Equal(t, payload, got.Payload)
	}
}

// P2: flipping any single bit of an encoded frame must fail to decode.
func TestPropertyChecksumDetectsBitFlip(t *testing.T) {
	f := Data(9, []byte("the quick brown fox"), true)
	raw := f.Encode()

	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			flipped := make([]byte, len(raw))
			copy(flipped, raw)
			flipped[i] ^= 1 << uint(bit)

			_, err := Decode(flipped)
			require.Error(t, err, "byte %d bit %d should have broken the checksum", i, bit)
		}
	}
}

func TestDecodeRejectsShortDatagram(t *testing.T) {
	_, err := Decode(make([]byte, MinFrameSize-1))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	f := Data(0, nil, false)
	f.Version = 2 // the checksum covers the bad version, so only the version check can reject it
	raw := f.Encode()
	_, err := Decode(raw)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	f := Data(0, []byte("x"), false)
	f.Kind = Kind(0xFF) // the checksum covers the bad kind, so only the kind check can reject it
	raw := f.Encode()
	_, err := Decode(raw)
	require.ErrorIs(t, err, ErrMalformed)
}
