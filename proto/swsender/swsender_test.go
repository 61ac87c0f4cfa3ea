package swsender

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rftp/pkg/endpoint"
	"rftp/pkg/frame"
	"rftp/proto/receiver"
)

// P6: lossless Stop-and-Wait round trip reproduces the input exactly.
func TestStopAndWaitRoundTripLossless(t *testing.T) {
	recvEP, err := endpoint.Listen("127.0.0.1", 0, nil)
	require.NoError(t, err)
	defer recvEP.Close()

	sendEP, err := endpoint.Dial("127.0.0.1", recvEP.LocalAddr().Port, nil)
	require.NoError(t, err)
	defer sendEP.Close()

	in := bytes.NewReader([]byte("hello, stop-and-wait"))
	out := &bytes.Buffer{}

	r := receiver.New(recvEP, out, 4)
	s := New(sendEP, in, 4, 200*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	require.NoError(t, s.Run())
	require.NoError(t, <-done)
	require.Equal(t, "hello, stop-and-wait", out.String())
}

// Exercises the exact-multiple-of-segment-size boundary: the final
// synthetic empty FIN segment must still be sent and acknowledged.
func TestStopAndWaitExactSegmentBoundary(t *testing.T) {
	recvEP, err := endpoint.Listen("127.0.0.1", 0, nil)
	require.NoError(t, err)
	defer recvEP.Close()

	sendEP, err := endpoint.Dial("127.0.0.1", recvEP.LocalAddr().Port, nil)
	require.NoError(t, err)
	defer sendEP.Close()

	payload := []byte("abcd") // exactly one segment of size 4
	in := bytes.NewReader(payload)
	out := &bytes.Buffer{}

	r := receiver.New(recvEP, out, 4)
	s := New(sendEP, in, 4, 200*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- r.Run() }()

	require.NoError(t, s.Run())
	require.NoError(t, <-done)
	require.Equal(t, "abcd", out.String())
}

// A stale ACK (one not matching seq+1) must be ignored, forcing a
// retransmission rather than letting the sender advance early.
func TestStopAndWaitIgnoresStaleAck(t *testing.T) {
	recvEP, err := endpoint.Listen("127.0.0.1", 0, nil)
	require.NoError(t, err)
	defer recvEP.Close()

	sendEP, err := endpoint.Dial("127.0.0.1", recvEP.LocalAddr().Port, nil)
	require.NoError(t, err)
	defer sendEP.Close()

	in := bytes.NewReader([]byte("x"))
	out := &bytes.Buffer{}

	s := New(sendEP, in, 4, 150*time.Millisecond)

	senderDone := make(chan error, 1)
	go func() { senderDone <- s.Run() }()

	// Manually intercept the first DATA frame and reply with a stale ACK
	// (seq 0's correct ack is 1) before handing off to the real receiver.
	raw, addr, err := recvEP.Recv(endpoint.RecvBufferSize(4), time.Second)
	require.NoError(t, err)
	first, err := frame.Decode(raw)
	require.NoError(t, err)
	require.EqualValues(t, 0, first.Seq)
	require.NoError(t, recvEP.SendTo(frame.ACK(0).Encode(), addr))

	r := receiver.New(recvEP, out, 4)
	recvDone := make(chan error, 1)
	go func() { recvDone <- r.Run() }()

	require.NoError(t, <-senderDone)
	require.NoError(t, <-recvDone)
	require.Equal(t, "x", out.String())
}
