package endpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rftp/proto/perrs"
)

func TestSendRecvRoundTrip(t *testing.T) {
	recv, err := Listen("127.0.0.1", 0, nil)
	require.NoError(t, err)
	defer recv.Close()

	send, err := Dial("127.0.0.1", recv.LocalAddr().Port, nil)
	require.NoError(t, err)
	defer send.Close()

	require.NoError(t, send.Send([]byte("hello")))

	b, addr, err := recv.Recv(RecvBufferSize(64), time.Second)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))
	require.NotNil(t, addr)
}

func TestRecvTimesOutWithNoTraffic(t *testing.T) {
	recv, err := Listen("127.0.0.1", 0, nil)
	require.NoError(t, err)
	defer recv.Close()

	_, _, err = recv.Recv(RecvBufferSize(64), 20*time.Millisecond)
	require.ErrorIs(t, err, perrs.ErrTimeout)
}

func TestFullLossDropsEveryDatagram(t *testing.T) {
	recv, err := Listen("127.0.0.1", 0, NewImpairment(0, 0))
	require.NoError(t, err)
	defer recv.Close()

	send, err := Dial("127.0.0.1", recv.LocalAddr().Port, NewImpairment(1, 0))
	require.NoError(t, err)
	defer send.Close()

	require.NoError(t, send.Send([]byte("ghost")))

	_, _, err = recv.Recv(RecvBufferSize(64), 50*time.Millisecond)
	require.Error(t, err)
}
