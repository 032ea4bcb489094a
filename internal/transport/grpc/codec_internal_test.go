package grpcx

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

func TestJSONCodec_ProtoMessages(t *testing.T) {
	c := jsonCodec{}
	at := time.Date(2025, 3, 1, 9, 0, 0, 500_000_000, time.UTC)

	b, err := c.Marshal(timestamppb.New(at))
	require.NoError(t, err)
	var s string
	require.NoError(t, json.Unmarshal(b, &s))
	assert.Equal(t, "2025-03-01T09:00:00.500Z", s)

	var ts timestamppb.Timestamp
	require.NoError(t, c.Unmarshal(b, &ts))
	assert.True(t, ts.AsTime().Equal(at))

	b, err = c.Marshal(&emptypb.Empty{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	var empty ListRoomsRequest
	require.NoError(t, c.Unmarshal([]byte(`{"unknown":1}`), &empty))
	require.NoError(t, c.Unmarshal(nil, &empty))
}

func TestJSONCodec_PlainStructs(t *testing.T) {
	c := jsonCodec{}

	b, err := c.Marshal(&ControlTimerRequest{RoomID: "r1", Action: "start"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"room_id":"r1","action":"start"}`, string(b))

	var req JoinRoomRequest
	require.NoError(t, c.Unmarshal([]byte(`{"invite_code":"ABC123"}`), &req))
	assert.Equal(t, "ABC123", req.InviteCode)
	assert.Equal(t, CodecName, c.Name())
}
