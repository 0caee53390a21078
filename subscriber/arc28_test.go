package subscriber

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transferSchema = Arc28EventGroup{
	GroupName: "TestEvents",
	Events: []Arc28EventSchema{
		{
			Name: "Transfer",
			Args: []Arc28EventArg{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "amount", Type: "uint64"},
			},
		},
	},
}

func transferLog(t *testing.T, tail []byte) string {
	t.Helper()

	selector := transferSchema.Events[0].Selector()

	return base64.StdEncoding.EncodeToString(append(selector[:], tail...))
}

func TestArc28EventSchema_Signature(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Transfer(address,address,uint64)", transferSchema.Events[0].Signature())

	// the selector depends only on the canonical signature string
	other := Arc28EventSchema{
		Name: "Transfer",
		Args: []Arc28EventArg{
			{Name: "x", Type: "address"},
			{Name: "y", Type: "address"},
			{Name: "z", Type: "uint64"},
		},
	}
	assert.Equal(t, transferSchema.Events[0].Selector(), other.Selector())
}

func TestEventDecoder_DecodesTransfer(t *testing.T) {
	t.Parallel()

	decoder := NewEventDecoder([]Arc28EventGroup{transferSchema}, hclog.NewNullLogger())

	from := bytes.Repeat([]byte("A"), 32)
	to := bytes.Repeat([]byte("B"), 32)
	amount := make([]byte, 8)
	binary.BigEndian.PutUint64(amount, 1000)

	tail := append(append(append([]byte{}, from...), to...), amount...)

	events := decoder.DecodeLogs([]string{transferLog(t, tail)})
	require.Len(t, events, 1)

	event := events[0]
	assert.Equal(t, "TestEvents", event.GroupName)
	assert.Equal(t, "Transfer", event.EventName)
	assert.Equal(t, "Transfer(address,address,uint64)", event.Signature)
	assert.Equal(t, base64.StdEncoding.EncodeToString(from), event.Args["from"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(to), event.Args["to"])
	assert.Equal(t, uint64(1000), event.Args["amount"])
}

func TestEventDecoder_SkipsShortAndUnknownLogs(t *testing.T) {
	t.Parallel()

	decoder := NewEventDecoder([]Arc28EventGroup{transferSchema}, hclog.NewNullLogger())

	logs := []string{
		base64.StdEncoding.EncodeToString([]byte{1, 2}),          // shorter than a selector
		base64.StdEncoding.EncodeToString([]byte{9, 9, 9, 9, 1}), // no matching selector
		"not base64!!!",
	}

	assert.Empty(t, decoder.DecodeLogs(logs))
}

func TestEventDecoder_TruncatedArgumentsProduceNoEvent(t *testing.T) {
	t.Parallel()

	decoder := NewEventDecoder([]Arc28EventGroup{transferSchema}, hclog.NewNullLogger())

	// only one address instead of two addresses and an amount
	tail := bytes.Repeat([]byte("A"), 32)

	assert.Empty(t, decoder.DecodeLogs([]string{transferLog(t, tail)}))
}

func TestEventDecoder_StringAndFixedBytes(t *testing.T) {
	t.Parallel()

	group := Arc28EventGroup{
		GroupName: "TestEvents",
		Events: []Arc28EventSchema{
			{
				Name: "Labeled",
				Args: []Arc28EventArg{
					{Name: "tag", Type: "byte"},
					{Name: "label", Type: "string"},
					{Name: "digest", Type: "byte[8]"},
					{Name: "count", Type: "uint32"},
				},
			},
		},
	}
	decoder := NewEventDecoder([]Arc28EventGroup{group}, hclog.NewNullLogger())

	selector := group.Events[0].Selector()

	var payload bytes.Buffer

	payload.Write(selector[:])
	payload.WriteByte(7)
	payload.Write([]byte{0, 5}) // 16 bit big endian length
	payload.WriteString("hello")
	payload.Write([]byte("12345678"))
	payload.Write([]byte{0, 0, 0, 42})

	events := decoder.DecodeLogs([]string{base64.StdEncoding.EncodeToString(payload.Bytes())})
	require.Len(t, events, 1)

	args := events[0].Args
	assert.Equal(t, byte(7), args["tag"])
	assert.Equal(t, "hello", args["label"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("12345678")), args["digest"])
	assert.Equal(t, uint32(42), args["count"])
}

func TestEventDecoder_SelectorCollisionFirstDeclaredWins(t *testing.T) {
	t.Parallel()

	duplicated := Arc28EventGroup{
		GroupName: "OtherGroup",
		Events:    []Arc28EventSchema{transferSchema.Events[0]},
	}

	decoder := NewEventDecoder([]Arc28EventGroup{transferSchema, duplicated}, hclog.NewNullLogger())

	from := bytes.Repeat([]byte("A"), 32)
	to := bytes.Repeat([]byte("B"), 32)
	amount := make([]byte, 8)
	binary.BigEndian.PutUint64(amount, 5)

	tail := append(append(append([]byte{}, from...), to...), amount...)

	events := decoder.DecodeLogs([]string{transferLog(t, tail)})
	require.Len(t, events, 1)
	assert.Equal(t, "TestEvents", events[0].GroupName)
}
