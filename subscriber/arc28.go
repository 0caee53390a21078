package subscriber

import (
	"crypto/sha512"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Arc28EventGroup is a named set of declared event schemas
type Arc28EventGroup struct {
	GroupName string             `json:"group-name"`
	Events    []Arc28EventSchema `json:"events"`
}

// Arc28EventSchema declares one event: a name plus an ordered argument list
type Arc28EventSchema struct {
	Name string          `json:"name"`
	Args []Arc28EventArg `json:"args"`
}

type Arc28EventArg struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Signature returns the canonical event signature, EventName(type1,type2,...)
func (s Arc28EventSchema) Signature() string {
	types := make([]string, len(s.Args))
	for i, arg := range s.Args {
		types[i] = arg.Type
	}

	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(types, ","))
}

// Selector returns the first 4 bytes of the SHA-512/256 digest of the
// canonical signature
func (s Arc28EventSchema) Selector() [4]byte {
	return selectorFromSignature(s.Signature())
}

func selectorFromSignature(signature string) (selector [4]byte) {
	digest := sha512.Sum512_256([]byte(signature))
	copy(selector[:], digest[:4])

	return selector
}

type eventDecoderEntry struct {
	groupName string
	schema    Arc28EventSchema
	signature string
}

// EventDecoder identifies and decodes declared events from raw application
// logs. The selector table is built once per subscription.
type EventDecoder struct {
	bySelector map[[4]byte]eventDecoderEntry
	logger     hclog.Logger
}

// NewEventDecoder prepares the selector table from the declared groups.
// Selector collisions are resolved first-declared-wins.
func NewEventDecoder(groups []Arc28EventGroup, logger hclog.Logger) *EventDecoder {
	bySelector := map[[4]byte]eventDecoderEntry{}

	for _, group := range groups {
		for _, schema := range group.Events {
			selector := schema.Selector()
			if _, exists := bySelector[selector]; exists {
				logger.Warn("Duplicate event selector, keeping first declared",
					"group", group.GroupName, "event", schema.Name)

				continue
			}

			bySelector[selector] = eventDecoderEntry{
				groupName: group.GroupName,
				schema:    schema,
				signature: schema.Signature(),
			}
		}
	}

	return &EventDecoder{
		bySelector: bySelector,
		logger:     logger,
	}
}

// DecodeLogs materializes one event per log whose leading 4 bytes match a
// declared selector. Logs are base64 encoded. Logs shorter than the selector,
// logs with no matching selector and logs whose argument tail cannot be
// decoded produce no entry.
func (d *EventDecoder) DecodeLogs(logs []string) []Arc28Event {
	if len(d.bySelector) == 0 || len(logs) == 0 {
		return nil
	}

	var events []Arc28Event

	for _, rawLog := range logs {
		data, err := base64.StdEncoding.DecodeString(rawLog)
		if err != nil {
			d.logger.Debug("Skipping log that is not valid base64", "err", err)

			continue
		}

		if len(data) < 4 {
			continue
		}

		var selector [4]byte

		copy(selector[:], data[:4])

		entry, ok := d.bySelector[selector]
		if !ok {
			continue
		}

		args, err := decodeEventArgs(entry.schema.Args, data[4:])
		if err != nil {
			d.logger.Warn("Could not decode event arguments",
				"group", entry.groupName, "event", entry.schema.Name, "err", err)

			continue
		}

		events = append(events, Arc28Event{
			GroupName: entry.groupName,
			EventName: entry.schema.Name,
			Signature: entry.signature,
			Args:      args,
		})
	}

	return events
}

func decodeEventArgs(argSchemas []Arc28EventArg, data []byte) (map[string]interface{}, error) {
	args := make(map[string]interface{}, len(argSchemas))
	offset := 0

	for _, arg := range argSchemas {
		value, next, err := decodeEventValue(arg.Type, data, offset)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", arg.Name, err)
		}

		args[arg.Name] = value
		offset = next
	}

	return args, nil
}

func decodeEventValue(abiType string, data []byte, offset int) (interface{}, int, error) {
	takeBytes := func(n int) ([]byte, error) {
		if offset+n > len(data) {
			return nil, fmt.Errorf("type %s needs %d bytes at offset %d, have %d",
				abiType, n, offset, len(data)-offset)
		}

		return data[offset : offset+n], nil
	}

	switch {
	case abiType == "uint64":
		raw, err := takeBytes(8)
		if err != nil {
			return nil, 0, err
		}

		return binary.BigEndian.Uint64(raw), offset + 8, nil
	case abiType == "uint32":
		raw, err := takeBytes(4)
		if err != nil {
			return nil, 0, err
		}

		return binary.BigEndian.Uint32(raw), offset + 4, nil
	case abiType == "byte":
		raw, err := takeBytes(1)
		if err != nil {
			return nil, 0, err
		}

		return raw[0], offset + 1, nil
	case abiType == "address":
		raw, err := takeBytes(32)
		if err != nil {
			return nil, 0, err
		}

		return base64.StdEncoding.EncodeToString(raw), offset + 32, nil
	case abiType == "string":
		rawLen, err := takeBytes(2)
		if err != nil {
			return nil, 0, err
		}

		strLen := int(binary.BigEndian.Uint16(rawLen))

		if offset+2+strLen > len(data) {
			return nil, 0, fmt.Errorf("string of length %d runs past end of data", strLen)
		}

		return string(data[offset+2 : offset+2+strLen]), offset + 2 + strLen, nil
	case strings.HasPrefix(abiType, "byte[") && strings.HasSuffix(abiType, "]"):
		size, err := strconv.Atoi(abiType[5 : len(abiType)-1])
		if err != nil || size <= 0 {
			return nil, 0, fmt.Errorf("unsupported type %s", abiType)
		}

		raw, err := takeBytes(size)
		if err != nil {
			return nil, 0, err
		}

		return base64.StdEncoding.EncodeToString(raw), offset + size, nil
	default:
		return nil, 0, fmt.Errorf("unsupported type %s", abiType)
	}
}
