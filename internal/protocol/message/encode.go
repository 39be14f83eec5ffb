package message

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/syntaxworker/internal/protocol/schema"
	"github.com/danmuck/syntaxworker/internal/protocol/tlv"
	"github.com/danmuck/syntaxworker/internal/syntax"
)

const (
	packedTokenLen = 4 + 4 + 2
	packedRangeLen = 8 + 4 + 4
)

// EncodeServer encodes a worker message into a packet payload.
func EncodeServer(m Server) ([]byte, error) {
	tag := m.ServerTag()
	fields := envelope(tag)
	switch v := m.(type) {
	case EchoReply:
		fields = append(fields, tlv.String(schema.FieldText, v.Text))
	case Initialized, Closing:
	case HealthCheckPass:
		fields = append(fields, tlv.Bool(schema.FieldPassed, v.Passed))
	case TokenUpdate:
		fields = append(fields, tlv.Bytes(schema.FieldTokenBatch, encodeBatch(v.Batch)))
	case Log:
		fields = append(fields, tlv.String(schema.FieldText, v.Text))
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnencodable, m)
	}
	if err := schema.Validate(tag, fields); err != nil {
		return nil, err
	}
	return tlv.EncodeFields(fields), nil
}

// EncodeClient encodes an editor message; used by the parent side and tests.
func EncodeClient(m Client) ([]byte, error) {
	tag := m.ClientTag()
	fields := envelope(tag)
	switch v := m.(type) {
	case Echo:
		fields = append(fields, tlv.String(schema.FieldText, v.Text))
	case Initialize:
		fields = append(fields,
			tlv.Bytes(schema.FieldLanguageInfo, tlv.EncodeStringMap(v.LanguageInfo)),
			tlv.Bytes(schema.FieldSetup, tlv.EncodeStringMap(v.Setup)),
		)
	case RunHealthCheck, Close, SimulateMessageException:
	case BufferEnter:
		fields = append(fields,
			tlv.U64(schema.FieldBufferID, uint64(v.BufferID)),
			tlv.String(schema.FieldFiletype, v.Filetype),
		)
	case ConfigurationChanged:
		fields = append(fields, tlv.Bytes(schema.FieldConfiguration, tlv.EncodeStringMap(v.Configuration)))
	case ThemeChanged:
		fields = append(fields, tlv.Bytes(schema.FieldTheme, tlv.EncodeStringMap(v.Theme)))
	case BufferUpdate:
		fields = append(fields,
			tlv.U64(schema.FieldBufferID, uint64(v.Update.BufferID)),
			tlv.U64(schema.FieldBufferVersion, v.Update.Version),
			tlv.U32(schema.FieldStartLine, v.Update.StartLine),
			tlv.U32(schema.FieldEndLine, v.Update.EndLine),
			tlv.Bool(schema.FieldIsFull, v.Update.IsFull),
			tlv.Bytes(schema.FieldLines, tlv.EncodeStrings(v.Lines)),
			tlv.String(schema.FieldScope, v.Scope),
		)
	case VisibleRangesChanged:
		fields = append(fields, tlv.Bytes(schema.FieldVisibleRanges, encodeRanges(v.Ranges)))
	case Unknown:
		// Payload-less; lets tests and newer editors exercise the catch-all.
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnencodable, m)
	}
	if tag.Known() {
		if err := schema.Validate(tag, fields); err != nil {
			return nil, err
		}
	}
	return tlv.EncodeFields(fields), nil
}

func envelope(tag schema.Tag) []tlv.Field {
	return []tlv.Field{
		tlv.U16(schema.FieldTag, uint16(tag)),
		tlv.U8(schema.FieldVersion, schema.PayloadVersion),
	}
}

func encodeBatch(batch []syntax.BufferTokens) []byte {
	fields := make([]tlv.Field, 0, len(batch))
	for _, buf := range batch {
		inner := make([]tlv.Field, 0, 2+len(buf.Lines))
		inner = append(inner,
			tlv.U64(schema.FieldBufferID, uint64(buf.BufferID)),
			tlv.U64(schema.FieldBufferVersion, buf.Version),
		)
		for _, line := range buf.Lines {
			inner = append(inner, tlv.Bytes(schema.FieldBatchLine, encodeLine(line)))
		}
		fields = append(fields, tlv.Bytes(schema.FieldBatchBuffer, tlv.EncodeFields(inner)))
	}
	return tlv.EncodeFields(fields)
}

func encodeLine(line syntax.LineTokens) []byte {
	packed := make([]byte, packedTokenLen*len(line.Tokens))
	styles := make([]string, len(line.Tokens))
	for i, tok := range line.Tokens {
		off := i * packedTokenLen
		binary.BigEndian.PutUint32(packed[off:off+4], tok.Start)
		binary.BigEndian.PutUint32(packed[off+4:off+8], tok.End)
		binary.BigEndian.PutUint16(packed[off+8:off+10], uint16(tok.Type))
		styles[i] = tok.Style
	}
	return tlv.EncodeFields([]tlv.Field{
		tlv.U32(schema.FieldLine, line.Line),
		tlv.Bytes(schema.FieldTokens, packed),
		tlv.Bytes(schema.FieldStyles, tlv.EncodeStrings(styles)),
	})
}

func encodeRanges(ranges []syntax.VisibleRange) []byte {
	out := make([]byte, packedRangeLen*len(ranges))
	for i, r := range ranges {
		off := i * packedRangeLen
		binary.BigEndian.PutUint64(out[off:off+8], uint64(r.BufferID))
		binary.BigEndian.PutUint32(out[off+8:off+12], r.Lines.Start)
		binary.BigEndian.PutUint32(out[off+12:off+16], r.Lines.End)
	}
	return out
}
