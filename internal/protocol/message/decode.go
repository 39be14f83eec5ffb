package message

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/syntaxworker/internal/protocol/schema"
	"github.com/danmuck/syntaxworker/internal/protocol/tlv"
	"github.com/danmuck/syntaxworker/internal/syntax"
)

// DecodeClient decodes an editor message. Unrecognized tags yield Unknown;
// every other failure is a *DecodeError.
func DecodeClient(payload []byte) (Client, error) {
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		return nil, decodeErr(0, err)
	}
	tag, version, err := readEnvelope(fields)
	if err != nil {
		return nil, decodeErr(tag, err)
	}
	if !tag.IsClient() || !tag.Known() {
		return Unknown{Tag: tag, Version: version}, nil
	}
	if err := schema.Validate(tag, fields); err != nil {
		return nil, decodeErr(tag, err)
	}

	var msg Client
	switch tag {
	case schema.TagEcho:
		msg, err = decodeEcho(fields)
	case schema.TagInitialize:
		msg, err = decodeInitialize(fields)
	case schema.TagRunHealthCheck:
		msg = RunHealthCheck{}
	case schema.TagBufferEnter:
		msg, err = decodeBufferEnter(fields)
	case schema.TagConfigurationChanged:
		var cfg map[string]string
		cfg, err = mapField(fields, schema.FieldConfiguration)
		msg = ConfigurationChanged{Configuration: cfg}
	case schema.TagThemeChanged:
		var theme map[string]string
		theme, err = mapField(fields, schema.FieldTheme)
		msg = ThemeChanged{Theme: theme}
	case schema.TagBufferUpdate:
		msg, err = decodeBufferUpdate(fields)
	case schema.TagVisibleRangesChanged:
		msg, err = decodeVisibleRanges(fields)
	case schema.TagClose:
		msg = Close{}
	case schema.TagSimulateMessageException:
		msg = SimulateMessageException{}
	}
	if err != nil {
		return nil, decodeErr(tag, err)
	}
	return msg, nil
}

// DecodeServer decodes a worker message; used by the parent side and tests.
func DecodeServer(payload []byte) (Server, error) {
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		return nil, decodeErr(0, err)
	}
	tag, _, err := readEnvelope(fields)
	if err != nil {
		return nil, decodeErr(tag, err)
	}
	if tag.IsClient() || !tag.Known() {
		return nil, decodeErr(tag, ErrUnknownServer)
	}
	if err := schema.Validate(tag, fields); err != nil {
		return nil, decodeErr(tag, err)
	}

	switch tag {
	case schema.TagEchoReply:
		text, err := textField(fields, schema.FieldText)
		if err != nil {
			return nil, decodeErr(tag, err)
		}
		return EchoReply{Text: text}, nil
	case schema.TagInitialized:
		return Initialized{}, nil
	case schema.TagHealthCheckPass:
		f, _ := tlv.GetField(fields, schema.FieldPassed)
		passed, err := f.Bool()
		if err != nil {
			return nil, decodeErr(tag, err)
		}
		return HealthCheckPass{Passed: passed}, nil
	case schema.TagTokenUpdate:
		f, _ := tlv.GetField(fields, schema.FieldTokenBatch)
		batch, err := decodeBatch(f.Value)
		if err != nil {
			return nil, decodeErr(tag, err)
		}
		return TokenUpdate{Batch: batch}, nil
	case schema.TagClosing:
		return Closing{}, nil
	case schema.TagLog:
		text, err := textField(fields, schema.FieldText)
		if err != nil {
			return nil, decodeErr(tag, err)
		}
		return Log{Text: text}, nil
	}
	return nil, decodeErr(tag, ErrUnknownServer)
}

func readEnvelope(fields []tlv.Field) (schema.Tag, uint8, error) {
	tf, ok := tlv.GetField(fields, schema.FieldTag)
	if !ok {
		return 0, 0, ErrMissingTag
	}
	raw, err := tf.Uint16()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrMissingTag, err)
	}
	tag := schema.Tag(raw)
	vf, ok := tlv.GetField(fields, schema.FieldVersion)
	if !ok {
		return tag, 0, ErrInvalidVersion
	}
	version, err := vf.Uint8()
	if err != nil || version == 0 {
		return tag, 0, ErrInvalidVersion
	}
	return tag, version, nil
}

func decodeEcho(fields []tlv.Field) (Client, error) {
	text, err := textField(fields, schema.FieldText)
	if err != nil {
		return nil, err
	}
	return Echo{Text: text}, nil
}

func decodeInitialize(fields []tlv.Field) (Client, error) {
	info, err := mapField(fields, schema.FieldLanguageInfo)
	if err != nil {
		return nil, err
	}
	setup, err := mapField(fields, schema.FieldSetup)
	if err != nil {
		return nil, err
	}
	return Initialize{LanguageInfo: info, Setup: setup}, nil
}

func decodeBufferEnter(fields []tlv.Field) (Client, error) {
	id, err := u64Field(fields, schema.FieldBufferID)
	if err != nil {
		return nil, err
	}
	filetype, err := textField(fields, schema.FieldFiletype)
	if err != nil {
		return nil, err
	}
	return BufferEnter{BufferID: syntax.BufferID(id), Filetype: filetype}, nil
}

func decodeBufferUpdate(fields []tlv.Field) (Client, error) {
	id, err := u64Field(fields, schema.FieldBufferID)
	if err != nil {
		return nil, err
	}
	version, err := u64Field(fields, schema.FieldBufferVersion)
	if err != nil {
		return nil, err
	}
	start, err := u32Field(fields, schema.FieldStartLine)
	if err != nil {
		return nil, err
	}
	end, err := u32Field(fields, schema.FieldEndLine)
	if err != nil {
		return nil, err
	}
	ff, _ := tlv.GetField(fields, schema.FieldIsFull)
	full, err := ff.Bool()
	if err != nil {
		return nil, err
	}
	lf, _ := tlv.GetField(fields, schema.FieldLines)
	lines, err := tlv.DecodeStrings(lf.Value)
	if err != nil {
		return nil, err
	}
	scope, err := textField(fields, schema.FieldScope)
	if err != nil {
		return nil, err
	}
	return BufferUpdate{
		Update: syntax.Update{
			BufferID:  syntax.BufferID(id),
			Version:   version,
			StartLine: start,
			EndLine:   end,
			IsFull:    full,
		},
		Lines: lines,
		Scope: scope,
	}, nil
}

func decodeVisibleRanges(fields []tlv.Field) (Client, error) {
	f, _ := tlv.GetField(fields, schema.FieldVisibleRanges)
	if len(f.Value)%packedRangeLen != 0 {
		return nil, fmt.Errorf("%w: visible ranges length %d", tlv.ErrInvalidLength, len(f.Value))
	}
	ranges := make([]syntax.VisibleRange, 0, len(f.Value)/packedRangeLen)
	for off := 0; off < len(f.Value); off += packedRangeLen {
		ranges = append(ranges, syntax.VisibleRange{
			BufferID: syntax.BufferID(binary.BigEndian.Uint64(f.Value[off : off+8])),
			Lines: syntax.LineRange{
				Start: binary.BigEndian.Uint32(f.Value[off+8 : off+12]),
				End:   binary.BigEndian.Uint32(f.Value[off+12 : off+16]),
			},
		})
	}
	return VisibleRangesChanged{Ranges: ranges}, nil
}

func decodeBatch(b []byte) ([]syntax.BufferTokens, error) {
	fields, err := tlv.DecodeFields(b)
	if err != nil {
		return nil, err
	}
	batch := make([]syntax.BufferTokens, 0, len(fields))
	for _, f := range tlv.GetFields(fields, schema.FieldBatchBuffer) {
		inner, err := tlv.DecodeFields(f.Value)
		if err != nil {
			return nil, err
		}
		id, err := u64Field(inner, schema.FieldBufferID)
		if err != nil {
			return nil, err
		}
		version, err := u64Field(inner, schema.FieldBufferVersion)
		if err != nil {
			return nil, err
		}
		entry := syntax.BufferTokens{BufferID: syntax.BufferID(id), Version: version}
		for _, lf := range tlv.GetFields(inner, schema.FieldBatchLine) {
			line, err := decodeLine(lf.Value)
			if err != nil {
				return nil, err
			}
			entry.Lines = append(entry.Lines, line)
		}
		batch = append(batch, entry)
	}
	return batch, nil
}

func decodeLine(b []byte) (syntax.LineTokens, error) {
	fields, err := tlv.DecodeFields(b)
	if err != nil {
		return syntax.LineTokens{}, err
	}
	lineNo, err := u32Field(fields, schema.FieldLine)
	if err != nil {
		return syntax.LineTokens{}, err
	}
	tf, ok := tlv.GetField(fields, schema.FieldTokens)
	if !ok || len(tf.Value)%packedTokenLen != 0 {
		return syntax.LineTokens{}, fmt.Errorf("%w: packed tokens", tlv.ErrInvalidLength)
	}
	sf, _ := tlv.GetField(fields, schema.FieldStyles)
	styles, err := tlv.DecodeStrings(sf.Value)
	if err != nil {
		return syntax.LineTokens{}, err
	}
	count := len(tf.Value) / packedTokenLen
	if len(styles) != count {
		return syntax.LineTokens{}, fmt.Errorf("%w: %d styles for %d tokens", tlv.ErrInvalidLength, len(styles), count)
	}
	line := syntax.LineTokens{Line: lineNo, Tokens: make([]syntax.Token, 0, count)}
	for i := 0; i < count; i++ {
		off := i * packedTokenLen
		line.Tokens = append(line.Tokens, syntax.Token{
			Start: binary.BigEndian.Uint32(tf.Value[off : off+4]),
			End:   binary.BigEndian.Uint32(tf.Value[off+4 : off+8]),
			Type:  syntax.TokenType(binary.BigEndian.Uint16(tf.Value[off+8 : off+10])),
			Style: styles[i],
		})
	}
	return line, nil
}

func textField(fields []tlv.Field, id uint16) (string, error) {
	f, ok := tlv.GetField(fields, id)
	if !ok {
		return "", fmt.Errorf("missing field %d", id)
	}
	return f.Text()
}

func u32Field(fields []tlv.Field, id uint16) (uint32, error) {
	f, ok := tlv.GetField(fields, id)
	if !ok {
		return 0, fmt.Errorf("missing field %d", id)
	}
	return f.Uint32()
}

func u64Field(fields []tlv.Field, id uint16) (uint64, error) {
	f, ok := tlv.GetField(fields, id)
	if !ok {
		return 0, fmt.Errorf("missing field %d", id)
	}
	return f.Uint64()
}

func mapField(fields []tlv.Field, id uint16) (map[string]string, error) {
	f, ok := tlv.GetField(fields, id)
	if !ok {
		return nil, fmt.Errorf("missing field %d", id)
	}
	return tlv.DecodeStringMap(f.Value)
}
