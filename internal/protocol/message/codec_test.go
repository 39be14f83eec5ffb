package message

import (
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/syntaxworker/internal/protocol/schema"
	"github.com/danmuck/syntaxworker/internal/protocol/tlv"
	"github.com/danmuck/syntaxworker/internal/syntax"
	"github.com/danmuck/syntaxworker/internal/testutil/testlog"
)

func TestClientRoundTrip(t *testing.T) {
	testlog.Start(t)
	cases := []Client{
		Echo{Text: "ping"},
		Initialize{
			LanguageInfo: map[string]string{"go": "source.go"},
			Setup:        map[string]string{"root": "/tmp"},
		},
		RunHealthCheck{},
		BufferEnter{BufferID: 1, Filetype: "plaintext"},
		ConfigurationChanged{Configuration: map[string]string{"syntax.maxLineLength": "80"}},
		ThemeChanged{Theme: map[string]string{"keyword": "bold"}},
		BufferUpdate{
			Update: syntax.Update{BufferID: 7, Version: 3, StartLine: 2, EndLine: 4, IsFull: false},
			Lines:  []string{"a", "", "c"},
			Scope:  "source.go",
		},
		VisibleRangesChanged{Ranges: []syntax.VisibleRange{
			{BufferID: 1, Lines: syntax.LineRange{Start: 0, End: 40}},
			{BufferID: 9, Lines: syntax.LineRange{Start: 100, End: 120}},
		}},
		Close{},
		SimulateMessageException{},
	}
	for _, want := range cases {
		payload, err := EncodeClient(want)
		if err != nil {
			t.Fatalf("encode %T: %v", want, err)
		}
		got, err := DecodeClient(payload)
		if err != nil {
			t.Fatalf("decode %T: %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip %T: got %#v want %#v", want, got, want)
		}
	}
}

func TestTokenUpdateRoundTrip(t *testing.T) {
	testlog.Start(t)
	want := TokenUpdate{Batch: []syntax.BufferTokens{
		{
			BufferID: 1,
			Version:  4,
			Lines: []syntax.LineTokens{
				{Line: 0, Tokens: []syntax.Token{
					{Start: 0, End: 4, Type: syntax.TokenKeyword, Style: "bold"},
					{Start: 5, End: 9, Type: syntax.TokenIdentifier, Style: ""},
				}},
				{Line: 1, Tokens: []syntax.Token{}},
			},
		},
		{BufferID: 2, Version: 1},
	}}
	payload, err := EncodeServer(want)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeServer(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip: got %#v want %#v", got, want)
	}
}

func TestUnknownClientTagIsCatchAll(t *testing.T) {
	testlog.Start(t)
	payload := tlv.EncodeFields([]tlv.Field{
		tlv.U16(schema.FieldTag, 4242),
		tlv.U8(schema.FieldVersion, 3),
		tlv.String(schema.FieldText, "from the future"),
	})
	msg, err := DecodeClient(payload)
	if err != nil {
		t.Fatalf("decode unknown: %v", err)
	}
	u, ok := msg.(Unknown)
	if !ok {
		t.Fatalf("expected Unknown, got %T", msg)
	}
	if u.Tag != 4242 || u.Version != 3 {
		t.Fatalf("unexpected unknown: %#v", u)
	}
}

func TestServerTagFromClientIsUnknown(t *testing.T) {
	testlog.Start(t)
	payload, err := EncodeServer(Closing{})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := DecodeClient(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := msg.(Unknown); !ok {
		t.Fatalf("expected Unknown, got %T", msg)
	}
}

func TestDecodeClientErrors(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name    string
		payload []byte
		inner   error
	}{
		{
			name:    "truncated",
			payload: []byte{0x00, 0x01, tlv.TypeU16},
			inner:   tlv.ErrShortFieldHeader,
		},
		{
			name:    "missing tag",
			payload: tlv.EncodeFields([]tlv.Field{tlv.U8(schema.FieldVersion, 1)}),
			inner:   ErrMissingTag,
		},
		{
			name: "zero version",
			payload: tlv.EncodeFields([]tlv.Field{
				tlv.U16(schema.FieldTag, uint16(schema.TagEcho)),
				tlv.U8(schema.FieldVersion, 0),
				tlv.String(schema.FieldText, "x"),
			}),
			inner: ErrInvalidVersion,
		},
		{
			name: "missing required field",
			payload: tlv.EncodeFields([]tlv.Field{
				tlv.U16(schema.FieldTag, uint16(schema.TagBufferEnter)),
				tlv.U8(schema.FieldVersion, 1),
				tlv.U64(schema.FieldBufferID, 1),
			}),
		},
		{
			name: "bad visible range length",
			payload: tlv.EncodeFields([]tlv.Field{
				tlv.U16(schema.FieldTag, uint16(schema.TagVisibleRangesChanged)),
				tlv.U8(schema.FieldVersion, 1),
				tlv.Bytes(schema.FieldVisibleRanges, []byte{1, 2, 3}),
			}),
			inner: tlv.ErrInvalidLength,
		},
	}
	for _, tc := range cases {
		_, err := DecodeClient(tc.payload)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !errors.Is(err, ErrDecode) {
			t.Fatalf("%s: expected ErrDecode, got %v", tc.name, err)
		}
		if tc.inner != nil && !errors.Is(err, tc.inner) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.inner, err)
		}
	}
}

func TestMissingFieldIsValidationError(t *testing.T) {
	testlog.Start(t)
	payload := tlv.EncodeFields([]tlv.Field{
		tlv.U16(schema.FieldTag, uint16(schema.TagEcho)),
		tlv.U8(schema.FieldVersion, 1),
	})
	_, err := DecodeClient(payload)
	var verr schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.FieldID != schema.FieldText {
		t.Fatalf("unexpected field id %d", verr.FieldID)
	}
}

func TestEncodeServerLog(t *testing.T) {
	testlog.Start(t)
	payload, err := EncodeServer(Log{Text: "exception: boom"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	msg, err := DecodeServer(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := msg.(Log).Text; got != "exception: boom" {
		t.Fatalf("unexpected log text %q", got)
	}
}
