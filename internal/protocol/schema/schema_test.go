package schema

import (
	"testing"

	"github.com/danmuck/syntaxworker/internal/protocol/tlv"
	"github.com/danmuck/syntaxworker/internal/testutil/testlog"
)

func bufferEnterFields() []tlv.Field {
	return []tlv.Field{
		tlv.U64(FieldBufferID, 1),
		tlv.String(FieldFiletype, "plaintext"),
	}
}

func TestValidateBufferEnterRequiredFields(t *testing.T) {
	testlog.Start(t)
	if err := Validate(TagBufferEnter, bufferEnterFields()); err != nil {
		t.Fatalf("validate buffer_enter: %v", err)
	}
}

func TestValidateUnknownFieldsIgnored(t *testing.T) {
	testlog.Start(t)
	fields := append(bufferEnterFields(), tlv.Field{ID: 9999, Type: tlv.TypeBytes, Value: []byte{0x01}})
	if err := Validate(TagBufferEnter, fields); err != nil {
		t.Fatalf("validate with unknown field: %v", err)
	}
}

func TestValidateEmptyVariants(t *testing.T) {
	testlog.Start(t)
	for _, tag := range []Tag{TagRunHealthCheck, TagClose, TagSimulateMessageException, TagInitialized, TagClosing} {
		if err := Validate(tag, nil); err != nil {
			t.Fatalf("validate %s: %v", tag, err)
		}
	}
}

func TestValidateMissingRequiredDeterministic(t *testing.T) {
	testlog.Start(t)
	err := Validate(TagBufferEnter, []tlv.Field{tlv.U64(FieldBufferID, 1)})
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
	if ve.FieldID != FieldFiletype || ve.Reason != "missing required field" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestValidateTypeMismatchDeterministic(t *testing.T) {
	testlog.Start(t)
	fields := []tlv.Field{
		tlv.U32(FieldBufferID, 1),
		tlv.String(FieldFiletype, "plaintext"),
	}
	err := Validate(TagBufferEnter, fields)
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
	if ve.FieldID != FieldBufferID || ve.Reason != "type mismatch" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestValidateUnknownTag(t *testing.T) {
	testlog.Start(t)
	err := Validate(Tag(4242), nil)
	ve, ok := err.(ValidationError)
	if !ok || ve.Reason != "unknown tag" {
		t.Fatalf("expected unknown tag error, got %v", err)
	}
	if Tag(4242).Known() {
		t.Fatalf("tag 4242 must not be known")
	}
}

func TestTagDirectionAndNames(t *testing.T) {
	testlog.Start(t)
	if !TagClose.IsClient() || TagClosing.IsClient() {
		t.Fatalf("unexpected tag direction")
	}
	if TagBufferUpdate.String() != "buffer_update" {
		t.Fatalf("unexpected name: %s", TagBufferUpdate)
	}
	if Tag(999).String() != "unknown(999)" {
		t.Fatalf("unexpected unknown name: %s", Tag(999))
	}
}
