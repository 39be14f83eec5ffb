// Package schema names the message variants and fields of the worker protocol
// and enforces the required fields of each variant.
package schema

import (
	"fmt"

	"github.com/danmuck/syntaxworker/internal/protocol/tlv"
	"github.com/rs/zerolog/log"
)

// Tag identifies a message variant inside a packet payload.
type Tag uint16

// PayloadVersion is the field layout version written by this build.
const PayloadVersion uint8 = 1

// Client -> server variants.
const (
	TagEcho                     Tag = 1
	TagInitialize               Tag = 2
	TagRunHealthCheck           Tag = 3
	TagBufferEnter              Tag = 4
	TagConfigurationChanged     Tag = 5
	TagThemeChanged             Tag = 6
	TagBufferUpdate             Tag = 7
	TagVisibleRangesChanged     Tag = 8
	TagClose                    Tag = 9
	TagSimulateMessageException Tag = 10
)

// Server -> client variants.
const (
	TagEchoReply       Tag = 101
	TagInitialized     Tag = 102
	TagHealthCheckPass Tag = 103
	TagTokenUpdate     Tag = 104
	TagClosing         Tag = 105
	TagLog             Tag = 106
)

// Field IDs.
const (
	FieldTag     uint16 = 1
	FieldVersion uint16 = 2

	FieldText uint16 = 10

	FieldLanguageInfo uint16 = 20
	FieldSetup        uint16 = 21

	FieldBufferID uint16 = 30
	FieldFiletype uint16 = 31

	FieldConfiguration uint16 = 40
	FieldTheme         uint16 = 41

	FieldBufferVersion uint16 = 50
	FieldStartLine     uint16 = 51
	FieldEndLine       uint16 = 52
	FieldLines         uint16 = 53
	FieldScope         uint16 = 54
	FieldIsFull        uint16 = 55

	FieldVisibleRanges uint16 = 60

	FieldPassed uint16 = 70

	FieldTokenBatch  uint16 = 80
	FieldBatchBuffer uint16 = 81
	FieldBatchLine   uint16 = 82
	FieldLine        uint16 = 83
	FieldTokens      uint16 = 84
	FieldStyles      uint16 = 85
)

var names = map[Tag]string{
	TagEcho:                     "echo",
	TagInitialize:               "initialize",
	TagRunHealthCheck:           "run_health_check",
	TagBufferEnter:              "buffer_enter",
	TagConfigurationChanged:     "configuration_changed",
	TagThemeChanged:             "theme_changed",
	TagBufferUpdate:             "buffer_update",
	TagVisibleRangesChanged:     "visible_ranges_changed",
	TagClose:                    "close",
	TagSimulateMessageException: "simulate_message_exception",
	TagEchoReply:                "echo_reply",
	TagInitialized:              "initialized",
	TagHealthCheckPass:          "health_check_pass",
	TagTokenUpdate:              "token_update",
	TagClosing:                  "closing",
	TagLog:                      "log",
}

func (t Tag) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint16(t))
}

// Known reports whether t is a variant this build understands.
func (t Tag) Known() bool {
	_, ok := requirements[t]
	return ok
}

// IsClient reports whether t is sent by the parent editor.
func (t Tag) IsClient() bool {
	return t >= TagEcho && t <= TagSimulateMessageException
}

type Requirement struct {
	ID   uint16
	Type uint8
}

type ValidationError struct {
	Tag     Tag
	FieldID uint16
	Reason  string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: tag=%s: %s", e.Tag, e.Reason)
	}
	return fmt.Sprintf("schema: tag=%s field=%d: %s", e.Tag, e.FieldID, e.Reason)
}

var requirements = map[Tag][]Requirement{
	TagEcho: {
		{FieldText, tlv.TypeString},
	},
	TagInitialize: {
		{FieldLanguageInfo, tlv.TypeBytes},
		{FieldSetup, tlv.TypeBytes},
	},
	TagRunHealthCheck: {},
	TagBufferEnter: {
		{FieldBufferID, tlv.TypeU64},
		{FieldFiletype, tlv.TypeString},
	},
	TagConfigurationChanged: {
		{FieldConfiguration, tlv.TypeBytes},
	},
	TagThemeChanged: {
		{FieldTheme, tlv.TypeBytes},
	},
	TagBufferUpdate: {
		{FieldBufferID, tlv.TypeU64},
		{FieldBufferVersion, tlv.TypeU64},
		{FieldStartLine, tlv.TypeU32},
		{FieldEndLine, tlv.TypeU32},
		{FieldIsFull, tlv.TypeBool},
		{FieldLines, tlv.TypeBytes},
		{FieldScope, tlv.TypeString},
	},
	TagVisibleRangesChanged: {
		{FieldVisibleRanges, tlv.TypeBytes},
	},
	TagClose:                    {},
	TagSimulateMessageException: {},

	TagEchoReply: {
		{FieldText, tlv.TypeString},
	},
	TagInitialized: {},
	TagHealthCheckPass: {
		{FieldPassed, tlv.TypeBool},
	},
	TagTokenUpdate: {
		{FieldTokenBatch, tlv.TypeBytes},
	},
	TagClosing: {},
	TagLog: {
		{FieldText, tlv.TypeString},
	},
}

// Validate enforces required fields and their types for a variant.
// Unknown fields are ignored.
func Validate(tag Tag, fields []tlv.Field) error {
	reqs, ok := requirements[tag]
	if !ok {
		log.Debug().Stringer("tag", tag).Msg("schema.Validate unknown tag")
		return ValidationError{Tag: tag, Reason: "unknown tag"}
	}
	for _, req := range reqs {
		f, found := tlv.GetField(fields, req.ID)
		if !found {
			log.Debug().Stringer("tag", tag).Uint16("field_id", req.ID).Msg("schema.Validate missing field")
			return ValidationError{Tag: tag, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			log.Debug().
				Stringer("tag", tag).
				Uint16("field_id", req.ID).
				Uint8("got", f.Type).
				Uint8("want", req.Type).
				Msg("schema.Validate type mismatch")
			return ValidationError{Tag: tag, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	return nil
}
