// Package message defines the protocol variants exchanged with the parent
// editor and their tagged TLV encoding.
//
// Every payload carries a variant tag and a payload version followed by the
// variant's fields. Client payloads with an unrecognized tag decode to
// Unknown rather than failing, so older workers tolerate newer editors.
package message

import (
	"github.com/danmuck/syntaxworker/internal/protocol/schema"
	"github.com/danmuck/syntaxworker/internal/syntax"
)

// Client is a message sent by the parent editor.
type Client interface {
	ClientTag() schema.Tag
}

// Server is a message sent by the worker.
type Server interface {
	ServerTag() schema.Tag
}

type Echo struct {
	Text string
}

type Initialize struct {
	LanguageInfo map[string]string
	Setup        map[string]string
}

type RunHealthCheck struct{}

type BufferEnter struct {
	BufferID syntax.BufferID
	Filetype string
}

type ConfigurationChanged struct {
	Configuration map[string]string
}

type ThemeChanged struct {
	Theme map[string]string
}

type BufferUpdate struct {
	Update syntax.Update
	Lines  []string
	Scope  string
}

type VisibleRangesChanged struct {
	Ranges []syntax.VisibleRange
}

type Close struct{}

type SimulateMessageException struct{}

// Unknown is any client variant this build does not recognize.
type Unknown struct {
	Tag     schema.Tag
	Version uint8
}

func (Echo) ClientTag() schema.Tag                 { return schema.TagEcho }
func (Initialize) ClientTag() schema.Tag           { return schema.TagInitialize }
func (RunHealthCheck) ClientTag() schema.Tag       { return schema.TagRunHealthCheck }
func (BufferEnter) ClientTag() schema.Tag          { return schema.TagBufferEnter }
func (ConfigurationChanged) ClientTag() schema.Tag { return schema.TagConfigurationChanged }
func (ThemeChanged) ClientTag() schema.Tag         { return schema.TagThemeChanged }
func (BufferUpdate) ClientTag() schema.Tag         { return schema.TagBufferUpdate }
func (VisibleRangesChanged) ClientTag() schema.Tag { return schema.TagVisibleRangesChanged }
func (Close) ClientTag() schema.Tag                { return schema.TagClose }
func (SimulateMessageException) ClientTag() schema.Tag {
	return schema.TagSimulateMessageException
}
func (u Unknown) ClientTag() schema.Tag { return u.Tag }

type EchoReply struct {
	Text string
}

type Initialized struct{}

type HealthCheckPass struct {
	Passed bool
}

type TokenUpdate struct {
	Batch []syntax.BufferTokens
}

type Closing struct{}

type Log struct {
	Text string
}

func (EchoReply) ServerTag() schema.Tag       { return schema.TagEchoReply }
func (Initialized) ServerTag() schema.Tag     { return schema.TagInitialized }
func (HealthCheckPass) ServerTag() schema.Tag { return schema.TagHealthCheckPass }
func (TokenUpdate) ServerTag() schema.Tag     { return schema.TagTokenUpdate }
func (Closing) ServerTag() schema.Tag         { return schema.TagClosing }
func (Log) ServerTag() schema.Tag             { return schema.TagLog }
