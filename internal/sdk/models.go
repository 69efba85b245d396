package sdk

import (
	"time"

	"github.com/google/uuid"
)

type ThreadState string

const (
	ThreadPending  ThreadState = "pending"
	ThreadReceived ThreadState = "received"
	ThreadLoaded   ThreadState = "loaded"
	ThreadReady    ThreadState = "ready"
	ThreadClosed   ThreadState = "closed"
)

type Direction string

const (
	ToAgent  Direction = "toAgent"
	ToClient Direction = "toClient"
)

// Agent is the person (or bot) assigned to a thread.
type Agent struct {
	ID        int
	FirstName string
	LastName  string
	NickName  string
	IsBot     bool
	ImageURL  string
}

// Thread is the SDK's conversation object. Messages are as the SDK keeps
// them: possibly duplicated across page loads and in arrival order.
type Thread struct {
	ID                    uuid.UUID
	Name                  string
	State                 ThreadState
	AssignedAgent         *Agent
	LastAssignedAgent     *Agent
	CustomFields          map[string]string
	ScrollToken           string
	HasMoreMessagesToLoad bool
	Messages              []Message
}

// Message is immutable once created by the SDK.
type Message struct {
	ID          uuid.UUID
	ThreadID    uuid.UUID
	CreatedAt   time.Time
	Direction   Direction
	Content     Content
	Attachments []Attachment
	Statistics  UserStatistics
	Author      *Agent
}

type Attachment struct {
	URL          string
	FriendlyName string
	MimeType     string
	FileName     string
}

// UserStatistics records delivery metadata for a message.
type UserStatistics struct {
	SeenAt *time.Time
	ReadAt *time.Time
}

// ContentDescriptor is an attachment handed to the SDK for upload, either
// by URL or as inline bytes.
type ContentDescriptor struct {
	URL          string
	Data         []byte
	MimeType     string
	FileName     string
	FriendlyName string
}

// OutboundMessage is what the application sends into a thread.
type OutboundMessage struct {
	Content     Content
	Attachments []ContentDescriptor
	Postback    *string
}

// PreChatSurvey is the form collected before a thread is created.
type PreChatSurvey struct {
	Name   string
	Fields []SurveyField
}

type SurveyFieldKind string

const (
	SurveyText         SurveyFieldKind = "text"
	SurveySelector     SurveyFieldKind = "selector"
	SurveyHierarchical SurveyFieldKind = "hierarchical"
)

type SurveyField struct {
	Ident    string
	Label    string
	Kind     SurveyFieldKind
	Required bool
	IsEmail  bool
	Options  []SurveyOption
}

type SurveyOption struct {
	ID       string
	Label    string
	Children []SurveyOption
}

// ChannelConfiguration is the subset of the SDK's configuration type the
// bridge knows about. Other configuration types are encoded reflectively.
type ChannelConfiguration struct {
	HasMultipleThreadsPerEndUser bool
	IsProactiveChatEnabled       bool
	IsAuthorizationEnabled       bool
	IsLiveChat                   bool
	FileRestrictions             FileRestrictions
	Features                     map[string]bool
	PreChatSurvey                *PreChatSurvey
}

type FileRestrictions struct {
	AllowedFileSize      int
	AllowedFileTypes     []AllowedFileType
	IsAttachmentsEnabled bool
}

type AllowedFileType struct {
	MimeType    string
	Description string
}
