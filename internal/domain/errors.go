package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownAgent       = errors.New("unknown agent")
	ErrMemoryStoreCorrupt = errors.New("memory store corrupt")
	ErrInvocationTimeout  = errors.New("invocation timed out")
	ErrEngineMissing      = errors.New("external engine missing")
	ErrTerminalStatus     = errors.New("invocation already in a terminal state")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvocationNotFound = errors.New("invocation not found")
	ErrNoAgentsResolved   = errors.New("no agents could be resolved")
	ErrNoEngineAvailable  = errors.New("no external engine available")
	ErrUnknownPreset      = errors.New("unknown preset")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrUnsupportedEngine  = errors.New("unsupported engine")
	ErrInvalidCredential  = errors.New("invalid credential")
)

type UnknownAgentError struct {
	ID AgentID
}

func (e *UnknownAgentError) Error() string {
	return fmt.Sprintf("unknown agent %q", e.ID)
}

func (e *UnknownAgentError) Unwrap() error { return ErrUnknownAgent }

type MemoryStoreCorruptError struct {
	Path string
	Err  error
}

func (e *MemoryStoreCorruptError) Error() string {
	return fmt.Sprintf("memory store %s is corrupt: %v", e.Path, e.Err)
}

func (e *MemoryStoreCorruptError) Unwrap() []error { return []error{ErrMemoryStoreCorrupt, e.Err} }

type InvocationTimeoutError struct {
	AgentID AgentID
	Timeout time.Duration
}

func (e *InvocationTimeoutError) Error() string {
	return fmt.Sprintf("agent %s did not finish within %s", e.AgentID, e.Timeout)
}

func (e *InvocationTimeoutError) Unwrap() error { return ErrInvocationTimeout }

type ExternalEngineMissingError struct {
	Engine Engine
	Binary string
}

func (e *ExternalEngineMissingError) Error() string {
	return fmt.Sprintf("engine %s: binary %q not found on PATH", e.Engine, e.Binary)
}

func (e *ExternalEngineMissingError) Unwrap() error { return ErrEngineMissing }
