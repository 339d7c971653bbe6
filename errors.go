// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// errors.go — sentinel error variables returned by the public savestate API,
// covering class registration, slot storage, pass preconditions, latent
// load actions and hook failures.

// Package savestate persists engine objects and actors into per-player save
// games and restores them later, rebuilding the object references between
// them by stable name.
package savestate

import "errors"

// Class errors
var (
	ErrClassNotFound  = errors.New("savestate: class not registered")
	ErrClassDuplicate = errors.New("savestate: class already registered")
	ErrInvalidModel   = errors.New("savestate: model must be a non-nil pointer to a struct implementing Object")
)

// Slot errors
var (
	ErrSlotNotFound = errors.New("savestate: save slot not found")
	ErrDecodeFailed = errors.New("savestate: failed to decode stored save game")
	ErrEncodeFailed = errors.New("savestate: failed to encode save game for storage")
	ErrUnavailable  = errors.New("savestate: system closed")
)

// Precondition errors
var (
	ErrInvalidPlayerName = errors.New("savestate: player name is empty or None")
	ErrNilWorld          = errors.New("savestate: world is nil")
	ErrNilController     = errors.New("savestate: player controller is nil")
	ErrNilSaveGame       = errors.New("savestate: save game is nil")
	ErrNilObject         = errors.New("savestate: object is nil")
	ErrUnsupported       = errors.New("savestate: operation not supported by this world")
)

// Pass errors
var (
	ErrPassInFlight   = errors.New("savestate: a save or load pass is already running on this save game")
	ErrActionInFlight = errors.New("savestate: a load action with this key is already registered")
	ErrAborted        = errors.New("savestate: load action aborted")
)

// Config errors
var (
	ErrInvalidConfig = errors.New("savestate: invalid configuration")
)

// Hook errors
var (
	ErrHookPanic = errors.New("savestate: hook panicked")
)
