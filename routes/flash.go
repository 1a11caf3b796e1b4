/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/gob"

	"github.com/flamego/session"
	"github.com/flamego/template"
)

// FlashType represents the type of flash message
type FlashType string

const (
	FlashError   FlashType = "error"
	FlashSuccess FlashType = "success"
	FlashWarning FlashType = "warning"
	FlashInfo    FlashType = "info"
)

// FlashMessage represents a flash message to be displayed to the user
type FlashMessage struct {
	Type    FlashType
	Message string
}

func init() {
	gob.Register(FlashMessage{})
	gob.Register([]FlashMessage{})
}

// SetFlashes stores messages to be shown on the next page. A later call
// replaces the earlier one.
func SetFlashes(s session.Session, messages ...FlashMessage) {
	if len(messages) == 0 {
		return
	}

	s.SetFlash(messages)
}

// SetErrorFlash sets an error flash message in the session
func SetErrorFlash(s session.Session, message string) {
	SetFlashes(s, FlashMessage{Type: FlashError, Message: message})
}

// SetSuccessFlash sets a success flash message in the session
func SetSuccessFlash(s session.Session, message string) {
	SetFlashes(s, FlashMessage{Type: FlashSuccess, Message: message})
}

// SetWarningFlash sets a warning flash message in the session
func SetWarningFlash(s session.Session, message string) {
	SetFlashes(s, FlashMessage{Type: FlashWarning, Message: message})
}

// FlashMessages normalizes whatever the session carried over.
func FlashMessages(flash session.Flash) []FlashMessage {
	switch v := flash.(type) {
	case []FlashMessage:
		return v
	case FlashMessage:
		return []FlashMessage{v}
	}

	return nil
}

// FlashInjector exposes pending flash messages to templates as "Flashes".
func FlashInjector() func(flash session.Flash, data template.Data) {
	return func(flash session.Flash, data template.Data) {
		if messages := FlashMessages(flash); len(messages) > 0 {
			data["Flashes"] = messages
		}
	}
}
