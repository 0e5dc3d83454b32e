package main

import "github.com/atotto/clipboard"

// clipboardBackend is the system clipboard as plain text.
type clipboardBackend interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// realClipboard wraps atotto/clipboard (pbcopy/pbpaste, xclip/xsel/wl-clipboard, Win32).
type realClipboard struct{}

func (realClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }

func (realClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }
