package main

import "github.com/gen2brain/beeep"

const appTitle = "Witty AI"

// notifier shows a one-shot desktop notification.
type notifier interface {
	Show(title, body string) error
}

// desktopNotifier uses the OS notification center via beeep.
type desktopNotifier struct{}

func (desktopNotifier) Show(title, body string) error {
	return beeep.Notify(title, body, "")
}
