// Package notify broadcasts short messages to the Shoutrrr URLs configured
// for the installation (ntfy, Discord, Telegram, SMTP, ...).
//
// Delivery is asynchronous and best effort: failures are logged and never
// reach the caller.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/containrrr/shoutrrr"
	"github.com/sirupsen/logrus"
)

// Broadcaster sends every message to all configured URLs.
type Broadcaster struct {
	urls []string
	send func(url, message string) error
	log  logrus.FieldLogger
	wg   sync.WaitGroup
}

// NewBroadcaster creates a Broadcaster. Each entry may itself hold several
// URLs separated by commas or newlines.
func NewBroadcaster(urls []string, log logrus.FieldLogger) *Broadcaster {
	if log == nil {
		log = logrus.StandardLogger()
	}
	var all []string
	for _, u := range urls {
		all = append(all, parseURLs(u)...)
	}
	return &Broadcaster{urls: all, send: shoutrrr.Send, log: log}
}

// Enabled reports whether any URL is configured.
func (b *Broadcaster) Enabled() bool { return b != nil && len(b.urls) > 0 }

// Validate checks that every URL names a known Shoutrrr service.
func (b *Broadcaster) Validate() error {
	if !b.Enabled() {
		return nil
	}
	if _, err := shoutrrr.CreateSender(b.urls...); err != nil {
		return fmt.Errorf("notify: invalid url: %w", err)
	}
	return nil
}

// Broadcast sends title and body in the background.
func (b *Broadcaster) Broadcast(_ context.Context, title, body string) {
	if !b.Enabled() {
		return
	}
	msg := buildBody(title, body)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for _, u := range b.urls {
			if err := b.send(u, msg); err != nil {
				b.log.WithError(err).WithField("url", maskURL(u)).Warn("notify: broadcast send failed")
			}
		}
	}()
}

// Wait blocks until pending broadcasts have finished.
func (b *Broadcaster) Wait() {
	if b != nil {
		b.wg.Wait()
	}
}

// Test sends a test message synchronously to every URL.
func (b *Broadcaster) Test() error {
	if !b.Enabled() {
		return errors.New("notify: no broadcast urls configured")
	}
	var errs []string
	for _, u := range b.urls {
		if err := b.send(u, "Helix test: if you see this, notifications are working!"); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", maskURL(u), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %s", strings.Join(errs, "; "))
	}
	return nil
}

func buildBody(title, body string) string {
	if body == "" {
		return title
	}
	return title + "\n" + body
}

// parseURLs splits a comma-or-newline-separated URL string and trims whitespace.
func parseURLs(urlsStr string) []string {
	urlsStr = strings.ReplaceAll(urlsStr, "\n", ",")
	var urls []string
	for _, p := range strings.Split(urlsStr, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

// maskURL hides credentials in a Shoutrrr URL for logging.
func maskURL(u string) string {
	if len(u) <= 5 {
		return "••••"
	}
	if len(u) <= 15 {
		return u[:5] + "••••"
	}
	return u[:15] + "••••"
}
