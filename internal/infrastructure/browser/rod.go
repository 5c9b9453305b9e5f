package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodLauncher starts a headless Chromium per session through go-rod.
type RodLauncher struct {
	bin string
}

var _ Launcher = (*RodLauncher)(nil)

// NewRodLauncher uses bin as browser binary when set, otherwise rod's
// lookup/download logic.
func NewRodLauncher(bin string) *RodLauncher {
	return &RodLauncher{bin: bin}
}

// NewSession launches a browser process and opens a blank page in it.
func (r *RodLauncher) NewSession(ctx context.Context) (Session, error) {
	l := launcher.New().Headless(true)
	if r.bin != "" {
		l = l.Bin(r.bin)
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &rodSession{launcher: l, browser: b, page: page}, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	return s.page.Context(ctx).Navigate(url)
}

func (s *rodSession) Ready(selector string) (bool, error) {
	has, _, err := s.page.Has(selector)
	return has, err
}

func (s *rodSession) HTML() (string, error) {
	return s.page.HTML()
}

// Close tears down the page, the browser connection and the process.
func (s *rodSession) Close() error {
	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close page: %w", err))
	}
	if err := s.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	s.launcher.Kill()
	s.launcher.Cleanup()
	return errors.Join(errs...)
}
