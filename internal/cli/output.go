package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dov85/Apartment/internal/listing/domain"
)

// Error codes in JSON output. They are stable for scripts.
const (
	ErrCodeNotFound     = "LISTING_NOT_FOUND"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeImage        = "IMAGE_ERROR"
	ErrCodeNoBackend    = "NO_UPLOAD_BACKEND"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

var (
	accent = lipgloss.NewStyle().Foreground(lipgloss.Color("#A78BFA"))
	muted  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	bold   = lipgloss.NewStyle().Bold(true)
)

const (
	symbolSuccess = "✓"
	symbolWarning = "⚠"
)

// Response is the JSON envelope for every command.
type Response struct {
	OK       bool       `json:"ok"`
	Data     any        `json:"data,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w io.Writer, resp Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func successLine(format string, args ...any) string {
	return fmt.Sprintf("%s %s", symbolSuccess, fmt.Sprintf(format, args...))
}

func warningLine(msg string) string {
	return fmt.Sprintf("%s %s", symbolWarning, msg)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		return ErrCodeNotFound
	case errors.Is(err, domain.ErrInvalidListingData), errors.Is(err, domain.ErrMalformedImageRef):
		return ErrCodeInvalidInput
	case errors.Is(err, domain.ErrNoUploadBackend):
		return ErrCodeNoBackend
	case errors.Is(err, domain.ErrImageNotFound):
		return ErrCodeImage
	default:
		return ErrCodeInternal
	}
}

// printer renders command results either as the JSON envelope or as
// human-readable text.
type printer struct {
	w        io.Writer
	json     bool
	warnings []string
}

func (p *printer) warn(msg string) {
	p.warnings = append(p.warnings, msg)
	if !p.json {
		fmt.Fprintln(p.w, warningLine(msg))
	}
}

// done emits data; text is only called in human mode.
func (p *printer) done(data any, text func(w io.Writer)) error {
	if p.json {
		return writeJSON(p.w, Response{OK: true, Data: data, Warnings: p.warnings})
	}
	text(p.w)
	return nil
}

// fail reports err in JSON mode and returns it so cobra exits non-zero.
func (p *printer) fail(err error) error {
	if p.json {
		_ = writeJSON(p.w, Response{OK: false, Error: &ErrorInfo{Code: errorCode(err), Message: err.Error()}, Warnings: p.warnings})
	}
	return err
}

// saved turns a remote write failure into a warning: the local cache
// already holds the change.
func (p *printer) saved(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrRemoteWriteFailed) {
		p.warn("saved on this device only; the shared copy was not updated")
		return nil
	}
	return err
}

func formatListing(w io.Writer, l domain.Listing) {
	title := l.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Fprintf(w, "%s  %s\n", bold.Render(title), muted.Render(l.ID))

	var parts []string
	if addr := joinNonEmpty(", ", l.Address.Street, l.Address.City); addr != "" {
		parts = append(parts, addr)
	}
	if l.Price > 0 {
		parts = append(parts, fmt.Sprintf("%d", l.Price))
	}
	if l.Rooms != "" {
		parts = append(parts, l.Rooms+" rooms")
	}
	parts = append(parts, accent.Render(string(l.Status)))
	fmt.Fprintf(w, "  %s\n", strings.Join(parts, " · "))

	if len(l.Images) > 0 {
		fmt.Fprintf(w, "  %s\n", muted.Render(fmt.Sprintf("%d image(s), cover %s", len(l.Images), l.Images[0].String())))
	}
	if l.Reminder != nil {
		fmt.Fprintf(w, "  reminder %s %s\n", l.Reminder.Date, l.Reminder.Note)
	}
}

func joinNonEmpty(sep string, values ...string) string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return strings.Join(out, sep)
}
