// Package jump resolves free-form date phrases ("next friday", "tomorrow",
// "2024-03-05") to calendar days.
package jump

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"calgrid/internal/calendar"
)

// ErrNoDate is returned when the phrase contains no recognizable date.
var ErrNoDate = errors.New("jump: no date found")

// Parser wraps a when.Parser configured with English and common rules.
type Parser struct {
	w *when.Parser
}

// New builds a Parser.
func New() *Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w}
}

// Resolve interprets text relative to now. Canonical "YYYY-MM-DD" keys are
// accepted directly; everything else goes through the natural-language
// rules.
func (p *Parser) Resolve(text string, now time.Time) (calendar.Date, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return calendar.Date{}, ErrNoDate
	}
	if d, err := calendar.ParseKey(text); err == nil {
		return d, nil
	}
	switch strings.ToLower(text) {
	case "today", "now":
		return calendar.FromTime(now), nil
	}

	res, err := p.w.Parse(text, now)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("jump: parse %q: %w", text, err)
	}
	if res == nil {
		return calendar.Date{}, ErrNoDate
	}
	return calendar.FromTime(res.Time.In(now.Location())), nil
}
