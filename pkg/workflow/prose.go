package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Prose edit options.
const (
	ProseContinue = "continue"
	ProseImprove  = "improve"
	ProseShorter  = "shorter"
	ProseLonger   = "longer"
	ProseFix      = "fix"
	ProseZap      = "zap"
)

var (
	// ErrUnknownProseOption is returned for an option outside ProseOptions.
	ErrUnknownProseOption = errors.New("unknown prose option")

	// ErrMissingProseCommand is returned when a zap request has no command.
	ErrMissingProseCommand = errors.New("prose zap requires a command")
)

var proseInstructions = map[string]string{
	ProseContinue: "Continue the text. Write the next sentences only, matching its voice.",
	ProseImprove:  "Improve the text. Keep its meaning and return only the rewritten text.",
	ProseShorter:  "Make the text shorter. Keep the key points and return only the result.",
	ProseLonger:   "Make the text longer with relevant detail. Return only the result.",
	ProseFix:      "Fix spelling and grammar in the text. Change nothing else.",
	ProseZap:      "Apply the user's command to the text. Return only the result.",
}

// ProseOptions lists the accepted prose options.
func ProseOptions() []string {
	return []string{ProseContinue, ProseImprove, ProseShorter, ProseLonger, ProseFix, ProseZap}
}

// ProseRequest is the body of POST /api/prose/generate.
type ProseRequest struct {
	Prompt  string `json:"prompt"`
	Option  string `json:"option"`
	Command string `json:"command,omitempty"`
}

// Validate checks the option and, for zap, the command.
func (p ProseRequest) Validate() error {
	if _, ok := proseInstructions[p.Option]; !ok {
		return fmt.Errorf("%w: %q (available: %s)", ErrUnknownProseOption, p.Option, strings.Join(ProseOptions(), ", "))
	}
	if p.Option == ProseZap && strings.TrimSpace(p.Command) == "" {
		return ErrMissingProseCommand
	}
	return nil
}

// Request converts a validated prose request into an engine run: the option's
// instruction as the system turn and the text, plus any command, as the user
// turn.
func (p ProseRequest) Request(threadID string) Request {
	user := p.Prompt
	if p.Command != "" {
		user = "Command: " + p.Command + "\n\n" + p.Prompt
	}

	return Request{
		ThreadID: threadID,
		Messages: []Message{
			{Role: "system", Content: proseInstructions[p.Option]},
			{Role: "user", Content: user},
		},
		AutoAcceptedPlan: true,
		ProseOption:      p.Option,
		ProseText:        p.Prompt,
	}
}
