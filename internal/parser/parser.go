// Package parser turns free-text model output into schedule blocks.
//
// Model output is untrusted. Every entry point here either returns validated
// blocks or a *FormatError; nothing panics on malformed input.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/whatodo/internal/models"
	"github.com/benvon/whatodo/internal/timeutil"
)

const (
	// MessageMarker introduces the conversational part of a chat reply
	MessageMarker = "MESSAGE:"
	// TimetableMarker introduces the replacement schedule in a chat reply
	TimetableMarker = "TIMETABLE:"

	// MaxBlocks bounds how many blocks a single reply may carry
	MaxBlocks = 200
	// MaxTitleLength bounds a block title
	MaxTitleLength = 500
)

// ErrNoPayload is the cause when no structured array can be located in the text
var ErrNoPayload = errors.New("no schedule payload found")

// FormatError means the reply could not be turned into a schedule. Callers treat
// it as "no result".
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unparseable schedule: %s: %v", e.Reason, e.Err)
	}
	return "unparseable schedule: " + e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// rawBlock mirrors the wire shape the model is asked to produce. Title is
// accepted as a fallback key since some models shorten taskTitle.
type rawBlock struct {
	TaskTitle string `json:"taskTitle"`
	Title     string `json:"title"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Reasoning string `json:"reasoning"`
}

// StripFences removes markdown code-fence markers (```json and ```) and trims the result
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json\n", "")
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```\n", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseSchedule extracts an ordered block list from a model reply.
// Surrounding prose and code fences are tolerated.
func ParseSchedule(text string) ([]models.ScheduleBlock, error) {
	raw := StripFences(text)
	if raw == "" {
		return nil, &FormatError{Reason: "empty response", Err: ErrNoPayload}
	}

	var entries []rawBlock
	if err := decode([]byte(raw), &entries); err != nil {
		return nil, err
	}
	return validate(entries)
}

// decode tries the text as-is, then the outermost [...] slice, then an object
// wrapper carrying the array under a well-known key.
func decode(raw []byte, out *[]rawBlock) error {
	if err := json.Unmarshal(raw, out); err == nil {
		return nil
	}

	start := bytes.IndexByte(raw, '[')
	end := bytes.LastIndexByte(raw, ']')
	if start != -1 && end > start {
		if err := json.Unmarshal(raw[start:end+1], out); err == nil {
			return nil
		}
	}

	start = bytes.IndexByte(raw, '{')
	end = bytes.LastIndexByte(raw, '}')
	if start != -1 && end > start {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw[start:end+1], &wrapper); err == nil {
			for _, key := range []string{"timetable", "schedule", "blocks"} {
				if inner, ok := wrapper[key]; ok {
					if err := json.Unmarshal(inner, out); err != nil {
						return &FormatError{Reason: "wrapped " + key + " is not a block list", Err: err}
					}
					return nil
				}
			}
		}
	}

	return &FormatError{Reason: "no JSON array in response", Err: ErrNoPayload}
}

func validate(entries []rawBlock) ([]models.ScheduleBlock, error) {
	if len(entries) == 0 {
		return nil, &FormatError{Reason: "schedule is empty"}
	}
	if len(entries) > MaxBlocks {
		return nil, &FormatError{Reason: fmt.Sprintf("schedule has %d blocks, limit is %d", len(entries), MaxBlocks)}
	}

	blocks := make([]models.ScheduleBlock, 0, len(entries))
	for i, e := range entries {
		title := strings.TrimSpace(e.TaskTitle)
		if title == "" {
			title = strings.TrimSpace(e.Title)
		}
		if title == "" {
			return nil, &FormatError{Reason: fmt.Sprintf("block %d has no title", i)}
		}
		if len(title) > MaxTitleLength {
			return nil, &FormatError{Reason: fmt.Sprintf("block %d title too long", i)}
		}
		start, err := timeutil.Normalize(e.StartTime)
		if err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("block %d start", i), Err: err}
		}
		end, err := timeutil.Normalize(e.EndTime)
		if err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("block %d end", i), Err: err}
		}
		if _, err := timeutil.CheckSpan(start, end); err != nil {
			return nil, &FormatError{Reason: fmt.Sprintf("block %d length", i), Err: err}
		}
		blocks = append(blocks, models.ScheduleBlock{
			TaskTitle: title,
			StartTime: start,
			EndTime:   end,
			Reasoning: strings.TrimSpace(e.Reasoning),
		})
	}
	return blocks, nil
}

// ChatReply is a parsed conversational response
type ChatReply struct {
	Message string
	// Blocks is nil when the reply carried no usable schedule.
	Blocks []models.ScheduleBlock
	// ScheduleErr is set when a schedule segment was present but malformed.
	ScheduleErr error
}

// HasSchedule reports whether the reply carries a replacement schedule
func (r ChatReply) HasSchedule() bool {
	return r.Blocks != nil
}

// ParseChat splits a MESSAGE:/TIMETABLE: reply. A malformed schedule segment
// never fails the reply; the message still comes back.
func ParseChat(text string) ChatReply {
	msgAt := strings.Index(text, MessageMarker)
	ttAt := strings.Index(text, TimetableMarker)

	var reply ChatReply
	switch {
	case msgAt != -1:
		body := text[msgAt+len(MessageMarker):]
		if cut := strings.Index(body, TimetableMarker); cut != -1 {
			body = body[:cut]
		}
		reply.Message = strings.TrimSpace(body)
	case ttAt != -1:
		reply.Message = strings.TrimSpace(text[:ttAt])
	default:
		reply.Message = strings.TrimSpace(text)
	}

	if ttAt == -1 {
		return reply
	}

	segment := text[ttAt+len(TimetableMarker):]
	start := strings.Index(segment, "[")
	end := strings.LastIndex(segment, "]")
	if start == -1 || end < start {
		reply.ScheduleErr = &FormatError{Reason: "timetable marker without array", Err: ErrNoPayload}
		return reply
	}
	blocks, err := ParseSchedule(segment[start : end+1])
	if err != nil {
		reply.ScheduleErr = err
		return reply
	}
	reply.Blocks = blocks
	return reply
}
