// Package undo sequences entity commands into a linear undo history.
package undo

import (
	"errors"
	"fmt"

	"github.com/zeusync/entityundo/internal/core/command"
	"github.com/zeusync/entityundo/internal/core/observability/log"
)

var (
	ErrNilCommand    = errors.New("nil command")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	// ErrCorrupted is returned once any command failed. The entity it
	// touched may no longer match the history, so the stack stops.
	ErrCorrupted = errors.New("undo history corrupted")
)

// Stack holds applied commands below the cursor and undone commands above
// it. Pushing drops everything above the cursor.
type Stack struct {
	commands  []command.Command
	cursor    int
	limit     int
	corrupted error
	logger    log.Log
}

// New returns an empty stack. A positive limit evicts the oldest commands.
func New(limit int, logger log.Log) *Stack {
	if limit < 0 {
		limit = 0
	}
	return &Stack{limit: limit, logger: logger}
}

// Push records an already applied command.
func (s *Stack) Push(cmd command.Command) error {
	if s.corrupted != nil {
		return s.corrupted
	}
	if cmd == nil {
		return ErrNilCommand
	}

	for i := s.cursor; i < len(s.commands); i++ {
		s.commands[i] = nil
	}
	s.commands = append(s.commands[:s.cursor], cmd)
	if s.limit > 0 && len(s.commands) > s.limit {
		evicted := len(s.commands) - s.limit
		n := copy(s.commands, s.commands[evicted:])
		for i := n; i < len(s.commands); i++ {
			s.commands[i] = nil
		}
		s.commands = s.commands[:n]
	}
	s.cursor = len(s.commands)

	s.logger.Debug("command pushed",
		log.CommandID(cmd.ID()),
		log.String("label", cmd.Label()),
		log.Int("depth", s.cursor),
	)
	return nil
}

func (s *Stack) Undo() error {
	if s.corrupted != nil {
		return s.corrupted
	}
	if !s.CanUndo() {
		return ErrNothingToUndo
	}
	cmd := s.commands[s.cursor-1]
	if err := cmd.Undo(); err != nil {
		return s.corrupt("undo", cmd, err)
	}
	s.cursor--
	return nil
}

func (s *Stack) Redo() error {
	if s.corrupted != nil {
		return s.corrupted
	}
	if !s.CanRedo() {
		return ErrNothingToRedo
	}
	cmd := s.commands[s.cursor]
	if err := cmd.Redo(); err != nil {
		return s.corrupt("redo", cmd, err)
	}
	s.cursor++
	return nil
}

func (s *Stack) CanUndo() bool { return s.corrupted == nil && s.cursor > 0 }
func (s *Stack) CanRedo() bool { return s.corrupted == nil && s.cursor < len(s.commands) }

// UndoLabel names the command Undo would revert.
func (s *Stack) UndoLabel() string {
	if !s.CanUndo() {
		return ""
	}
	return s.commands[s.cursor-1].Label()
}

// RedoLabel names the command Redo would reapply.
func (s *Stack) RedoLabel() string {
	if !s.CanRedo() {
		return ""
	}
	return s.commands[s.cursor].Label()
}

func (s *Stack) Len() int { return len(s.commands) }

// Corrupted returns the error that stopped the stack, or nil.
func (s *Stack) Corrupted() error { return s.corrupted }

// Clear drops the whole history, including a corruption.
func (s *Stack) Clear() {
	s.commands = nil
	s.cursor = 0
	s.corrupted = nil
}

func (s *Stack) corrupt(op string, cmd command.Command, err error) error {
	s.corrupted = fmt.Errorf("%w: %s %q: %w", ErrCorrupted, op, cmd.Label(), err)
	s.logger.Error("undo history corrupted",
		log.CommandID(cmd.ID()),
		log.String("op", op),
		log.Error(err),
	)
	return s.corrupted
}
