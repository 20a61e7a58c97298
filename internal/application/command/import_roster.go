package command

import (
	"context"
	"fmt"

	"github.com/gimsr/rotation-scheduler/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// IMPORT ROSTER COMMAND
// Replaces the stored roster with a freshly loaded one.
// ══════════════════════════════════════════════════════════════════════════════

// ImportRosterCommand contains the roster to store.
type ImportRosterCommand struct {
	Roster student.Roster

	// IncludePlaceholders stores filler students too.
	IncludePlaceholders bool
}

// ImportRosterResult contains the result of an import.
type ImportRosterResult struct {
	Stored       int
	Placeholders int
}

// ImportRosterHandler handles the ImportRosterCommand.
type ImportRosterHandler struct {
	repo student.Repository
}

// NewImportRosterHandler creates a new ImportRosterHandler.
func NewImportRosterHandler(repo student.Repository) *ImportRosterHandler {
	return &ImportRosterHandler{repo: repo}
}

// Handle executes the import roster command.
func (h *ImportRosterHandler) Handle(ctx context.Context, cmd ImportRosterCommand) (*ImportRosterResult, error) {
	result := &ImportRosterResult{}

	keep := make(student.Roster, 0, len(cmd.Roster))
	for _, s := range cmd.Roster {
		if s.IsPlaceholder() {
			result.Placeholders++
			if !cmd.IncludePlaceholders {
				continue
			}
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("import_roster: %w", err)
		}
		keep = append(keep, s)
	}

	if err := h.repo.ReplaceAll(ctx, keep); err != nil {
		return nil, fmt.Errorf("import_roster: failed to store roster: %w", err)
	}

	result.Stored = len(keep)
	return result, nil
}
