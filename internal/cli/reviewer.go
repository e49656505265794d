package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// ReviewItem is a suggestion shown to the user with its statement text.
type ReviewItem struct {
	Description string
	Suggestion  model.Result
}

// Reviewer asks the user to confirm AI suggestions that were too uncertain
// to apply automatically.
type Reviewer struct {
	reader     *LineReader
	writer     io.Writer
	categories []string
}

// NewReviewer creates a reviewer. categories are the names a user may type
// when overriding a suggestion; an empty list accepts anything.
func NewReviewer(r io.Reader, w io.Writer, categories []string) *Reviewer {
	return &Reviewer{
		reader:     NewLineReader(r),
		writer:     w,
		categories: categories,
	}
}

// Review walks items in order and returns the corrections the user made.
// Quitting or running out of input ends the review early without error.
func (rv *Reviewer) Review(ctx context.Context, householdID string, items []ReviewItem) ([]model.Correction, error) {
	var corrections []model.Correction

	for i, item := range items {
		if err := rv.show(i+1, len(items), item); err != nil {
			return corrections, err
		}

		choice, err := rv.promptChoice(ctx)
		if errors.Is(err, io.EOF) {
			return corrections, nil
		}
		if err != nil {
			return corrections, err
		}

		var category string
		switch choice {
		case "a":
			category = item.Suggestion.Category
		case "c":
			category, err = rv.promptCategory(ctx)
			if errors.Is(err, io.EOF) {
				return corrections, nil
			}
			if err != nil {
				return corrections, err
			}
		case "s":
			continue
		case "q":
			return corrections, nil
		}

		corrections = append(corrections, model.Correction{
			HouseholdID:   householdID,
			TransactionID: item.Suggestion.TransactionID,
			Description:   item.Description,
			NewCategory:   category,
		})
	}

	return corrections, nil
}

func (rv *Reviewer) show(n, total int, item ReviewItem) error {
	content := fmt.Sprintf("%s\n%s %s %s",
		BoldStyle.Render(item.Description),
		RobotIcon,
		SuccessStyle.Render(item.Suggestion.Category),
		SubtleStyle.Render(fmt.Sprintf("(%.0f%% confident)", item.Suggestion.Confidence*100)),
	)
	title := fmt.Sprintf("Suggestion %d of %d", n, total)
	if _, err := fmt.Fprintln(rv.writer, RenderBox(title, content)); err != nil {
		return fmt.Errorf("failed to write suggestion: %w", err)
	}
	if _, err := fmt.Fprintln(rv.writer, "  [A] Accept  [C] Choose another category  [S] Skip  [Q] Quit"); err != nil {
		return fmt.Errorf("failed to write options: %w", err)
	}
	return nil
}

func (rv *Reviewer) prompt(ctx context.Context, label string) (string, error) {
	if _, err := fmt.Fprint(rv.writer, FormatPrompt(label)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	return rv.reader.ReadLine(ctx)
}

// promptChoice asks until the user enters one of a, c, s or q. Enter accepts.
func (rv *Reviewer) promptChoice(ctx context.Context) (string, error) {
	for {
		choice, err := rv.prompt(ctx, "Choice [a/c/s/q]")
		if err != nil {
			return "", err
		}
		choice = strings.ToLower(choice)
		switch choice {
		case "":
			return "a", nil
		case "a", "c", "s", "q":
			return choice, nil
		}
		if _, err := fmt.Fprintln(rv.writer, FormatWarning(fmt.Sprintf("unknown choice %q", choice))); err != nil {
			return "", fmt.Errorf("failed to write warning: %w", err)
		}
	}
}

func (rv *Reviewer) promptCategory(ctx context.Context) (string, error) {
	for {
		category, err := rv.prompt(ctx, "Category")
		if err != nil {
			return "", err
		}
		category = strings.ToLower(category)
		if category == "" {
			continue
		}
		if len(rv.categories) == 0 || slices.Contains(rv.categories, category) {
			return category, nil
		}
		if _, err := fmt.Fprintln(rv.writer, FormatWarning(
			fmt.Sprintf("unknown category %q, choose one of: %s", category, strings.Join(rv.categories, ", ")))); err != nil {
			return "", fmt.Errorf("failed to write warning: %w", err)
		}
	}
}
