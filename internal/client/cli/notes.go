package cli

import (
	"context"
	"fmt"
)

// List prints the caller's notes, filtered by query when it is not empty.
func (a *App) List(ctx context.Context, query string) error {
	notes, err := a.noteService.List(ctx, query)
	if err != nil {
		a.report("Listing failed", err)
		return err
	}
	if len(notes) == 0 {
		fmt.Fprintln(a.out, "No notes")
		return nil
	}
	for _, n := range notes {
		fmt.Fprintln(a.out, n.Summary())
	}
	return nil
}

func (a *App) AddNote(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter title", a.out)
	if err != nil {
		return err
	}
	content, err := getMultiline(a.reader, "Enter content", a.out)
	if err != nil {
		return err
	}

	n, err := a.noteService.Add(ctx, title, content)
	if err != nil {
		a.report("Note not saved", err)
		return err
	}
	fmt.Fprintln(a.out, "Saved note", n.ID)
	return nil
}

// EditNote replaces the title and content of note id.
func (a *App) EditNote(ctx context.Context, id string) error {
	title, err := getSimpleText(a.reader, "Enter new title", a.out)
	if err != nil {
		return err
	}
	content, err := getMultiline(a.reader, "Enter new content", a.out)
	if err != nil {
		return err
	}

	if _, err := a.noteService.Edit(ctx, id, title, content); err != nil {
		a.report("Note not updated", err)
		return err
	}
	fmt.Fprintln(a.out, "Updated note", id)
	return nil
}

func (a *App) DeleteNote(ctx context.Context, id string) error {
	if err := a.noteService.Delete(ctx, id); err != nil {
		a.report("Note not deleted", err)
		return err
	}
	fmt.Fprintln(a.out, "Deleted note", id)
	return nil
}
