package models

import (
	"fmt"
	"strings"
	"time"
)

type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// previewLen bounds the content excerpt printed by Summary.
const previewLen = 40

// Summary renders a single line for list output.
func (n Note) Summary() string {
	preview := strings.Join(strings.Fields(n.Content), " ")
	if r := []rune(preview); len(r) > previewLen {
		preview = string(r[:previewLen]) + "..."
	}
	return fmt.Sprintf("%s  %-20s  %s  (%s)", n.ID, n.Title, preview, n.UpdatedAt.Local().Format(time.DateTime))
}
