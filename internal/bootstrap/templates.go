package bootstrap

import (
	"strings"

	"chatterbox-studio/internal/domain"
)

var templateCatalog = []domain.TemplateOption{
	{
		ID:   "story",
		Name: "Story",
		Lines: []string{
			"Once upon a time, in a land far away, there lived a brave knight.",
			"The knight embarked on a quest to save the kingdom from a terrible dragon.",
			"Along the way, he met a wise wizard who gave him magical advice.",
			"With courage in his heart, the knight faced the dragon in an epic battle.",
			"The kingdom was saved, and the knight became a legend.",
		},
	},
	{
		ID:   "game",
		Name: "Game Dialog",
		Lines: []string{
			"Welcome, hero! Your journey begins here.",
			"You've gained a new ability: Fire Strike!",
			"Warning! Enemy approaching from the north.",
			"Quest completed! You've earned 500 gold.",
			"Game over. Would you like to try again?",
		},
	},
	{
		ID:   "announcement",
		Name: "Announcements",
		Lines: []string{
			"Attention all passengers: The train will depart in 5 minutes.",
			"This is your captain speaking. We're expecting clear skies ahead.",
			"Welcome to our store! Today's special is 50% off all items.",
			"The meeting will begin in conference room A at 2 PM.",
			"Thank you for visiting. We hope to see you again soon!",
		},
	},
}

// GetTemplates returns the built-in text snippet sets for the synthesis tab.
func (a *App) GetTemplates() []domain.TemplateOption {
	templates := make([]domain.TemplateOption, len(templateCatalog))
	copy(templates, templateCatalog)
	return templates
}

// TemplateText returns the joined text of one template, one line per item,
// ready to drop into the synthesis input. Empty when the id is unknown.
func (a *App) TemplateText(templateID string) string {
	for _, template := range templateCatalog {
		if template.ID == templateID {
			return strings.Join(template.Lines, "\n")
		}
	}
	return ""
}
