package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// updateSuggestions generates context-aware autocomplete suggestions based on
// the current input value.
func (m *model) updateSuggestions() {
	text := m.input.Value()

	if !strings.HasPrefix(text, "/") {
		m.acSuggestions = nil
		m.acIndex = 0
		return
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		m.acSuggestions = nil
		m.acIndex = 0
		return
	}

	// If input ends with a space, the user is starting a new token.
	trailingSpace := len(text) > 0 && text[len(text)-1] == ' '

	// Only the first argument is completed.
	var partial string
	completingArg := false
	switch {
	case len(tokens) == 1 && trailingSpace:
		completingArg = true
	case len(tokens) == 2 && !trailingSpace:
		completingArg = true
		partial = tokens[1]
	}

	var suggestions []string
	cmd := strings.ToLower(tokens[0])

	switch {
	case len(tokens) == 1 && !trailingSpace:
		// Partial top-level command: /he → /help
		for _, c := range commandNames {
			if adminCommands[c] && !m.state.IsAdmin() {
				continue
			}
			if strings.HasPrefix(c, cmd) && c != cmd {
				suggestions = append(suggestions, c)
			}
		}

	case !completingArg:

	case cmd == "/tab":
		suggestions = filterPrefix(tabNames, partial)

	case cmd == "/lang":
		suggestions = filterPrefix(languageCodes, partial)

	case cmd == "/chat":
		var names []string
		for _, u := range m.state.Contacts() {
			names = append(names, u.Email)
		}
		suggestions = filterPrefix(names, partial)

	case cmd == "/verify" || cmd == "/ban" || cmd == "/unban":
		var emails []string
		for _, u := range m.state.Users() {
			emails = append(emails, u.Email)
		}
		suggestions = filterPrefix(emails, partial)

	case cmd == "/edit" || cmd == "/delete" || cmd == "/react" || cmd == "/reply":
		// Message ids of the active chat, newest first.
		msgs := m.state.Messages(m.state.ActiveChatID())
		var refs []string
		for i := len(msgs) - 1; i >= 0 && len(refs) < 10; i-- {
			refs = append(refs, "#"+shortID(msgs[i].ID))
		}
		suggestions = filterPrefix(refs, partial)
	}

	if len(suggestions) == 0 {
		m.acSuggestions = nil
		m.acIndex = 0
		return
	}

	// Reset index when the suggestion list changes.
	if !slicesEqual(suggestions, m.acSuggestions) {
		m.acIndex = 0
	}
	m.acSuggestions = suggestions
}

// filterPrefix returns candidates starting with partial (case-insensitive),
// excluding an exact match.
func filterPrefix(candidates []string, partial string) []string {
	var out []string
	lp := strings.ToLower(partial)
	for _, c := range candidates {
		if partial == "" || (strings.HasPrefix(strings.ToLower(c), lp) && !strings.EqualFold(c, partial)) {
			out = append(out, c)
		}
	}
	return out
}

// acceptSuggestion replaces the partial token in input with the selected suggestion.
func (m *model) acceptSuggestion() {
	if len(m.acSuggestions) == 0 {
		return
	}
	if m.acIndex >= len(m.acSuggestions) {
		m.acIndex = 0
	}

	selected := m.acSuggestions[m.acIndex]
	text := m.input.Value()

	var newText string
	tokens := strings.Fields(text)
	if len(tokens) == 1 && strings.HasPrefix(selected, "/") {
		// Completing the command itself: replace entire text.
		newText = selected + " "
	} else {
		// Completing an argument: replace from last space.
		lastSpace := strings.LastIndex(text, " ")
		if lastSpace >= 0 {
			newText = text[:lastSpace+1] + selected + " "
		} else {
			newText = selected + " "
		}
	}

	m.input.SetValue(newText)
	m.acSuggestions = nil
	m.acIndex = 0
	m.updateLayout()
}

// viewAutocomplete renders suggestions as a horizontal row.
func (m *model) viewAutocomplete() string {
	maxWidth := m.viewport.Width

	// Pre-render all items so we know their widths.
	rendered := make([]string, len(m.acSuggestions))
	widths := make([]int, len(m.acSuggestions))
	for i, s := range m.acSuggestions {
		if i == m.acIndex {
			rendered[i] = acSelectedStyle.Render(s)
		} else {
			rendered[i] = acSuggestionStyle.Render(s)
		}
		widths[i] = lipgloss.Width(rendered[i])
	}

	// Find a window of items that fits within maxWidth, ensuring the
	// selected item is always visible.
	start := m.acIndex
	end := m.acIndex + 1
	used := widths[m.acIndex]

	// Expand right, then left, alternating to keep selection roughly centered.
	for {
		grew := false
		if end < len(m.acSuggestions) && used+widths[end] <= maxWidth {
			used += widths[end]
			end++
			grew = true
		}
		if start > 0 && used+widths[start-1] <= maxWidth {
			start--
			used += widths[start]
			grew = true
		}
		if !grew {
			break
		}
	}

	var parts []string
	if start > 0 {
		parts = append(parts, acSuggestionStyle.Render("◂"))
	}
	parts = append(parts, rendered[start:end]...)
	if end < len(m.acSuggestions) {
		parts = append(parts, acSuggestionStyle.Render("▸"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
