package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Auth form field indices.
const (
	fieldEmail = iota
	fieldPassword
	fieldName
	fieldBirth
	fieldDemographic
	fieldAvatar
	fieldCount
)

var fieldPlaceholderKeys = [fieldCount]string{
	"emailPlaceholder",
	"passwordPlaceholder",
	"namePlaceholder",
	"birthPlaceholder",
	"sexualityHint",
	"avatarPlaceholder",
}

// authForm is the login / registration screen.
type authForm struct {
	register bool
	fields   [fieldCount]textinput.Model
	focus    int
	showPass bool
}

func newAuthForm(tr *translator, lastEmail string) authForm {
	var f authForm
	for i := range f.fields {
		ti := textinput.New()
		ti.Prompt = "  "
		ti.CharLimit = 256
		ti.Width = 36
		f.fields[i] = ti
	}
	f.fields[fieldPassword].EchoMode = textinput.EchoPassword
	f.fields[fieldPassword].EchoCharacter = '•'
	f.fields[fieldBirth].CharLimit = 10
	f.fields[fieldAvatar].CharLimit = 1024
	f.retranslate(tr)

	f.fields[fieldEmail].SetValue(lastEmail)
	if lastEmail != "" {
		f.focus = fieldPassword
	}
	return f
}

func (f *authForm) retranslate(tr *translator) {
	for i := range f.fields {
		f.fields[i].Placeholder = tr.T(fieldPlaceholderKeys[i])
	}
}

// visible lists the fields shown in the current mode.
func (f *authForm) visible() []int {
	if f.register {
		return []int{fieldEmail, fieldPassword, fieldName, fieldBirth, fieldDemographic, fieldAvatar}
	}
	return []int{fieldEmail, fieldPassword}
}

func (f *authForm) focusCmd() tea.Cmd {
	var cmd tea.Cmd
	for i := range f.fields {
		if i == f.focus {
			cmd = f.fields[i].Focus()
		} else {
			f.fields[i].Blur()
		}
	}
	return cmd
}

// move shifts focus by delta within the visible fields, wrapping around.
func (f *authForm) move(delta int) tea.Cmd {
	vis := f.visible()
	pos := 0
	for i, idx := range vis {
		if idx == f.focus {
			pos = i
		}
	}
	pos = (pos + delta + len(vis)) % len(vis)
	f.focus = vis[pos]
	return f.focusCmd()
}

func (f *authForm) toggleMode() tea.Cmd {
	f.register = !f.register
	if !f.register && f.focus > fieldPassword {
		f.focus = fieldEmail
	}
	return f.focusCmd()
}

func (f *authForm) togglePassword() {
	f.showPass = !f.showPass
	if f.showPass {
		f.fields[fieldPassword].EchoMode = textinput.EchoNormal
	} else {
		f.fields[fieldPassword].EchoMode = textinput.EchoPassword
	}
}

func (f *authForm) value(i int) string {
	return strings.TrimSpace(f.fields[i].Value())
}

func (f *authForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus], cmd = f.fields[f.focus].Update(msg)
	return cmd
}

func (m *model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "ctrl+r":
		return m, m.auth.toggleMode()
	case "ctrl+p":
		m.auth.togglePassword()
		return m, nil
	case "ctrl+l":
		m.setLanguage(nextLanguage(m.tr.Code()))
		return m, nil
	case "tab", "down":
		return m, m.auth.move(1)
	case "shift+tab", "up":
		return m, m.auth.move(-1)
	case "enter":
		return m.submitAuth()
	}
	return m, m.auth.update(msg)
}

func (m *model) submitAuth() (tea.Model, tea.Cmd) {
	ctx, cancel := m.storageCtx()
	defer cancel()

	var (
		u   User
		err error
	)
	if m.auth.register {
		email := m.auth.value(fieldEmail)
		avatar, aerr := resolveAvatar(m.auth.value(fieldAvatar), email)
		if aerr != nil {
			m.log.Warn("avatar rejected", zap.Error(aerr))
			m.alert = "avatar: " + aerr.Error()
			return m, nil
		}
		u, err = m.state.Register(ctx, RegisterForm{
			Email:       email,
			Password:    m.auth.fields[fieldPassword].Value(),
			Name:        m.auth.value(fieldName),
			BirthDate:   m.auth.value(fieldBirth),
			Demographic: m.auth.value(fieldDemographic),
			Avatar:      avatar,
		})
	} else {
		u, err = m.state.Login(ctx, m.auth.value(fieldEmail), m.auth.fields[fieldPassword].Value())
	}

	if err != nil && u.ID == "" {
		m.alert = m.describeErr(err)
		return m, nil
	}
	if err != nil {
		// Session started but the presence update did not persist.
		m.log.Error("auth persist failed", zap.Error(err))
	}
	if err := SaveLastLogin(m.cfgFlagPath, u.Email); err != nil {
		m.log.Warn("save last login", zap.Error(err))
	}
	cmd := m.enterMain()
	if err != nil {
		m.addSystemMsg(m.describeErr(err))
	} else if m.screen == screenMain {
		m.addSystemMsg(m.tr.T("terminalReady"))
	}
	return m, cmd
}

func (m *model) handleBannedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	return m, m.logout()
}

func (m *model) viewAuth() string {
	var b strings.Builder
	b.WriteString(brandStyle.Render("FORMAPP"))
	b.WriteString("\n")
	b.WriteString(chatMetaStyle.Render(m.tr.T("appTagline")))
	b.WriteString("\n\n")

	title := m.tr.T("login")
	hint := m.tr.T("toggleRegister")
	if m.auth.register {
		title = m.tr.T("register")
		hint = m.tr.T("toggleLogin")
	}
	b.WriteString(titleStyle.Render(strings.ToUpper(title)))
	b.WriteString("\n\n")

	for _, i := range m.auth.visible() {
		b.WriteString(m.auth.fields[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(chatSystemStyle.Render(hint))
	b.WriteString("\n")
	b.WriteString(chatSystemStyle.Render("ctrl+p: show password · ctrl+l: " + m.tr.T("language") + " (" + m.tr.Code() + ")"))
	b.WriteString("\n\n")
	b.WriteString(statusConnectedStyle.Render("🔒 " + m.tr.T("encryptedLabel")))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, authBoxStyle.Render(b.String()))
}

func (m *model) viewBanned() string {
	u, _ := m.state.CurrentUser()
	var b strings.Builder
	b.WriteString(badgeBannedStyle.Render(m.tr.T("bannedTitle")))
	b.WriteString("\n\n")
	b.WriteString(m.tr.T("bannedMessage"))
	b.WriteString("\n\n")
	if u.BanReason != "" {
		b.WriteString(m.tr.T("reason") + ": " + u.BanReason)
		b.WriteString("\n")
	}
	if until, ok := parseTime(u.BanUntil); ok {
		b.WriteString(m.tr.T("bannedUntil", humanize.Time(until)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(chatSystemStyle.Render(m.tr.T("pressAnyKey")))

	box := alertStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
