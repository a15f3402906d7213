package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// defaultBanDays is used by /ban when no duration is given.
const defaultBanDays = 1

var commandNames = []string{
	"/help", "/tab", "/search", "/chat", "/bot", "/reply", "/edit", "/delete",
	"/react", "/attach", "/status", "/verify", "/ban", "/unban", "/broadcast",
	"/lang", "/me", "/log", "/logout",
}

var adminCommands = map[string]bool{
	"/verify": true, "/ban": true, "/unban": true, "/broadcast": true,
}

func (m *model) handleCommand(text string) (tea.Model, tea.Cmd) {
	parts := strings.SplitN(text, " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}
	m.log.Debug("command", zap.String("cmd", cmd))

	if adminCommands[cmd] && !m.state.IsAdmin() {
		m.reportErr(ErrNotAdmin)
		return m, nil
	}

	switch cmd {
	case "/tab":
		for i, name := range tabNames {
			if strings.EqualFold(arg, name) {
				m.switchTab(tab(i))
				return m, nil
			}
		}
		m.addSystemMsg("usage: /tab " + strings.Join(tabNames, "|"))
		return m, nil

	case "/search":
		m.tab = tabChats
		m.search = arg
		m.activeItem = 0
		m.syncActiveItem()
		m.updateLayout()
		return m, nil

	case "/chat":
		if arg == "" {
			m.addSystemMsg("usage: /chat <name or email>")
			return m, nil
		}
		u, ok := m.findContact(arg)
		if !ok {
			m.reportErr(fmt.Errorf("%w: %s", ErrUserNotFound, arg))
			return m, nil
		}
		m.startChatWith(u)
		return m, nil

	case "/bot":
		if !m.cfg.Bot.BotEnabled() {
			m.addSystemMsg("FormBot is disabled")
			return m, nil
		}
		if !m.startChatWith(botIdentity()) || arg == "" {
			return m, nil
		}
		return m.sendText(arg)

	case "/reply":
		ref, rest := splitRef(arg)
		if rest == "" {
			m.addSystemMsg("usage: /reply [#id] <text>")
			return m, nil
		}
		if ref == "" {
			ref = m.lastMessageRef()
		}
		return m.send(func(ctx context.Context) (Message, error) {
			return m.state.Reply(ctx, ref, rest)
		}, rest)

	case "/edit":
		ref, rest := splitRef(arg)
		if rest == "" {
			m.addSystemMsg("usage: /edit [#id] <text>")
			return m, nil
		}
		if ref == "" {
			ref, _ = m.state.LastOwnMessageID()
		}
		ctx, cancel := m.storageCtx()
		defer cancel()
		if _, err := m.state.Edit(ctx, ref, rest); err != nil {
			m.reportErr(err)
		}
		m.updateViewport()
		return m, nil

	case "/delete":
		ref := strings.TrimPrefix(arg, "#")
		if ref == "" {
			ref, _ = m.state.LastOwnMessageID()
		}
		ctx, cancel := m.storageCtx()
		defer cancel()
		if err := m.state.Delete(ctx, ref); err != nil {
			m.reportErr(err)
		}
		m.updateViewport()
		return m, nil

	case "/react":
		ref, emoji := splitRef(arg)
		if emoji == "" {
			m.addSystemMsg("usage: /react [#id] <emoji>")
			return m, nil
		}
		if ref == "" {
			ref = m.lastMessageRef()
		}
		ctx, cancel := m.storageCtx()
		defer cancel()
		if _, err := m.state.React(ctx, ref, emoji); err != nil {
			m.reportErr(err)
		}
		m.updateViewport()
		return m, nil

	case "/attach":
		if arg == "" {
			m.addSystemMsg("usage: /attach <path> [caption]")
			return m, nil
		}
		path, caption, _ := strings.Cut(arg, " ")
		return m.attachAndSend(path, strings.TrimSpace(caption))

	case "/status":
		if arg == "" {
			m.addSystemMsg("usage: /status <caption> [media-url]")
			return m, nil
		}
		caption, mediaURL := arg, ""
		if i := strings.LastIndex(arg, " "); i >= 0 && isURL(arg[i+1:]) {
			caption, mediaURL = strings.TrimSpace(arg[:i]), arg[i+1:]
		} else if isURL(arg) {
			caption, mediaURL = "", arg
		}
		m.tab = tabPulse
		m.updateLayout()
		return m.postStatus(caption, mediaURL)

	case "/verify":
		u, _, err := m.moderationTarget(arg)
		if err != nil {
			m.reportErr(err)
			return m, nil
		}
		ctx, cancel := m.storageCtx()
		defer cancel()
		if _, err := m.state.Verify(ctx, u.ID); err != nil {
			m.reportErr(err)
			return m, nil
		}
		m.addSystemMsg(m.tr.T("verifiedSuccess"))
		return m, nil

	case "/ban":
		u, rest, err := m.moderationTarget(arg)
		if err != nil {
			m.reportErr(err)
			return m, nil
		}
		days := defaultBanDays
		if len(rest) > 0 {
			if n, err := strconv.Atoi(rest[0]); err == nil {
				days = n
				rest = rest[1:]
			}
		}
		ctx, cancel := m.storageCtx()
		defer cancel()
		if _, err := m.state.Ban(ctx, u.ID, strings.Join(rest, " "), days); err != nil {
			m.reportErr(err)
			return m, nil
		}
		m.addSystemMsg(m.tr.T("bannedSuccess"))
		return m, nil

	case "/unban":
		u, _, err := m.moderationTarget(arg)
		if err != nil {
			m.reportErr(err)
			return m, nil
		}
		ctx, cancel := m.storageCtx()
		defer cancel()
		if _, err := m.state.Unban(ctx, u.ID); err != nil {
			m.reportErr(err)
			return m, nil
		}
		m.addSystemMsg(m.tr.T("unbannedSuccess"))
		return m, nil

	case "/broadcast":
		if arg == "" {
			m.addSystemMsg("usage: /broadcast <text>")
			return m, nil
		}
		ctx, cancel := m.storageCtx()
		defer cancel()
		n, err := m.state.Broadcast(ctx, arg)
		if err != nil {
			m.reportErr(err)
		}
		if n > 0 {
			m.addSystemMsg(m.tr.T("broadcastSuccess", n))
		}
		return m, nil

	case "/lang":
		if arg == "" {
			m.addSystemMsg(m.tr.T("language") + ": " + m.tr.Code() + " (" + strings.Join(languageCodes, ", ") + ")")
			return m, nil
		}
		m.setLanguage(arg)
		m.updateLayout()
		m.addSystemMsg(m.tr.T("languageChanged"))
		return m, nil

	case "/me":
		u, _ := m.state.CurrentUser()
		m.qrOverlay = renderQR(u.Name+" <"+u.Email+">", contactCard(u))
		return m, nil

	case "/log":
		return m.showTranscript(arg)

	case "/logout":
		return m, m.logout()

	case "/help":
		m.addSystemMsg("F1-F5 or /tab <name> — switch tab (chats, pulse, net, tune, admin)")
		m.addSystemMsg("/search <text> — filter chats by name (esc clears)")
		m.addSystemMsg("/chat <name|email> — open a chat with a contact")
		m.addSystemMsg("/bot [prompt] — talk to FormBot")
		m.addSystemMsg("/reply [#id] <text> — reply to a message (default: latest)")
		m.addSystemMsg("/edit [#id] <text> — edit your message (default: your latest)")
		m.addSystemMsg("/delete [#id] — delete a message (default: your latest)")
		m.addSystemMsg("/react [#id] <emoji> — toggle a reaction (default: latest)")
		m.addSystemMsg("/attach <path> [caption] — send a file (or paste a path)")
		m.addSystemMsg("/status <caption> [url] — post a pulse")
		m.addSystemMsg("/lang [code] — show or set the language")
		m.addSystemMsg("/log [n] — show the chat transcript")
		m.addSystemMsg("/me — show your contact card as QR")
		m.addSystemMsg("/logout — end the session")
		if m.state.IsAdmin() {
			m.addSystemMsg("/verify [email] — toggle verified badge")
			m.addSystemMsg("/ban [email] [days] [reason] — ban a user")
			m.addSystemMsg("/unban [email] — lift a ban")
			m.addSystemMsg("/broadcast <text> — message every user")
		}
		m.addSystemMsg("/help — show this help")
		return m, nil

	default:
		m.addSystemMsg("unknown command: " + cmd)
		return m, nil
	}
}

// splitRef splits an optional leading "#id" token from the rest of arg.
func splitRef(arg string) (ref, rest string) {
	if !strings.HasPrefix(arg, "#") {
		return "", arg
	}
	first, rest, _ := strings.Cut(arg, " ")
	return strings.TrimPrefix(first, "#"), strings.TrimSpace(rest)
}

// lastMessageRef returns the id of the newest message in the active chat.
func (m *model) lastMessageRef() string {
	msgs := m.state.Messages(m.state.ActiveChatID())
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].ID
}

// findContact matches arg against contact emails, then names.
func (m *model) findContact(arg string) (User, bool) {
	candidates := m.state.Contacts()
	if m.cfg.Bot.BotEnabled() {
		candidates = append(candidates, botIdentity())
	}
	arg = strings.TrimPrefix(arg, "@")
	for _, u := range candidates {
		if u.Email == arg {
			return u, true
		}
	}
	for _, u := range candidates {
		if strings.EqualFold(u.Name, arg) {
			return u, true
		}
	}
	return User{}, false
}

// moderationTarget resolves the user a moderation command acts on: a
// leading email argument, or else the user selected in the sidebar.
func (m *model) moderationTarget(arg string) (User, []string, error) {
	fields := strings.Fields(arg)
	if len(fields) > 0 {
		for _, u := range m.state.Users() {
			if u.Email == fields[0] {
				return u, fields[1:], nil
			}
		}
	}
	if m.tab == tabAdmin || m.tab == tabNet {
		if u, ok := m.selectedUser(); ok && u.ID != botID {
			return u, fields, nil
		}
	}
	if len(fields) > 0 {
		return User{}, nil, fmt.Errorf("%w: %s", ErrUserNotFound, fields[0])
	}
	return User{}, nil, ErrUserNotFound
}

func (m *model) showTranscript(arg string) (tea.Model, tea.Cmd) {
	chatID := m.state.ActiveChatID()
	if chatID == "" {
		m.reportErr(ErrNoActiveChat)
		return m, nil
	}
	if m.transcripts == nil {
		m.addSystemMsg("transcripts are disabled (logging = false)")
		return m, nil
	}
	n := 20
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v <= 0 {
			m.addSystemMsg("usage: /log [n]")
			return m, nil
		}
		n = v
	}
	entries, err := m.transcripts.Tail(chatID, n)
	if err != nil {
		m.reportErr(err)
		return m, nil
	}
	if len(entries) == 0 {
		m.addSystemMsg("transcript is empty")
		return m, nil
	}
	for _, e := range entries {
		m.addSystemMsg(fmt.Sprintf("%s %s %s: %s", e.Time.Local().Format("01-02 15:04"), e.MessageID, e.Author, e.Text))
	}
	return m, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
