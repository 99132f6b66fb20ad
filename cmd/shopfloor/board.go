package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"shopfloor/internal/api"
	"shopfloor/internal/config"
	"shopfloor/internal/models"
	"shopfloor/internal/session"
	"shopfloor/internal/workflow"
)

func newBoardCmd(cfg *config.Config) *cobra.Command {
	var (
		month    int
		year     int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Interactive operator board with background refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				interval = cfg.PollInterval.Duration
			}
			return withSession(cfg, func(sess *session.Session, client *api.Client) error {
				ctx, cancel := context.WithCancel(cmd.Context())
				defer cancel()

				var program *tea.Program
				ctrl := workflow.New(client, workflow.Options{
					UserID: sess.UserID(),
					Query:  api.TaskQuery{Month: month, Year: year},
					// The board owns the terminal; failures show in its status line.
					Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
					OnChange: func() {
						// Send blocks until the event loop reads it, and
						// OnChange can fire from inside Update.
						go program.Send(boardChangedMsg{})
					},
				})

				program = tea.NewProgram(
					newBoardModel(ctx, ctrl, sess.User),
					tea.WithContext(ctx),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				)
				go func() {
					_ = ctrl.Run(ctx, interval)
				}()

				_, err := program.Run()
				return err
			})
		},
	}

	cmd.Flags().IntVar(&month, "month", 0, "only tasks created in this month (1-12)")
	cmd.Flags().IntVar(&year, "year", 0, "only tasks created in this year")
	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (default poll_interval)")
	return cmd
}

type boardChangedMsg struct{}

type boardTickMsg time.Time

type boardRefreshedMsg struct{ err error }

type boardDoneMsg struct {
	id     string
	action models.Action
	err    error
}

type boardModel struct {
	ctx    context.Context
	ctrl   *workflow.Controller
	user   models.User
	cursor int
	status string
	now    func() time.Time
}

func newBoardModel(ctx context.Context, ctrl *workflow.Controller, user models.User) boardModel {
	return boardModel{ctx: ctx, ctrl: ctrl, user: user, now: time.Now}
}

func (m boardModel) Init() tea.Cmd {
	return boardTick()
}

func boardTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return boardTickMsg(t) })
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case boardTickMsg:
		return m, boardTick()
	case boardChangedMsg:
		m.clampCursor()
		return m, nil
	case boardRefreshedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
		} else {
			m.status = "refreshed"
		}
		m.clampCursor()
		return m, nil
	case boardDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = fmt.Sprintf("%s: %s done", msg.id, msg.action)
		}
		m.clampCursor()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m boardModel) handleKey(key string) (tea.Model, tea.Cmd) {
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if prompt, open := m.ctrl.Prompt(); open {
		return m.handlePromptKey(prompt, key)
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.ctrl.Tasks())-1 {
			m.cursor++
		}
	case "f":
		return m, m.refreshCmd()
	case "s":
		return m.act(models.ActionStart)
	case "r":
		return m.act(models.ActionResume)
	case "c":
		return m.act(models.ActionComplete)
	case "h":
		return m.openPrompt(models.ActionHold)
	case "d":
		return m.openPrompt(models.ActionDeny)
	}
	return m, nil
}

func (m boardModel) handlePromptKey(prompt workflow.ReasonPrompt, key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "q":
		m.ctrl.CancelReason()
		m.status = "cancelled"
		return m, nil
	case "enter":
		if prompt.Reason == "" {
			m.status = workflow.ErrReasonRequired.Error()
			return m, nil
		}
		ctx, ctrl := m.ctx, m.ctrl
		return m, func() tea.Msg {
			return boardDoneMsg{id: prompt.TaskID, action: prompt.Action, err: ctrl.SubmitReason(ctx)}
		}
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(prompt.Choices) {
		if err := m.ctrl.SelectReason(prompt.Choices[n-1]); err != nil {
			m.status = err.Error()
		}
	}
	return m, nil
}

func (m boardModel) selected() (models.Task, bool) {
	tasks := m.ctrl.Tasks()
	if m.cursor < 0 || m.cursor >= len(tasks) {
		return models.Task{}, false
	}
	return tasks[m.cursor], true
}

func (m boardModel) act(action models.Action) (tea.Model, tea.Cmd) {
	task, ok := m.selected()
	if !ok {
		return m, nil
	}
	ctx, ctrl, id := m.ctx, m.ctrl, task.ID
	m.status = fmt.Sprintf("%s: %s...", id, action)
	return m, func() tea.Msg {
		var err error
		switch action {
		case models.ActionStart:
			err = ctrl.Start(ctx, id)
		case models.ActionResume:
			err = ctrl.Resume(ctx, id)
		case models.ActionComplete:
			err = ctrl.Complete(ctx, id)
		}
		return boardDoneMsg{id: id, action: action, err: err}
	}
}

func (m boardModel) openPrompt(action models.Action) (tea.Model, tea.Cmd) {
	task, ok := m.selected()
	if !ok {
		return m, nil
	}
	var err error
	if action == models.ActionHold {
		err = m.ctrl.BeginHold(task.ID)
	} else {
		err = m.ctrl.BeginDeny(task.ID)
	}
	if err != nil {
		m.status = err.Error()
	} else {
		m.status = ""
	}
	return m, nil
}

func (m boardModel) refreshCmd() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return boardRefreshedMsg{err: ctrl.Refresh(ctx)}
	}
}

func (m *boardModel) clampCursor() {
	n := len(m.ctrl.Tasks())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m boardModel) View() string {
	var b strings.Builder
	now := m.now()
	tasks := m.ctrl.Tasks()

	name := m.user.FullName
	if name == "" {
		name = m.user.Username
	}
	fmt.Fprintf(&b, "Shopfloor board: %s (%s)", name, m.user.Role)
	if last := m.ctrl.LastRefresh(); !last.IsZero() {
		fmt.Fprintf(&b, "  updated %s", last.Format("15:04:05"))
	}
	b.WriteString("\n")

	s := workflow.Summarize(tasks)
	fmt.Fprintf(&b, "%d pending, %d in progress, %d on hold, %d completed, %d denied (%d active)\n\n",
		s.Pending, s.InProgress, s.OnHold, s.Completed, s.Denied, s.Active())

	if len(tasks) == 0 {
		b.WriteString("  no tasks assigned\n")
	}
	for i, task := range tasks {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		elapsed := "        "
		if d, ok := workflow.Elapsed(task, now); ok {
			elapsed = formatDuration(d)
		}
		fmt.Fprintf(&b, "%s%-12s %-11s %s  %s  %s\n", marker, task.ID, statusText(task.Status), elapsed, task.Title, m.actionHints(task))
	}

	if prompt, open := m.ctrl.Prompt(); open {
		fmt.Fprintf(&b, "\nReason to %s %s:\n", prompt.Action, prompt.TaskID)
		for i, choice := range prompt.Choices {
			mark := " "
			if choice == prompt.Reason {
				mark = "*"
			}
			fmt.Fprintf(&b, " %s %d) %s\n", mark, i+1, choice)
		}
		b.WriteString("  number to choose, enter to submit, esc to cancel\n")
	}

	if m.status != "" {
		fmt.Fprintf(&b, "\n%s\n", m.status)
	}
	b.WriteString("\nj/k move  s start  h hold  r resume  c complete  d deny  f refresh  q quit\n")
	return b.String()
}

func (m boardModel) actionHints(task models.Task) string {
	if m.ctrl.InFlight(task.ID) {
		return "[working]"
	}
	actions := m.ctrl.Actions(task.ID)
	if len(actions) == 0 {
		return ""
	}
	names := make([]string, 0, len(actions))
	for _, action := range actions {
		names = append(names, string(action))
	}
	return "[" + strings.Join(names, " ") + "]"
}
