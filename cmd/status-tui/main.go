package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-resty/resty/v2"

	"github.com/betbot/titanbridge/internal/arbiter"
)

type tickMsg time.Time

type snapshotMsg struct {
	snap arbiter.Snapshot
	err  error
}

// model 状态面板
type model struct {
	client   *resty.Client
	interval time.Duration

	snap    arbiter.Snapshot
	err     error
	updated time.Time
	loaded  bool
}

func initialModel(baseURL string, interval time.Duration) model {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(3 * time.Second)
	return model{client: client, interval: interval}
}

func (m model) Init() tea.Cmd {
	return fetchCmd(m.client)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, fetchCmd(m.client)
		}

	case tickMsg:
		return m, fetchCmd(m.client)

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.loaded = true
			m.updated = time.Now()
		}
		return m, tickCmd(m.interval)
	}
	return m, nil
}

func (m model) View() string {
	return render(m.snap, m.loaded, m.err, m.updated, time.Now())
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchCmd(client *resty.Client) tea.Cmd {
	return func() tea.Msg {
		var snap arbiter.Snapshot
		resp, err := client.R().
			SetContext(context.Background()).
			SetResult(&snap).
			Get("/dashboard")
		if err != nil {
			return snapshotMsg{err: err}
		}
		if !resp.IsSuccess() {
			return snapshotMsg{err: fmt.Errorf("dashboard 返回 %s", resp.Status())}
		}
		return snapshotMsg{snap: snap}
	}
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8000", "titanbridge 服务地址")
		interval = flag.Duration("interval", 2*time.Second, "刷新间隔")
	)
	flag.Parse()

	p := tea.NewProgram(initialModel(*baseURL, *interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("运行程序失败: %v", err)
	}
}
