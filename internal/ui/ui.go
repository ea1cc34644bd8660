package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bz888/murmur/internal/chat"
	"github.com/bz888/murmur/internal/events"
	"github.com/bz888/murmur/internal/logger"
	"github.com/bz888/murmur/internal/monitor"
	"github.com/bz888/murmur/internal/ollama"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

type Chatter interface {
	SendPrompt(ctx context.Context, p chat.Prompt) (string, error)
}

type ModelLister interface {
	ListModels(ctx context.Context) ([]ollama.Model, error)
}

// UI is the terminal front end. It is also an events.Sink: answer fragments
// land in the conversation view and usage snapshots in the status bar.
type UI struct {
	app          *tview.Application
	pages        *tview.Pages
	mainFlex     *tview.Flex
	textView     *tview.TextView
	textArea     *tview.TextArea
	statusBar    *tview.TextView
	debugConsole *tview.TextView
	debugVisible bool
	usage        monitor.Snapshot

	session *Session
	chatter Chatter
	catalog ModelLister

	ctx    context.Context
	cancel context.CancelFunc
}

func New(cfg chat.GenerationConfig, dev bool) *UI {
	u := &UI{
		app:          tview.NewApplication(),
		session:      NewSession(cfg),
		debugVisible: dev,
	}
	u.ctx, u.cancel = context.WithCancel(context.Background())
	u.app.EnablePaste(true)
	u.app.EnableMouse(true)

	u.debugConsole = u.initDebugConsole()
	u.textView = u.initChatViewer()
	u.textArea = u.initChatInput()
	u.statusBar = tview.NewTextView().SetDynamicColors(true)
	u.statusBar.SetText(u.statusLine())
	return u
}

// Bind wires the components that need the UI as their sink.
func (u *UI) Bind(chatter Chatter, catalog ModelLister) {
	u.chatter = chatter
	u.catalog = catalog
}

// DebugConsole is meant to be handed to the logger as its View.
func (u *UI) DebugConsole() io.Writer {
	return u.debugConsole
}

func (u *UI) Session() *Session {
	return u.session
}

func (u *UI) Emit(name string, payload any) error {
	if u.ctx.Err() != nil {
		return events.ErrClosed
	}

	switch name {
	case events.GenerateAnswer:
		f, ok := payload.(chat.Fragment)
		if !ok {
			return fmt.Errorf("unexpected %s payload %T", name, payload)
		}
		if !u.session.Observe(f) {
			return nil
		}
		text := tview.Escape(f.Message.Content)
		u.app.QueueUpdateDraw(func() {
			fmt.Fprint(u.textView, text)
			if f.Done {
				if f.DoneReason == chat.DoneReasonCancelled || f.DoneReason == chat.DoneReasonTimeout {
					fmt.Fprintf(u.textView, " [yellow::](%s)[-]", f.DoneReason)
				}
				fmt.Fprint(u.textView, "\n\n")
			}
		})

	case events.SystemUsage:
		snapshot, ok := payload.(monitor.Snapshot)
		if !ok {
			return fmt.Errorf("unexpected %s payload %T", name, payload)
		}
		u.app.QueueUpdateDraw(func() {
			u.usage = snapshot
			u.statusBar.SetText(u.statusLine())
		})
	}
	return nil
}

// Run blocks until the user quits or ctx ends.
func (u *UI) Run(ctx context.Context) error {
	defer u.cancel()
	go func() {
		select {
		case <-ctx.Done():
		case <-u.ctx.Done():
		}
		u.cancel()
		u.app.Stop()
	}()

	u.textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEnter {
			u.app.SetFocus(u.textArea)
		}
		return event
	})

	subFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(u.textView, 0, 1, false).
		AddItem(u.textArea, 8, 2, true).
		AddItem(u.statusBar, 1, 0, false)
	u.mainFlex = tview.NewFlex().
		AddItem(subFlex, 0, 2, true)
	if u.debugVisible {
		u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
	}
	u.pages = tview.NewPages().AddPage("main", u.mainFlex, true, true)

	u.setInputCapture()

	u.localLogger().Info("Terminal UI started", "model", u.session.Model())
	return u.app.SetRoot(u.pages, true).SetFocus(u.textArea).Run()
}

func (u *UI) initChatViewer() *tview.TextView {
	textView := tview.NewTextView().
		SetChangedFunc(func() {
			u.app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	textView.SetTitle("Conversation").SetBorder(true)
	textView.SetScrollable(true)
	textView.ScrollToEnd()
	return textView
}

func (u *UI) initChatInput() *tview.TextArea {
	textArea := tview.NewTextArea()
	textArea.SetTitle("Question").SetBorder(true)
	return textArea
}

func (u *UI) initDebugConsole() *tview.TextView {
	console := tview.NewTextView().
		SetChangedFunc(func() {
			u.app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	console.SetTitle("Debugger").SetBorder(true)
	console.ScrollToEnd()
	return console
}

func (u *UI) setInputCapture() {
	u.textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyESC:
			if u.textView.GetText(false) != "" {
				u.app.SetFocus(u.textView)
			}
		case tcell.KeyEnter:
			content := strings.TrimSpace(u.textArea.GetText())
			if content == "" {
				return nil
			}
			u.textArea.SetText("", true)

			if cmd, ok := lookupCommand(content); ok {
				u.localLogger().Debug("Running command", "command", cmd.name)
				cmd.run(u)
				return nil
			}
			u.submit(content)
			return nil
		}
		return event
	})
}

func (u *UI) submit(content string) {
	if u.chatter == nil {
		fmt.Fprintf(u.textView, "[red::]Not connected to a model backend[-]\n\n")
		return
	}

	prompt := u.session.Prompt(content)

	fmt.Fprintln(u.textView, "[red::]You:[-]")
	fmt.Fprintf(u.textView, "%s\n\n", tview.Escape(content))
	fmt.Fprint(u.textView, "[green::]Bot:[-]\n")
	u.textArea.SetDisabled(true)

	go func() {
		_, err := u.chatter.SendPrompt(u.ctx, prompt)
		if u.ctx.Err() != nil {
			return
		}
		if err != nil {
			u.session.Abandon(prompt.RequestID)
			u.localLogger().Error("Prompt failed", "request_id", prompt.RequestID, "error", err)
		}
		u.app.QueueUpdateDraw(func() {
			if err != nil && !errors.Is(err, chat.ErrCancelled) {
				fmt.Fprintf(u.textView, "\n[red::]%s[-]\n\n", tview.Escape(err.Error()))
			}
			u.textArea.SetDisabled(false)
			u.app.SetFocus(u.textArea)
		})
	}()
}

// statusLine renders the current model and the last usage snapshot. It runs
// on the UI goroutine, which owns u.usage.
func (u *UI) statusLine() string {
	line := fmt.Sprintf(" [gray::]%s[-]", tview.Escape(u.session.Model()))
	if u.usage.CPU != "" {
		line += fmt.Sprintf("  CPU %s  MEM %s", u.usage.CPU, u.usage.Mem)
	}
	return line
}

// localLogger is looked up on use so records reach whatever InitLogger
// configured after New, the debug console included.
func (u *UI) localLogger() *logger.Logger {
	return logger.NewLogger("views")
}

func createModal(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

func (u *UI) showModels() {
	if u.catalog == nil {
		return
	}
	u.textArea.SetDisabled(true)

	go func() {
		models, err := u.catalog.ListModels(u.ctx)
		if u.ctx.Err() != nil {
			return
		}
		u.app.QueueUpdateDraw(func() {
			if err != nil {
				u.localLogger().Error("Listing models failed", "error", err)
				fmt.Fprintf(u.textView, "[red::]%s[-]\n\n", tview.Escape(err.Error()))
				u.closeModal()
				return
			}
			u.openModelModal(models)
		})
	}()
}

func (u *UI) openModelModal(models []ollama.Model) {
	current := u.session.Model()

	list := tview.NewList()
	list.SetBorder(true).SetTitle("Models")
	for i, model := range models {
		shortcut := rune(0)
		if i < 10 {
			shortcut = '0' + rune(i)
		}

		name := model.Name
		if name == current {
			list.AddItem(name, "Current LLM", shortcut, func() {
				fmt.Fprintf(u.textView, "Already using model: %s\n\n", tview.Escape(name))
				u.closeModal()
			})
			continue
		}
		list.AddItem(name, model.Details.ParameterSize, shortcut, func() {
			u.session.SetModel(name)
			u.localLogger().Info("Selected model", "model", name)
			fmt.Fprintf(u.textView, "Using model: %s\n\n", tview.Escape(name))
			u.statusBar.SetText(u.statusLine())
			u.closeModal()
		})
	}
	list.AddItem("Back", "", 'q', u.closeModal)

	u.pages.AddPage("modelModal", createModal(list, 40, 12), true, true)
	u.app.SetFocus(list)
}

func (u *UI) closeModal() {
	u.pages.RemovePage("modelModal")
	u.textArea.SetDisabled(false)
	u.app.SetFocus(u.textArea)
}

func (u *UI) clearConversation() {
	u.session.Clear()
	u.textView.Clear()
	u.localLogger().Info("Conversation cleared")
}

func (u *UI) toggleDebugConsole() {
	if u.debugVisible {
		u.mainFlex.RemoveItem(u.debugConsole)
		fmt.Fprintf(u.textView, "Debug console disabled\n\n")
	} else {
		u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
		fmt.Fprintf(u.textView, "Debug console enabled\n\n")
	}
	u.debugVisible = !u.debugVisible
}

func (u *UI) quit() {
	fmt.Fprintf(u.textView, "Bye bye\n")
	u.cancel()
}

func (u *UI) listHelp() {
	fmt.Fprintf(u.textView, "[green::]Bot:[-]\n")
	fmt.Fprintf(u.textView, "Here are some commands you can use:\n")
	for _, c := range commands {
		fmt.Fprintf(u.textView, "- %s: %s\n", c.name, c.usage)
	}
	fmt.Fprintln(u.textView)
}
