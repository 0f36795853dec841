package gui

import (
	"context"
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"analyst-ai/chat"
	"analyst-ai/utils"
)

// Window is the desktop front end of chat.App
type Window struct {
	app    *chat.App
	logger *utils.Logger
	window fyne.Window

	// do runs UI updates that start on other goroutines
	do func(func())

	messages *fyne.Container
	scroll   *container.Scroll
	bubbles  map[int64]*widget.RichText
	rendered map[int64]string
	order    []int64

	input      *widget.Entry
	sendButton *widget.Button
	files      *fileList
	prefixes   *prefixBar
	status     *widget.Label
	notice     *widget.Label
}

// NewWindow builds the main window on fyneApp and subscribes it to app changes
func NewWindow(fyneApp fyne.App, app *chat.App, logger *utils.Logger, config utils.UIConfig) *Window {
	fyneApp.Settings().SetTheme(newAnalystTheme(config.FontSize, config.Theme == "dark"))

	w := &Window{
		app:      app,
		logger:   logger,
		window:   fyneApp.NewWindow("Analyst AI"),
		do:       fyne.Do,
		bubbles:  make(map[int64]*widget.RichText),
		rendered: make(map[int64]string),
	}
	if config.WindowWidth > 0 && config.WindowHeight > 0 {
		w.window.Resize(fyne.NewSize(float32(config.WindowWidth), float32(config.WindowHeight)))
	}

	w.window.SetContent(w.build())
	w.window.SetOnDropped(w.onDropped)
	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyReturn,
		Modifier: fyne.KeyModifierShortcutDefault,
	}, func(fyne.Shortcut) {
		w.submit()
	})

	app.Subscribe(w.onChange)
	w.syncTranscript()
	w.syncState()

	logger.Info("Window built for %s", app.ServiceName())
	return w
}

// Run shows the window and blocks until it is closed
func (w *Window) Run() {
	w.window.ShowAndRun()
}

// Size returns the current content size of the window
func (w *Window) Size() fyne.Size {
	return w.window.Canvas().Size()
}

func (w *Window) build() fyne.CanvasObject {
	w.messages = container.NewVBox()
	w.scroll = container.NewScroll(w.messages)
	w.scroll.SetMinSize(fyne.NewSize(600, 400))

	w.files = newFileList(w)
	w.prefixes = newPrefixBar(w)

	w.input = widget.NewMultiLineEntry()
	w.input.Wrapping = fyne.TextWrapWord
	w.input.SetPlaceHolder("Ask about your documents... (Ctrl+Enter to send)")
	w.input.SetMinRowsVisible(3)

	w.sendButton = widget.NewButtonWithIcon("Send", theme.MailSendIcon(), func() {
		w.submit()
	})
	w.sendButton.Importance = widget.HighImportance

	w.status = widget.NewLabel("")
	w.notice = widget.NewLabel("")
	w.notice.Wrapping = fyne.TextWrapWord

	keyButton := widget.NewButtonWithIcon("API Key", theme.AccountIcon(), w.showKeyDialog)
	resetButton := widget.NewButtonWithIcon("New Session", theme.ViewRefreshIcon(), func() {
		w.app.ResetSession()
	})
	exportButton := widget.NewButtonWithIcon("Export", theme.DocumentSaveIcon(), w.showExportDialog)

	topBar := container.NewBorder(nil, nil, nil,
		container.NewHBox(keyButton, resetButton, exportButton),
		w.prefixes.build(),
	)

	inputContainer := container.NewBorder(
		w.files.build(),
		container.NewVBox(w.notice, w.status),
		nil,
		w.sendButton,
		w.input,
	)

	return container.NewBorder(topBar, inputContainer, nil, nil, w.scroll)
}

func (w *Window) onChange(c chat.Change) {
	switch c.Kind {
	case chat.ChangeTranscript:
		w.do(w.syncTranscript)
	case chat.ChangeFiles:
		w.do(w.files.refresh)
	case chat.ChangePrefixes:
		w.do(w.prefixes.refresh)
	case chat.ChangeSession:
		w.do(w.syncState)
	}
}

// syncTranscript updates the bubbles that changed and adds new ones
func (w *Window) syncTranscript() {
	msgs := w.app.Transcript()

	if len(msgs) < len(w.order) || (len(msgs) > 0 && len(w.order) > 0 && msgs[0].ID != w.order[0]) {
		w.messages.Objects = nil
		w.bubbles = make(map[int64]*widget.RichText)
		w.rendered = make(map[int64]string)
		w.order = nil
	}

	for _, msg := range msgs {
		markdown := bubbleMarkdown(msg)
		bubble, ok := w.bubbles[msg.ID]
		if !ok {
			bubble = widget.NewRichText()
			bubble.Wrapping = fyne.TextWrapWord
			bubble.ParseMarkdown(markdown)

			role := widget.NewLabel(roleName(msg.Role))
			role.TextStyle = fyne.TextStyle{Bold: true}
			w.messages.Add(container.NewVBox(role, container.NewPadded(bubble), widget.NewSeparator()))

			w.bubbles[msg.ID] = bubble
			w.rendered[msg.ID] = markdown
			w.order = append(w.order, msg.ID)
			continue
		}
		if w.rendered[msg.ID] != markdown {
			bubble.ParseMarkdown(markdown)
			w.rendered[msg.ID] = markdown
		}
	}

	w.messages.Refresh()
	w.scroll.ScrollToBottom()
}

func (w *Window) syncState() {
	state := w.app.State()
	if state == chat.StateBusy {
		w.sendButton.Disable()
	} else {
		w.sendButton.Enable()
	}

	key := "no API key"
	if w.app.HasCredential() {
		key = "API key set"
	}
	w.status.SetText(fmt.Sprintf("%s: session %s, %s", w.app.ServiceName(), state, key))
}

// submit sends the input text. The returned channel is closed when the
// reply has finished.
func (w *Window) submit() <-chan struct{} {
	text := w.input.Text
	w.input.SetText("")
	w.notice.SetText("")

	return utils.SafeGoWithError(w.logger, "send", func() error {
		return w.app.SendMessage(context.Background(), text)
	}, func(err error) {
		w.do(func() {
			w.sendFailed(text, err)
		})
	})
}

func (w *Window) sendFailed(text string, err error) {
	var serviceErr *chat.ServiceError
	if errors.As(err, &serviceErr) {
		// The error text is already in the transcript
		w.logger.Debug("Send failed: %v", err)
		return
	}
	// Nothing was sent, give the text back
	if w.input.Text == "" {
		w.input.SetText(text)
	}
	w.showError(describeError(err))
}

// attachPath stages the file at path
func (w *Window) attachPath(path string) {
	f, err := utils.LoadStagedFile(path)
	if err != nil {
		w.showError(err.Error())
		return
	}
	if err := w.app.AddFile(f); err != nil {
		w.showError(describeError(err))
		return
	}
	w.logger.Info("Attached %s", f.Name)
}

func (w *Window) onDropped(_ fyne.Position, uris []fyne.URI) {
	for _, uri := range uris {
		w.attachPath(uri.Path())
	}
}

func (w *Window) showKeyDialog() {
	entry := widget.NewPasswordEntry()
	entry.SetPlaceHolder("Paste your API key")
	dialog.ShowForm("API Key", "Save", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Key", entry),
	}, func(ok bool) {
		if !ok {
			return
		}
		if err := w.app.SetCredential(entry.Text); err != nil {
			w.showError(describeError(err))
		}
	}, w.window)
}

func (w *Window) showExportDialog() {
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			w.showError("Failed to choose file: " + err.Error())
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()
		w.exportTo(path)
	}, w.window)
	save.SetFileName(utils.GenerateExportFilename("analyst", utils.FormatMarkdown))
	save.Show()
}

func (w *Window) exportTo(path string) {
	if err := utils.ExportTranscript(w.app.Transcript(), path); err != nil {
		w.showError(err.Error())
		return
	}
	w.showInfo("Saved conversation to " + path)
}

// showError shows message in a modal popup and keeps it under the input
func (w *Window) showError(message string) {
	w.logger.Warn("%s", message)
	w.notice.SetText(message)
	w.popup("Error", message)
}

func (w *Window) showInfo(message string) {
	w.notice.SetText(message)
}

func (w *Window) popup(title, message string) {
	var pop *widget.PopUp
	pop = widget.NewModalPopUp(
		container.NewVBox(
			widget.NewLabelWithStyle(title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
			widget.NewLabel(message),
			widget.NewButton("OK", func() {
				pop.Hide()
			}),
		),
		w.window.Canvas(),
	)
	pop.Show()
}

func bubbleMarkdown(msg chat.Message) string {
	if msg.Role == chat.RoleModel && msg.Text == "" {
		return "*" + chat.LoadingMessage + "*"
	}
	return msg.Text
}

func roleName(role chat.Role) string {
	if role == chat.RoleUser {
		return "You"
	}
	return "Analyst AI"
}

// describeError maps chat errors to user-facing text
func describeError(err error) string {
	var fileErr *chat.FileReadError
	switch {
	case errors.Is(err, chat.ErrCredentialRequired):
		return "Please set your API key with the API Key button before sending messages."
	case errors.Is(err, chat.ErrBusy):
		return "Please wait for the current reply to finish."
	case errors.Is(err, chat.ErrNothingToSend):
		return "Type a message or attach a file first."
	case errors.As(err, &fileErr):
		return fmt.Sprintf("Could not read %s: %v", fileErr.Name, fileErr.Err)
	default:
		return err.Error()
	}
}
