package gui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"analyst-ai/chat"
	"analyst-ai/utils"
)

// fileList shows the staged files above the input, each with a remove button
type fileList struct {
	w       *Window
	rows    *fyne.Container
	remove  []*widget.Button
	summary *widget.Label
}

func newFileList(w *Window) *fileList {
	return &fileList{w: w}
}

func (l *fileList) build() fyne.CanvasObject {
	attach := widget.NewButtonWithIcon("Add File", theme.FileIcon(), l.showPicker)
	clearButton := widget.NewButtonWithIcon("Clear Files", theme.ContentClearIcon(), func() {
		l.w.app.ClearFiles()
	})
	clearButton.Importance = widget.LowImportance

	l.rows = container.NewVBox()
	l.summary = widget.NewLabel("")
	l.refresh()

	return container.NewVBox(
		container.NewHBox(attach, clearButton, l.summary),
		l.rows,
	)
}

func (l *fileList) showPicker() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			l.w.showError("Failed to open file: " + err.Error())
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		// The staged file is read again at send time
		reader.Close()
		l.w.attachPath(path)
	}, l.w.window)
}

// refresh rebuilds the rows from the staged files
func (l *fileList) refresh() {
	files := l.w.app.Files()

	l.rows.Objects = nil
	l.remove = l.remove[:0]
	for i, f := range files {
		index := i
		button := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
			l.w.app.RemoveFile(index)
		})
		button.Importance = widget.LowImportance
		l.remove = append(l.remove, button)
		l.rows.Add(fileRow(f, button))
	}
	l.rows.Refresh()

	if len(files) == 0 {
		l.summary.SetText("")
	} else {
		l.summary.SetText(fmt.Sprintf("%d file(s) will be sent with the next message", len(files)))
	}
}

func fileRow(f chat.StagedFile, remove *widget.Button) fyne.CanvasObject {
	info := widget.NewLabel(fmt.Sprintf("%s (%s)", f.Name, utils.FormatSizeMB(f.Size)))
	info.Truncation = fyne.TextTruncateEllipsis

	content := container.NewBorder(nil, nil, widget.NewIcon(theme.FileIcon()), remove, info)

	bg := canvas.NewRectangle(color.NRGBA{R: 200, G: 200, B: 200, A: 50})
	bg.CornerRadius = 5
	return container.NewStack(bg, content)
}
