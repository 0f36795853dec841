package gui

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"analyst-ai/chat"
)

const noPrefix = "No prefix"

// prefixBar selects the active prompt prefix and manages saved ones
type prefixBar struct {
	w        *Window
	selector *widget.Select
	ids      map[string]string // option label -> prefix id
	updating bool
}

func newPrefixBar(w *Window) *prefixBar {
	return &prefixBar{w: w, ids: make(map[string]string)}
}

func (b *prefixBar) build() fyne.CanvasObject {
	b.selector = widget.NewSelect(nil, b.onSelected)
	b.refresh()

	add := widget.NewButtonWithIcon("", theme.ContentAddIcon(), func() {
		b.showEditor(chat.Prefix{})
	})
	edit := widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), func() {
		p, ok := b.w.app.ActivePrefix()
		if !ok {
			b.w.showError("Select a prefix to edit first.")
			return
		}
		b.showEditor(p)
	})
	remove := widget.NewButtonWithIcon("", theme.DeleteIcon(), b.confirmDelete)

	return container.NewBorder(nil, nil,
		widget.NewLabel("Prompt prefix:"),
		container.NewHBox(add, edit, remove),
		b.selector,
	)
}

// refresh rebuilds the options and selects the active prefix
func (b *prefixBar) refresh() {
	prefixes := b.w.app.Prefixes()

	options := []string{noPrefix}
	b.ids = map[string]string{noPrefix: ""}
	for i, p := range prefixes {
		label := fmt.Sprintf("%d. %s", i+1, p.Name)
		options = append(options, label)
		b.ids[label] = p.ID
	}

	selected := noPrefix
	if active, ok := b.w.app.ActivePrefix(); ok {
		for label, id := range b.ids {
			if id == active.ID {
				selected = label
			}
		}
	}

	b.updating = true
	b.selector.Options = options
	b.selector.SetSelected(selected)
	b.selector.Refresh()
	b.updating = false
}

func (b *prefixBar) onSelected(label string) {
	if b.updating {
		return
	}
	id, ok := b.ids[label]
	if !ok {
		return
	}
	if err := b.w.app.SelectPrefix(id); err != nil {
		b.w.showError(err.Error())
	}
}

// save creates or updates a prefix from the editor fields
func (b *prefixBar) save(editingID, name, content string, autoApply bool) error {
	p, err := b.w.app.SavePrefix(editingID, name, content, autoApply)
	if err != nil {
		return err
	}
	b.w.showInfo(fmt.Sprintf("Saved prefix %q", p.Name))
	return nil
}

func (b *prefixBar) showEditor(p chat.Prefix) {
	name := widget.NewEntry()
	name.SetText(p.Name)
	content := widget.NewMultiLineEntry()
	content.Wrapping = fyne.TextWrapWord
	content.SetMinRowsVisible(6)
	content.SetText(p.Content)
	apply := widget.NewCheck("Use after saving", nil)
	apply.SetChecked(p.ID == "")

	title := "New Prefix"
	if p.ID != "" {
		title = "Edit Prefix"
	}

	form := dialog.NewForm(title, "Save", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Name", name),
		widget.NewFormItem("Content", content),
		widget.NewFormItem("", apply),
	}, func(ok bool) {
		if !ok {
			return
		}
		if err := b.save(p.ID, name.Text, content.Text, apply.Checked); err != nil {
			var validation *chat.ValidationError
			if errors.As(err, &validation) {
				b.w.showError(validation.Error())
				return
			}
			b.w.showError("Failed to save prefix: " + err.Error())
		}
	}, b.w.window)
	form.Resize(fyne.NewSize(560, 360))
	form.Show()
}

func (b *prefixBar) confirmDelete() {
	p, ok := b.w.app.ActivePrefix()
	if !ok {
		b.w.showError("Select a prefix to delete first.")
		return
	}
	dialog.ShowConfirm("Delete Prefix", fmt.Sprintf("Delete %q?", p.Name), func(yes bool) {
		if !yes {
			return
		}
		if err := b.w.app.DeletePrefix(p.ID); err != nil {
			b.w.showError(err.Error())
		}
	}, b.w.window)
}
