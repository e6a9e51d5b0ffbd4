package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	AttackGraph    key.Binding
	ActivityThread key.Binding
	SubGraph       key.Binding

	ZoomIn    key.Binding
	ZoomOut   key.Binding
	ZoomReset key.Binding
	PanUp     key.Binding
	PanDown   key.Binding
	PanLeft   key.Binding
	PanRight  key.Binding

	Next        key.Binding
	Prev        key.Binding
	Open        key.Binding
	Unpin       key.Binding
	Pin         key.Binding
	DragUp      key.Binding
	DragDown    key.Binding
	DragLeft    key.Binding
	DragRight   key.Binding
	CloseDetail key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding

	Export key.Binding
	Copy   key.Binding
	Reload key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		AttackGraph:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "attack graph")),
		ActivityThread: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "activity thread")),
		SubGraph:       key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "sub-graph")),

		ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		ZoomReset: key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset zoom")),
		PanUp:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "pan up")),
		PanDown:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "pan down")),
		PanLeft:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
		PanRight:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),

		Next:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next node")),
		Prev:        key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev node")),
		Open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open / drill down")),
		Unpin:       key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unpin")),
		Pin:         key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pin")),
		DragUp:      key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "drag up")),
		DragDown:    key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "drag down")),
		DragLeft:    key.NewBinding(key.WithKeys("H", "shift+left"), key.WithHelp("H", "drag left")),
		DragRight:   key.NewBinding(key.WithKeys("L", "shift+right"), key.WithHelp("L", "drag right")),
		CloseDetail: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close detail")),
		ScrollUp:    key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll detail")),
		ScrollDown:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll detail")),

		Export: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		Copy:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy id")),
		Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.AttackGraph, k.ActivityThread, k.Next, k.Open, k.ZoomIn, k.ZoomOut, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.AttackGraph, k.ActivityThread, k.SubGraph, k.Reload},
		{k.ZoomIn, k.ZoomOut, k.ZoomReset, k.PanUp, k.PanDown, k.PanLeft, k.PanRight},
		{k.Next, k.Prev, k.Open, k.Pin, k.Unpin, k.DragUp, k.DragDown, k.DragLeft, k.DragRight},
		{k.CloseDetail, k.ScrollUp, k.ScrollDown, k.Export, k.Copy, k.Help, k.Quit},
	}
}
