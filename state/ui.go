package state

import (
	"excalidraw-drawings/core"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
)

const (
	MinZoom     = 10
	MaxZoom     = 500
	DefaultZoom = 100
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Field names a UI field that can be persisted.
type Field string

const (
	FieldTool     Field = "tool"
	FieldZoom     Field = "zoom"
	FieldSidebar  Field = "sidebar"
	FieldTheme    Field = "theme"
	FieldViewMode Field = "viewMode"
	FieldZenMode  Field = "zenMode"
	FieldGridMode Field = "gridMode"
)

var allFields = []Field{FieldTool, FieldZoom, FieldSidebar, FieldTheme, FieldViewMode, FieldZenMode, FieldGridMode}

type UIState struct {
	ActiveTool  string
	Zoom        int
	SidebarOpen bool
	Theme       Theme
	ViewMode    bool
	ZenMode     bool
	GridMode    bool
}

func DefaultUIState() UIState {
	return UIState{
		ActiveTool:  "selection",
		Zoom:        DefaultZoom,
		SidebarOpen: true,
		Theme:       ThemeLight,
	}
}

// ParseFields converts configured field names into Fields.
func ParseFields(names []string) ([]Field, error) {
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		f := Field(name)
		if !f.valid() {
			return nil, fmt.Errorf("unknown UI field %q: %w", name, core.ErrValidation)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (f Field) valid() bool {
	for _, known := range allFields {
		if f == known {
			return true
		}
	}
	return false
}

func (f Field) key() string {
	return core.UIKeyPrefix + string(f)
}

// UI holds the view state. Only the fields named at construction are
// persisted; persistence failures are logged and never interrupt the UI.
type UI struct {
	storage core.Storage
	persist map[Field]bool
	state   *Value[UIState]
}

// NewUI restores the persisted fields from storage. storage may be nil when
// nothing is persisted.
func NewUI(storage core.Storage, persist ...Field) *UI {
	u := &UI{
		storage: storage,
		persist: make(map[Field]bool, len(persist)),
	}
	if storage != nil {
		for _, f := range persist {
			u.persist[f] = true
		}
	}
	u.state = NewValue(u.restore())
	return u
}

func (u *UI) restore() UIState {
	s := DefaultUIState()
	for f := range u.persist {
		raw, ok, err := u.storage.GetItem(f.key())
		if err != nil {
			logrus.WithField("field", f).WithError(err).Warn("Failed to restore UI field")
			continue
		}
		if !ok {
			continue
		}
		if err := s.apply(f, raw); err != nil {
			logrus.WithFields(logrus.Fields{"field": f, "value": raw}).Warn("Ignoring invalid stored UI field")
		}
	}
	return s
}

func (s *UIState) apply(f Field, raw string) error {
	switch f {
	case FieldTool:
		s.ActiveTool = raw
	case FieldZoom:
		z, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		s.Zoom = clampZoom(z)
	case FieldTheme:
		if t := Theme(raw); t == ThemeLight || t == ThemeDark {
			s.Theme = t
			return nil
		}
		return fmt.Errorf("invalid theme %q", raw)
	default:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		switch f {
		case FieldSidebar:
			s.SidebarOpen = b
		case FieldViewMode:
			s.ViewMode = b
		case FieldZenMode:
			s.ZenMode = b
		case FieldGridMode:
			s.GridMode = b
		}
	}
	return nil
}

func (s UIState) value(f Field) string {
	switch f {
	case FieldTool:
		return s.ActiveTool
	case FieldZoom:
		return strconv.Itoa(s.Zoom)
	case FieldSidebar:
		return strconv.FormatBool(s.SidebarOpen)
	case FieldTheme:
		return string(s.Theme)
	case FieldViewMode:
		return strconv.FormatBool(s.ViewMode)
	case FieldZenMode:
		return strconv.FormatBool(s.ZenMode)
	case FieldGridMode:
		return strconv.FormatBool(s.GridMode)
	}
	return ""
}

func clampZoom(z int) int {
	return max(MinZoom, min(MaxZoom, z))
}

func (u *UI) Get() UIState {
	return u.state.Get()
}

func (u *UI) Subscribe(fn func(UIState)) func() {
	return u.state.Subscribe(fn)
}

// update applies fn and persists the given fields if the policy asks for it.
func (u *UI) update(fn func(*UIState), fields ...Field) {
	s := u.state.Update(func(s UIState) UIState {
		fn(&s)
		return s
	})
	for _, f := range fields {
		if !u.persist[f] {
			continue
		}
		if err := u.storage.SetItem(f.key(), s.value(f)); err != nil {
			logrus.WithField("field", f).WithError(err).Error("Failed to persist UI field")
		}
	}
}

// SetZoom sets the zoom percentage, clamped to [MinZoom, MaxZoom].
func (u *UI) SetZoom(zoom int) {
	u.update(func(s *UIState) { s.Zoom = clampZoom(zoom) }, FieldZoom)
}

func (u *UI) SetTool(tool string) {
	u.update(func(s *UIState) { s.ActiveTool = tool }, FieldTool)
}

func (u *UI) SetTheme(theme Theme) {
	u.update(func(s *UIState) { s.Theme = theme }, FieldTheme)
}

func (u *UI) ToggleTheme() {
	u.update(func(s *UIState) {
		if s.Theme == ThemeDark {
			s.Theme = ThemeLight
		} else {
			s.Theme = ThemeDark
		}
	}, FieldTheme)
}

func (u *UI) ToggleSidebar() {
	u.update(func(s *UIState) { s.SidebarOpen = !s.SidebarOpen }, FieldSidebar)
}

func (u *UI) ToggleViewMode() {
	u.update(func(s *UIState) { s.ViewMode = !s.ViewMode }, FieldViewMode)
}

func (u *UI) ToggleZenMode() {
	u.update(func(s *UIState) { s.ZenMode = !s.ZenMode }, FieldZenMode)
}

func (u *UI) ToggleGridMode() {
	u.update(func(s *UIState) { s.GridMode = !s.GridMode }, FieldGridMode)
}

// Reset restores the defaults, including the persisted copies.
func (u *UI) Reset() {
	u.update(func(s *UIState) { *s = DefaultUIState() }, allFields...)
}
