package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	BorderFocusColor  tcell.Color
	TableHeaderFg     tcell.Color
	TableHeaderBg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	NumericKeyColor   tcell.Color
	TitleColor        tcell.Color
	CounterColor      tcell.Color
	NoticeInfoColor   tcell.Color
	NoticeWarnColor   tcell.Color
	NoticeErrColor    tcell.Color
	PromptBorderColor tcell.Color

	MineColor     tcell.Color
	UnreadColor   tcell.Color
	DividerColor  tcell.Color
	PendingColor  tcell.Color
	FailedColor   tcell.Color
	PopupCardFg   tcell.Color
	TypingColor   tcell.Color
	ConnectedFg   tcell.Color
	DisconnectFg  tcell.Color
	HiddenRoomFg  tcell.Color
	ActiveRoomFg  tcell.Color
	TimestampFg   tcell.Color
	DateDividerFg tcell.Color
}

// DefaultTheme returns a dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorCadetBlue,
		BorderColor:       tcell.ColorDodgerBlue,
		BorderFocusColor:  tcell.ColorLightSkyBlue,
		TableHeaderFg:     tcell.ColorWhite,
		TableHeaderBg:     tcell.ColorBlack,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorAqua,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorOrange,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorAqua,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		NumericKeyColor:   tcell.ColorFuchsia,
		TitleColor:        tcell.ColorFuchsia,
		CounterColor:      tcell.ColorPapayaWhip,
		NoticeInfoColor:   tcell.ColorNavajoWhite,
		NoticeWarnColor:   tcell.ColorOrange,
		NoticeErrColor:    tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,

		MineColor:     tcell.ColorLightGreen,
		UnreadColor:   tcell.ColorYellow,
		DividerColor:  tcell.ColorOrange,
		PendingColor:  tcell.ColorGray,
		FailedColor:   tcell.ColorOrangeRed,
		PopupCardFg:   tcell.ColorHotPink,
		TypingColor:   tcell.ColorGray,
		ConnectedFg:   tcell.ColorLightGreen,
		DisconnectFg:  tcell.ColorOrangeRed,
		HiddenRoomFg:  tcell.ColorDimGray,
		ActiveRoomFg:  tcell.ColorAqua,
		TimestampFg:   tcell.ColorGray,
		DateDividerFg: tcell.ColorLightSlateGray,
	}
}

// Color returns the tview tag name of c.
func Color(c tcell.Color) string {
	return colorName(c)
}

func colorName(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
