package ui

import (
	"fmt"
	"image/color"
	"io"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
)

// Palette shared by every nilmeval view.
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorHighlight = lipgloss.Color("#f048ff") // Pink

	ColorText    = lipgloss.Color("#F9FAFB")
	ColorTextDim = lipgloss.Color("#9CA3AF")
)

type styleWrapper struct {
	style lipgloss.Style
}

func (s styleWrapper) Render(str string) string {
	return s.style.Render(str)
}

func (s styleWrapper) Bold(v bool) styleWrapper {
	return styleWrapper{s.style.Bold(v)}
}

var (
	Bold      = styleWrapper{lipgloss.NewStyle().Bold(true)}
	Dim       = styleWrapper{lipgloss.NewStyle().Foreground(ColorTextDim)}
	Muted     = styleWrapper{lipgloss.NewStyle().Foreground(ColorMuted)}
	Success   = styleWrapper{lipgloss.NewStyle().Foreground(ColorSuccess)}
	Warning   = styleWrapper{lipgloss.NewStyle().Foreground(ColorWarning)}
	Error     = styleWrapper{lipgloss.NewStyle().Foreground(ColorError)}
	Primary   = styleWrapper{lipgloss.NewStyle().Foreground(ColorPrimary)}
	Secondary = styleWrapper{lipgloss.NewStyle().Foreground(ColorSecondary)}
	Highlight = styleWrapper{lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)}

	Title         = styleWrapper{lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)}
	SectionHeader = styleWrapper{lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)}
)

// Step line colouring: an unseen step is flagged, a step-change point
// stands out.
var (
	StepUnseen = styleWrapper{lipgloss.NewStyle().Foreground(ColorWarning)}
	StepChange = styleWrapper{lipgloss.NewStyle().Foreground(ColorHighlight)}
)

func GetCheckMark() string { return Success.Render("✓") }
func GetCrossMark() string { return Error.Render("✗") }
func GetWarnMark() string  { return Warning.Render("⚠") }
func GetInfoMark() string  { return Secondary.Render("ℹ") }
func GetBullet() string    { return Muted.Render("•") }

var (
	CheckMark = GetCheckMark()
	CrossMark = GetCrossMark()
	WarnMark  = GetWarnMark()
	InfoMark  = GetInfoMark()
)

type boxWrapper struct {
	style lipgloss.Style
}

func (b boxWrapper) Render(str string) string {
	return b.style.Render(str)
}

var (
	Box = boxWrapper{lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Padding(0, 1)}

	SuccessBox = boxWrapper{lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSuccess).
			Padding(0, 1)}

	ErrorBox = boxWrapper{lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(0, 1)}
)

// FormatKeyValue renders "key: value" with a dimmed key.
func FormatKeyValue(key, value string) string {
	return Dim.Render(key+": ") + value
}

// FangColorScheme maps the palette onto fang's help and error output.
func FangColorScheme(c lipgloss.LightDarkFunc) fang.ColorScheme {
	return fang.ColorScheme{
		Base:           ColorText,
		Title:          ColorPrimary,
		Description:    ColorTextDim,
		Codeblock:      c(lipgloss.Color("#1F2937"), lipgloss.Color("#2F2E36")),
		Program:        ColorSecondary,
		DimmedArgument: ColorMuted,
		Comment:        ColorMuted,
		Flag:           ColorSuccess,
		FlagDefault:    ColorTextDim,
		Command:        ColorHighlight,
		QuotedString:   ColorSecondary,
		Argument:       ColorText,
		Help:           ColorTextDim,
		Dash:           ColorMuted,
		ErrorHeader:    [2]color.Color{ColorText, ColorError},
		ErrorDetails:   ColorError,
	}
}

const BannerASCII = `
       _ _                          _
 _ __ (_) |_ __ ___   _____   ____ _| |
| '_ \| | | '_ ' _ \ / _ \ \ / / _' | |
| | | | | | | | | | |  __/\ V / (_| | |
|_| |_|_|_|_| |_| |_|\___| \_/ \__,_|_|
`

func PrintBanner(w io.Writer) {
	fmt.Fprintln(w, Secondary.Render(BannerASCII))
}
